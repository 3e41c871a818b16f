package columns

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutWidth(t *testing.T) {
	var r Row[int]
	require.Len(t, r.refs(), NumCols)
	require.Len(t, Names(), NumCols)

	var p PublicValues[int]
	require.Len(t, p.refs(), NumPublic)
}

// The pointer table must walk the struct in declaration order, otherwise the
// generator and a backend reading the struct by name would disagree.
func TestRefsFollowDeclarationOrder(t *testing.T) {
	names := Names()
	row, err := FromSlice(names)
	require.NoError(t, err)

	v := reflect.ValueOf(row)
	i := 0
	for f := 0; f < v.NumField(); f++ {
		field := v.Field(f)
		if field.Kind() == reflect.Array {
			for j := 0; j < field.Len(); j++ {
				assert.Equal(t, names[i], field.Index(j).String())
				i++
			}
			continue
		}
		assert.Equal(t, names[i], field.String())
		i++
	}
	assert.Equal(t, NumCols, i)
}

func TestKnownColumnPositions(t *testing.T) {
	names := Names()
	for idx, want := range map[int]string{
		0:  "is_dummy",
		5:  "is_error",
		6:  "read_bytes[0]",
		10: "current_value",
		14: "r",
		15: "q_r",
		20: "gap",
		21: "final_value",
		22: "read_address[0]",
		42: "hash_lim",
		43: "hash_value",
		47: "change_winner",
		67: "winner_address[19]",
	} {
		assert.Equal(t, want, names[idx], "column %d", idx)
	}
}

func TestFlattenRoundTrip(t *testing.T) {
	flat := make([]int, NumCols)
	for i := range flat {
		flat[i] = i * 3
	}
	row, err := FromSlice(flat)
	require.NoError(t, err)
	assert.Equal(t, 10*3, row.CurrentValue)
	assert.Equal(t, 43*3, row.HashValue)
	assert.Equal(t, flat, row.Flatten())

	_, err = FromSlice(flat[1:])
	require.ErrorIs(t, err, ErrWidth)
}

func TestReplaceAndMap(t *testing.T) {
	var a, b Row[int]
	b.IsReading = 1
	b.ReadBytes = [LimbBytes]int{1, 2, 3, 4}
	b.WinnerAddress[19] = 9

	a.HashValue = 77
	a.Replace(b)
	assert.Equal(t, b, a)
	assert.Zero(t, a.HashValue)

	s := Map(&a, func(v int) string { return fmt.Sprint(v) })
	assert.Equal(t, "1", s.IsReading)
	assert.Equal(t, "3", s.ReadBytes[2])
	assert.Equal(t, "9", s.WinnerAddress[19])
}

func TestPublicValues(t *testing.T) {
	flat := make([]uint64, NumPublic)
	for i := range flat {
		flat[i] = uint64(i + 1)
	}
	p, err := PublicFromSlice(flat)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), p.Modulus)
	assert.Equal(t, uint64(3), p.HashBase)
	assert.Equal(t, uint64(5), p.WinnerAddress[0])
	assert.Equal(t, flat, p.Flatten())

	doubled := MapPublic(&p, func(v uint64) uint64 { return 2 * v })
	assert.Equal(t, uint64(8), doubled.WinnerAmount)

	_, err = PublicFromSlice(flat[:3])
	require.ErrorIs(t, err, ErrWidth)
}
