package air_test

import (
	"context"
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/field/goldilocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sealedbid/internal/air"
	"sealedbid/internal/columns"
	"sealedbid/internal/trace"
)

var key = trace.Key{Modulus: 3233, Exponent: 2753}

func seal(m uint64) []byte {
	c := new(big.Int).Exp(new(big.Int).SetUint64(m), big.NewInt(17), big.NewInt(3233))
	return binary.LittleEndian.AppendUint32(nil, uint32(c.Uint64()))
}

func address(b byte) []byte {
	a := make([]byte, columns.AddressBytes)
	a[0], a[19] = 0x42, b
	return a
}

func generate(t *testing.T) *trace.Trace {
	t.Helper()
	tr, err := trace.Generate([]trace.Bid{
		{Address: address(1), Ciphertext: seal(2042)},
		{Address: address(2), Ciphertext: seal(3042)},
		{Address: address(3), Ciphertext: append(seal(1000), seal(1)...)},
	}, key)
	require.NoError(t, err)
	return tr
}

func check(tr *trace.Trace, pub *trace.Public) error {
	c := air.Checker{Workers: 3}
	return c.Check(context.Background(), tr.Matrix, pub)
}

func violations(t *testing.T, err error) []string {
	t.Helper()
	var verr *air.ViolationError
	require.ErrorAs(t, err, &verr)
	var names []string
	for _, v := range verr.Violations {
		names = append(names, v.Constraint)
	}
	return names
}

func col(t *testing.T, name string) int {
	t.Helper()
	for i, n := range columns.Names() {
		if n == name {
			return i
		}
	}
	t.Fatalf("no column %q", name)
	return -1
}

func rowWhere(t *testing.T, tr *trace.Trace, pred func(trace.Row) bool) int {
	t.Helper()
	for i := 0; i < tr.Rows; i++ {
		if pred(tr.Matrix.View(i)) {
			return i
		}
	}
	t.Fatal("no matching row")
	return -1
}

func TestValidTraceSatisfies(t *testing.T) {
	tr := generate(t)
	require.NoError(t, check(tr, &tr.Public))

	_, amount := tr.Winner()
	assert.Equal(t, uint64(66), amount) // 1000 + 1<<16 = 66536
}

func TestTamperedCells(t *testing.T) {
	isExp := func(r trace.Row) bool { return !r.IsExponent.IsZero() }
	isWinner := func(r trace.Row) bool { return !r.ComputingWinner.IsZero() }
	isRead := func(r trace.Row) bool { return !r.IsReading.IsZero() }

	cases := []struct {
		name   string
		row    func(*trace.Trace) int
		column string
		value  uint64
		want   string
	}{
		{"square", func(tr *trace.Trace) int { return rowWhere(t, tr, isExp) }, "current_value", 7, "decrypt/square"},
		{"read bytes", func(tr *trace.Trace) int { return rowWhere(t, tr, isRead) }, "read_bytes[0]", 0, "decrypt/read_value"},
		{"bid split", func(tr *trace.Trace) int { return rowWhere(t, tr, isWinner) }, "nonce", 999, "auction/split"},
		{"flag not boolean", func(*trace.Trace) int { return 0 }, "is_error", 2, "shape/is_error"},
		{"address", func(tr *trace.Trace) int { return rowWhere(t, tr, isRead) }, "read_address[5]", 9, "hash/address_hold"},
		{"first row", func(*trace.Trace) int { return 0 }, "new_bidder", 0, "seq/first_new_bidder"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := generate(t)
			tr.Matrix.Set(tc.row(tr), col(t, tc.column), goldilocks.NewElement(tc.value))
			err := check(tr, &tr.Public)
			require.ErrorIs(t, err, air.ErrUnsatisfied)
			assert.Contains(t, violations(t, err), tc.want)
		})
	}
}

func TestWrongPublicValues(t *testing.T) {
	tr := generate(t)

	pub := tr.Public
	pub.WinnerAmount = goldilocks.NewElement(67)
	assert.Contains(t, violations(t, check(tr, &pub)), "auction/public_amount")

	pub = tr.Public
	pub.Commitment = goldilocks.NewElement(1)
	assert.Contains(t, violations(t, check(tr, &pub)), "hash/commitment")

	pub = tr.Public
	pub.Modulus = goldilocks.NewElement(3235)
	assert.Contains(t, violations(t, check(tr, &pub)), "decrypt/square")
}

func TestClaimingFalseWinner(t *testing.T) {
	tr := generate(t)
	first := rowWhere(t, tr, func(r trace.Row) bool { return !r.ComputingWinner.IsZero() })
	// first bidder pretends not to lead
	tr.Matrix.Set(first, col(t, "change_winner"), goldilocks.NewElement(0))
	err := check(tr, &tr.Public)
	require.ErrorIs(t, err, air.ErrUnsatisfied)
}

func TestViolationLimit(t *testing.T) {
	tr := generate(t)
	for i := 0; i < tr.Matrix.Height(); i++ {
		tr.Matrix.Set(i, col(t, "is_dummy"), goldilocks.NewElement(5))
	}
	c := air.Checker{MaxViolations: 4}
	err := c.Check(context.Background(), tr.Matrix, &tr.Public)
	var verr *air.ViolationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Violations, 4)
	assert.True(t, verr.Truncated)
}

func TestCheckCancelled(t *testing.T) {
	tr := generate(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := air.Checker{}
	assert.ErrorIs(t, c.Check(ctx, tr.Matrix, &tr.Public), context.Canceled)
}

func TestDegree(t *testing.T) {
	s := air.Degree()
	assert.Greater(t, s.Constraints, 100)
	assert.LessOrEqual(t, s.MaxDegree, 5)
	assert.GreaterOrEqual(t, s.MaxDegree, 3)
}
