package ledger

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sealedbid/internal/columns"
	"sealedbid/internal/snark"
)

func result(commitment, amount uint64, last byte) *snark.Result {
	public := make([]uint64, columns.NumPublic)
	public[0] = 3233
	public[1] = commitment
	public[2] = columns.HashBase
	public[3] = amount
	public[columns.NumPublic-1] = uint64(last)
	return &snark.Result{Height: 16, Public: public, Proof: []byte{byte(commitment), byte(amount), last}}
}

func TestNewRecord(t *testing.T) {
	rec, err := NewRecord(result(7, 3, 0xa1))
	require.NoError(t, err)
	assert.Equal(t, uint64(7), rec.Commitment)
	assert.Equal(t, uint64(3), rec.Amount)
	assert.Equal(t, common.HexToAddress("0xa1"), rec.Winner)
	assert.Len(t, rec.ID, 64)

	_, err = NewRecord(&snark.Result{Public: []uint64{1, 2}})
	assert.Error(t, err)
}

func TestDuplicateCommitment(t *testing.T) {
	l := New()
	rec, err := NewRecord(result(7, 3, 1))
	require.NoError(t, err)
	require.NoError(t, l.add(rec))
	assert.True(t, l.HasCommitment(7))
	assert.False(t, l.HasCommitment(8))

	again, err := NewRecord(result(7, 4, 2))
	require.NoError(t, err)
	assert.ErrorIs(t, l.add(again), ErrSettled)
	assert.Len(t, l.Records(), 1)
}

func TestConcurrentAdd(t *testing.T) {
	l := New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(cm uint64) {
			defer wg.Done()
			rec, err := NewRecord(result(cm%4, 1, 1))
			if err == nil {
				_ = l.add(rec)
			}
		}(uint64(i))
	}
	wg.Wait()
	assert.Len(t, l.Records(), 4)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")

	empty, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Empty(t, empty.Records())

	l := New()
	for cm := uint64(1); cm <= 3; cm++ {
		rec, err := NewRecord(result(cm, cm*10, byte(cm)))
		require.NoError(t, err)
		require.NoError(t, l.add(rec))
	}
	require.NoError(t, l.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Len(t, loaded.Records(), 3)
	assert.Equal(t, l.Records()[2].ID, loaded.Records()[2].ID)
	assert.Equal(t, l.Records()[1].Result.Public, loaded.Records()[1].Result.Public)
	assert.True(t, loaded.HasCommitment(2))
}
