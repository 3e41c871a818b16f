package bids

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sealedbid/internal/trace"
)

var testKey = &PrivateKey{
	PublicKey: PublicKey{Modulus: 4292870399, Exponent: 65537},
	D:         1475213633,
}

func TestGenerateKey(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 5; i++ {
		k, err := GenerateKey(rng)
		require.NoError(t, err)
		assert.NoError(t, k.Key().Validate())
		assert.Greater(t, k.Modulus, uint64(1)<<30)

		ct, err := Seal(42, 7, 2, k.PublicKey)
		require.NoError(t, err)
		limbs, err := Open(ct, k)
		require.NoError(t, err)
		amount, nonce := Recombine(limbs)
		assert.Equal(t, uint64(42), amount)
		assert.Equal(t, uint64(7), nonce)
	}
}

func TestSealOpen(t *testing.T) {
	ct, err := Seal(1234, 999, 2, testKey.PublicKey)
	require.NoError(t, err)
	require.Len(t, ct, 8)

	limbs, err := Open(ct, testKey)
	require.NoError(t, err)
	plain := uint64(1234*1000 + 999)
	assert.Equal(t, []uint64{plain & 0xFFFF, plain >> 16}, limbs)
}

func TestSealRanges(t *testing.T) {
	_, err := Seal(1, 1000, 1, testKey.PublicKey)
	assert.ErrorIs(t, err, ErrNonceRange)

	_, err = Seal(66, 0, 1, testKey.PublicKey)
	assert.ErrorIs(t, err, ErrAmountRange)

	_, err = Seal(65, 535, 1, testKey.PublicKey)
	assert.NoError(t, err)

	_, err = Seal(1, 0, 0, testKey.PublicKey)
	assert.ErrorIs(t, err, ErrAmountRange)

	small := PublicKey{Modulus: 3233, Exponent: 17}
	_, err = Seal(4, 0, 1, small)
	assert.ErrorIs(t, err, ErrLimbTooLarge)
}

func TestOpenRejectsPartialLimb(t *testing.T) {
	_, err := Open([]byte{1, 2, 3}, testKey)
	assert.ErrorIs(t, err, trace.ErrCiphertextLength)
}

func TestFileRoundTrip(t *testing.T) {
	f := &File{Modulus: testKey.Modulus}
	alice := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob := common.HexToAddress("0x00000000000000000000000000000000000000b2")
	require.NoError(t, f.Add(alice, 10, 1, 2, testKey.PublicKey))
	require.NoError(t, f.Add(bob, 25, 2, 2, testKey.PublicKey))

	path := filepath.Join(t.TempDir(), "bids.json")
	require.NoError(t, f.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, f.Modulus, loaded.Modulus)
	require.Len(t, loaded.Bids, 2)
	assert.Equal(t, alice, loaded.Bids[0].Bidder)
	assert.Equal(t, f.Bids[1].EncryptedAmount, loaded.Bids[1].EncryptedAmount)

	tb := loaded.TraceBids()
	require.Len(t, tb, 2)
	assert.Equal(t, bob.Bytes(), tb[1].Address)
	assert.NoError(t, tb[0].Validate())
}

func TestFileModulusMismatch(t *testing.T) {
	f := &File{Modulus: 3233}
	err := f.Add(common.Address{}, 1, 0, 1, testKey.PublicKey)
	assert.Error(t, err)
}

func TestLoadRejectsBadAddress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bids.json")
	body := `{"modulus": 3233, "bids": [{"bidder": "0x1234", "encrypted_amount": "0x00000000"}]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrAddress)
}

func TestLoadRejectsBadCiphertext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bids.json")
	body := `{"modulus": 3233, "bids": [{"bidder": "0x00000000000000000000000000000000000000a1", "encrypted_amount": "zz"}]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadAcceptsUnprefixedCiphertext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bids.json")
	body := `{"modulus": 3233, "bids": [
		{"bidder": "0x00000000000000000000000000000000000000a1", "encrypted_amount": "211be84e"},
		{"bidder": "0x00000000000000000000000000000000000000b2", "encrypted_amount": "0x211be84e"}
	]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	f, err := Load(path)
	require.NoError(t, err)
	require.Len(t, f.Bids, 2)
	want := []byte{0x21, 0x1b, 0xe8, 0x4e}
	assert.Equal(t, want, []byte(f.Bids[0].EncryptedAmount))
	assert.Equal(t, want, []byte(f.Bids[1].EncryptedAmount))

	for _, bad := range []string{"211be84", "211be8zz", "0x0x11"} {
		body := `{"modulus": 3233, "bids": [{"bidder": "0x00000000000000000000000000000000000000a1", "encrypted_amount": "` + bad + `"}]}`
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))
		_, err := Load(path)
		assert.Error(t, err, bad)
	}
}
