package snark

import (
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/consensys/gnark/std/math/emulated"
	"github.com/consensys/gnark/test"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sealedbid/internal/columns"
	"sealedbid/internal/trace"
)

// n = 61*53, d = 2753: one bidder with one limb fills exactly 16 rows.
var smallKey = trace.Key{Modulus: 3233, Exponent: 2753}

func smallTrace(t *testing.T) *trace.Trace {
	t.Helper()
	c := new(big.Int).Exp(big.NewInt(3042), big.NewInt(17), big.NewInt(3233))
	addr := make([]byte, columns.AddressBytes)
	addr[19] = 0xa1
	tr, err := trace.Generate([]trace.Bid{{
		Address:    addr,
		Ciphertext: binary.LittleEndian.AppendUint32(nil, uint32(c.Uint64())),
	}}, smallKey)
	require.NoError(t, err)
	require.Equal(t, 16, tr.Rows)
	require.Equal(t, 16, tr.Matrix.Height())
	return tr
}

func TestCircuitSolved(t *testing.T) {
	tr := smallTrace(t)
	err := test.IsSolved(NewCircuit(16), Assign(tr), Curve.ScalarField())
	assert.NoError(t, err)
}

func TestCircuitRejectsTamperedTrace(t *testing.T) {
	tr := smallTrace(t)
	assignment := Assign(tr)
	// bid amount on the computing-winner row
	assignment.Trace[15][columns.NumCols-24] = emulated.ValueOf[Goldilocks](4)
	err := test.IsSolved(NewCircuit(16), assignment, Curve.ScalarField())
	assert.Error(t, err)
}

func TestCircuitRejectsWrongWinner(t *testing.T) {
	tr := smallTrace(t)
	assignment := Assign(tr)
	assignment.Public[3] = emulated.ValueOf[Goldilocks](2)
	err := test.IsSolved(NewCircuit(16), assignment, Curve.ScalarField())
	assert.Error(t, err)
}

func TestCircuitHeight(t *testing.T) {
	_, err := Compile(3)
	assert.ErrorContains(t, err, "power of two")
}

func TestProveVerify(t *testing.T) {
	if testing.Short() {
		t.Skip("groth16 setup is slow")
	}
	tr := smallTrace(t)
	ccs, err := Compile(tr.Matrix.Height())
	require.NoError(t, err)

	dir := t.TempDir()
	pk, vk, err := SetupOrLoadKeys(ccs, dir, 16, zerolog.Nop())
	require.NoError(t, err)

	res, err := Prove(ccs, pk, tr)
	require.NoError(t, err)
	assert.Equal(t, 16, res.Height)
	assert.Equal(t, tr.Public.Commitment.Uint64(), res.Commitment())
	require.NoError(t, Verify(res, vk))

	// keys come back from disk
	_, vk2, err := SetupOrLoadKeys(ccs, dir, 16, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, Verify(res, vk2))

	forged := *res
	forged.Public = append([]uint64(nil), res.Public...)
	forged.Public[3] = 1
	assert.ErrorIs(t, Verify(&forged, vk), ErrProof)

	forged.Public = forged.Public[:3]
	assert.ErrorIs(t, Verify(&forged, vk), ErrProof)
}
