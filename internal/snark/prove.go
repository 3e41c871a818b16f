// prove.go - Groth16 proving and verification of auction traces.
//
// Keys depend on the trace height and are cached on disk per height.

package snark

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/field/goldilocks"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/rs/zerolog"

	"sealedbid/internal/columns"
	"sealedbid/internal/trace"
)

// Curve is the proving curve.
const Curve = ecc.BN254

var ErrProof = errors.New("snark: proof verification failed")

// Result is a proof of one auction and the public values it binds.
type Result struct {
	Height int      `json:"height"`
	Public []uint64 `json:"public"`
	Proof  []byte   `json:"proof"`
}

// Commitment returns the bid commitment carried by the result.
func (r *Result) Commitment() uint64 {
	if len(r.Public) < 2 {
		return 0
	}
	return r.Public[1]
}

// Compile builds the constraint system for traces of the given height.
func Compile(height int) (constraint.ConstraintSystem, error) {
	ccs, err := frontend.Compile(Curve.ScalarField(), r1cs.NewBuilder, NewCircuit(height))
	if err != nil {
		return nil, fmt.Errorf("circuit compilation failed: %w", err)
	}
	return ccs, nil
}

// KeyPaths returns the proving and verifying key paths for a height.
func KeyPaths(dir string, height int) (pkPath, vkPath string) {
	base := filepath.Join(dir, fmt.Sprintf("auction-%d", height))
	return base + ".pk", base + ".vk"
}

// SaveProvingKey saves a Groth16 proving key to disk.
func SaveProvingKey(path string, pk groth16.ProvingKey) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = pk.WriteTo(f)
	return err
}

// SaveVerifyingKey saves a Groth16 verifying key to disk.
func SaveVerifyingKey(path string, vk groth16.VerifyingKey) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = vk.WriteTo(f)
	return err
}

// LoadProvingKey loads a Groth16 proving key from disk.
func LoadProvingKey(path string) (groth16.ProvingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pk := groth16.NewProvingKey(Curve)
	_, err = pk.ReadFrom(f)
	return pk, err
}

// LoadVerifyingKey loads a Groth16 verifying key from disk.
func LoadVerifyingKey(path string) (groth16.VerifyingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	vk := groth16.NewVerifyingKey(Curve)
	_, err = vk.ReadFrom(f)
	return vk, err
}

// SetupOrLoadKeys loads the keys for a height from dir, or runs the setup and
// saves them when either is missing.
func SetupOrLoadKeys(ccs constraint.ConstraintSystem, dir string, height int, log zerolog.Logger) (groth16.ProvingKey, groth16.VerifyingKey, error) {
	pkPath, vkPath := KeyPaths(dir, height)
	pk, pkErr := LoadProvingKey(pkPath)
	vk, vkErr := LoadVerifyingKey(vkPath)
	if pkErr == nil && vkErr == nil {
		log.Debug().Str("pk", pkPath).Str("vk", vkPath).Msg("loaded groth16 keys")
		return pk, vk, nil
	}
	log.Info().Int("height", height).Int("constraints", ccs.GetNbConstraints()).Msg("running groth16 setup")
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, nil, fmt.Errorf("groth16 setup failed: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, err
	}
	if err := SaveProvingKey(pkPath, pk); err != nil {
		return nil, nil, err
	}
	if err := SaveVerifyingKey(vkPath, vk); err != nil {
		return nil, nil, err
	}
	return pk, vk, nil
}

// Prove proves tr against the compiled system and proving key.
func Prove(ccs constraint.ConstraintSystem, pk groth16.ProvingKey, tr *trace.Trace) (*Result, error) {
	w, err := frontend.NewWitness(Assign(tr), Curve.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("witness creation failed: %w", err)
	}
	proof, err := groth16.Prove(ccs, pk, w)
	if err != nil {
		return nil, fmt.Errorf("proof generation failed: %w", err)
	}
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("proof marshaling failed: %w", err)
	}

	public := make([]uint64, 0, columns.NumPublic)
	for _, v := range tr.Public.Flatten() {
		public = append(public, v.Uint64())
	}
	return &Result{Height: tr.Matrix.Height(), Public: public, Proof: buf.Bytes()}, nil
}

// Verify checks a result against the verifying key for its height.
func Verify(res *Result, vk groth16.VerifyingKey) error {
	if len(res.Public) != columns.NumPublic {
		return fmt.Errorf("%w: %d public values, want %d", ErrProof, len(res.Public), columns.NumPublic)
	}
	values := make([]trace.Element, len(res.Public))
	for i, v := range res.Public {
		values[i] = goldilocks.NewElement(v)
	}
	assignment := &AuctionCircuit{Public: PublicAssignment(values)}
	w, err := frontend.NewWitness(assignment, Curve.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("public witness creation failed: %w", err)
	}

	proof := groth16.NewProof(Curve)
	if _, err := proof.ReadFrom(bytes.NewReader(res.Proof)); err != nil {
		return fmt.Errorf("proof unmarshaling failed: %w", err)
	}
	if err := groth16.Verify(proof, vk, w); err != nil {
		return fmt.Errorf("%w: %v", ErrProof, err)
	}
	return nil
}
