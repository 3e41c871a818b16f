// input.go - Generator inputs and their validation.
//
// Every malformed-input condition is reported before the first row is built.

package trace

import (
	"errors"
	"fmt"
	"math"

	"sealedbid/internal/columns"
)

var (
	ErrNoBids           = errors.New("trace: no bids")
	ErrAddressLength    = errors.New("trace: address must be 20 bytes")
	ErrCiphertextLength = errors.New("trace: ciphertext must be a non-empty multiple of 4 bytes")
	ErrModulus          = errors.New("trace: modulus must be in [2, 2^32)")
	ErrExponent         = errors.New("trace: exponent must be non-zero")
	ErrTooManyLimbs     = errors.New("trace: too many ciphertext limbs")
)

// MaxLimbs bounds the limbs of one bid so that the recombined plaintext,
// below 2^(16*MaxLimbs), never wraps the field.
const MaxLimbs = 3

// Bid is one sealed bid: the bidder address and the encrypted amount, one
// 4-byte little-endian ciphertext limb per 16-bit plaintext limb.
type Bid struct {
	Address    []byte
	Ciphertext []byte
}

// Key is the decryption key shared by all bids. The modulus is public, the
// exponent is private.
//
// The modulus is bounded by 2^32 so that the square of any 4-byte limb, and
// any product of two residues, stays below the Goldilocks modulus: the
// quotient/remainder identities then hold over the integers.
type Key struct {
	Modulus  uint64
	Exponent uint64
}

// Validate checks the key range.
func (k Key) Validate() error {
	if k.Modulus < 2 || k.Modulus > math.MaxUint32 {
		return fmt.Errorf("%w: got %d", ErrModulus, k.Modulus)
	}
	if k.Exponent == 0 {
		return ErrExponent
	}
	return nil
}

// Validate checks the address and ciphertext lengths and the limb count.
func (b Bid) Validate() error {
	if len(b.Address) != columns.AddressBytes {
		return fmt.Errorf("%w: got %d", ErrAddressLength, len(b.Address))
	}
	if len(b.Ciphertext) == 0 || len(b.Ciphertext)%columns.LimbBytes != 0 {
		return fmt.Errorf("%w: got %d", ErrCiphertextLength, len(b.Ciphertext))
	}
	if b.Limbs() > MaxLimbs {
		return fmt.Errorf("%w: got %d, max %d", ErrTooManyLimbs, b.Limbs(), MaxLimbs)
	}
	return nil
}

// Limbs returns the number of ciphertext limbs.
func (b Bid) Limbs() int {
	return len(b.Ciphertext) / columns.LimbBytes
}

func validate(bids []Bid, key Key) error {
	if len(bids) == 0 {
		return ErrNoBids
	}
	if err := key.Validate(); err != nil {
		return err
	}
	for i, b := range bids {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("bid %d: %w", i, err)
		}
	}
	return nil
}
