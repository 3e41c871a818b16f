// keys.go - Toy RSA keys and limb-wise sealing of bid amounts.
//
// The keys are sized for the auction trace: the modulus stays below 2^32 so
// that every ciphertext limb fits 4 bytes. They offer no security.

package bids

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/big"

	"sealedbid/internal/columns"
	"sealedbid/internal/trace"
)

// PublicExponent is used by GenerateKey.
const PublicExponent = 65537

var (
	ErrLimbTooLarge = errors.New("bids: plaintext limb not below modulus")
	ErrAmountRange  = errors.New("bids: amount does not fit the requested limbs")
	ErrNonceRange   = errors.New("bids: nonce must be below 1000")
)

// PublicKey seals bids.
type PublicKey struct {
	Modulus  uint64 `json:"modulus"`
	Exponent uint64 `json:"exponent"`
}

// PrivateKey opens bids. Its Key is what the trace generator consumes.
type PrivateKey struct {
	PublicKey
	D uint64 `json:"d"`
}

// Key returns the generator key (public modulus, private exponent).
func (k *PrivateKey) Key() trace.Key {
	return trace.Key{Modulus: k.Modulus, Exponent: k.D}
}

// GenerateKey draws two distinct 16-bit primes and derives d = e^-1 mod phi.
func GenerateKey(rand io.Reader) (*PrivateKey, error) {
	e := big.NewInt(PublicExponent)
	one := big.NewInt(1)
	for attempt := 0; attempt < 64; attempt++ {
		p, err := prime16(rand)
		if err != nil {
			return nil, err
		}
		q, err := prime16(rand)
		if err != nil {
			return nil, err
		}
		if p.Cmp(q) == 0 {
			continue
		}
		phi := new(big.Int).Mul(new(big.Int).Sub(p, one), new(big.Int).Sub(q, one))
		d := new(big.Int).ModInverse(e, phi)
		if d == nil {
			continue
		}
		n := new(big.Int).Mul(p, q)
		return &PrivateKey{
			PublicKey: PublicKey{Modulus: n.Uint64(), Exponent: PublicExponent},
			D:         d.Uint64(),
		}, nil
	}
	return nil, errors.New("bids: no usable prime pair found")
}

// prime16 returns a prime in [2^15, 2^16).
func prime16(rand io.Reader) (*big.Int, error) {
	for {
		var buf [2]byte
		if _, err := io.ReadFull(rand, buf[:]); err != nil {
			return nil, fmt.Errorf("read randomness: %w", err)
		}
		v := binary.LittleEndian.Uint16(buf[:]) | 0x8001
		p := new(big.Int).SetUint64(uint64(v))
		if p.ProbablyPrime(20) {
			return p, nil
		}
	}
}

// Seal encodes amount*1000+nonce as little-endian 16-bit limbs and encrypts
// each limb into a 4-byte little-endian ciphertext limb.
func Seal(amount, nonce uint64, limbs int, pub PublicKey) ([]byte, error) {
	if nonce >= columns.AmountRadix {
		return nil, fmt.Errorf("%w: %d", ErrNonceRange, nonce)
	}
	if limbs <= 0 || limbs > trace.MaxLimbs {
		return nil, fmt.Errorf("%w: %d limbs", ErrAmountRange, limbs)
	}
	if amount > (uint64(1)<<(16*limbs)-1-nonce)/columns.AmountRadix {
		return nil, fmt.Errorf("%w: %d in %d limbs", ErrAmountRange, amount, limbs)
	}
	plain := amount*columns.AmountRadix + nonce

	n := new(big.Int).SetUint64(pub.Modulus)
	e := new(big.Int).SetUint64(pub.Exponent)
	out := make([]byte, 0, limbs*columns.LimbBytes)
	for l := 0; l < limbs; l++ {
		m := (plain >> (16 * l)) & columns.MaxLimb
		if m >= pub.Modulus {
			return nil, fmt.Errorf("%w: limb %d is %d, modulus %d", ErrLimbTooLarge, l, m, pub.Modulus)
		}
		c := new(big.Int).Exp(new(big.Int).SetUint64(m), e, n)
		out = binary.LittleEndian.AppendUint32(out, uint32(c.Uint64()))
	}
	return out, nil
}

// Open decrypts every ciphertext limb. It does not apply the 0xFFFF limb
// bound; see Recombine.
func Open(ciphertext []byte, priv *PrivateKey) ([]uint64, error) {
	if len(ciphertext) == 0 || len(ciphertext)%columns.LimbBytes != 0 {
		return nil, fmt.Errorf("%w: got %d", trace.ErrCiphertextLength, len(ciphertext))
	}
	n := new(big.Int).SetUint64(priv.Modulus)
	d := new(big.Int).SetUint64(priv.D)
	limbs := make([]uint64, 0, len(ciphertext)/columns.LimbBytes)
	for off := 0; off < len(ciphertext); off += columns.LimbBytes {
		c := binary.LittleEndian.Uint32(ciphertext[off:])
		m := new(big.Int).Exp(new(big.Int).SetUint64(uint64(c)), d, n)
		limbs = append(limbs, m.Uint64())
	}
	return limbs, nil
}

// Recombine folds decoded limbs into the plaintext amount and nonce.
func Recombine(limbs []uint64) (amount, nonce uint64) {
	var v uint64
	for i := len(limbs) - 1; i >= 0; i-- {
		v = v<<16 + limbs[i]
	}
	return v / columns.AmountRadix, v % columns.AmountRadix
}
