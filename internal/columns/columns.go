// columns.go - Row layout shared by the constraint evaluator and the trace generator.
//
// A Row is one time-step of the auction trace: 68 named registers. The order in
// which refs() lists the registers is the flat layout handed to every proving
// backend, so it is the only place where the order is written down.

package columns

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

const (
	LimbBytes     = 4  // ciphertext and plaintext bytes per limb
	AddressBytes  = 20 // bidder address length
	AddressChunks = AddressBytes / LimbBytes

	// NumCols is the trace width.
	NumCols = 68
	// NumPublic is the number of public values.
	NumPublic = 4 + AddressBytes

	HashBase    = 311     // base of the rolling hash
	AmountRadix = 1000    // final_value = bid_amount*AmountRadix + nonce
	GapFactor   = 1 << 16 // positional weight between decoded limbs
	MaxLimb     = 0xFFFF  // largest decoded limb that is not an error
)

// ErrWidth is returned when a flat slice does not match the layout width.
var ErrWidth = errors.New("columns: width mismatch")

// Row is the named view of one trace row.
type Row[T any] struct {
	// Control flags
	IsDummy         T
	NewBidder       T
	IsReading       T
	IsExponent      T
	ComputingWinner T
	IsError         T

	// Decryption
	ReadBytes     [LimbBytes]T
	CurrentValue  T
	QuotientValue T
	ExponentValue T
	OddExponent   T
	R             T
	QR            T
	DecodedBytes  [LimbBytes]T

	// Accounting
	Gap        T
	FinalValue T

	// Commitment
	ReadAddress [AddressBytes]T
	HashLim     T
	HashValue   T

	// Auction result
	BidAmount     T
	Nonce         T
	WinnerAmount  T
	ChangeWinner  T
	WinnerAddress [AddressBytes]T
}

// refs lists a pointer to every register in layout order.
func (r *Row[T]) refs() []*T {
	out := make([]*T, 0, NumCols)
	out = append(out, &r.IsDummy, &r.NewBidder, &r.IsReading, &r.IsExponent, &r.ComputingWinner, &r.IsError)
	for i := range r.ReadBytes {
		out = append(out, &r.ReadBytes[i])
	}
	out = append(out, &r.CurrentValue, &r.QuotientValue, &r.ExponentValue, &r.OddExponent, &r.R, &r.QR)
	for i := range r.DecodedBytes {
		out = append(out, &r.DecodedBytes[i])
	}
	out = append(out, &r.Gap, &r.FinalValue)
	for i := range r.ReadAddress {
		out = append(out, &r.ReadAddress[i])
	}
	out = append(out, &r.HashLim, &r.HashValue)
	out = append(out, &r.BidAmount, &r.Nonce, &r.WinnerAmount, &r.ChangeWinner)
	for i := range r.WinnerAddress {
		out = append(out, &r.WinnerAddress[i])
	}
	return out
}

// Flatten returns the row as a slice of NumCols elements.
func (r *Row[T]) Flatten() []T {
	return r.AppendTo(make([]T, 0, NumCols))
}

// AppendTo appends the row to dst in layout order.
func (r *Row[T]) AppendTo(dst []T) []T {
	for _, p := range r.refs() {
		dst = append(dst, *p)
	}
	return dst
}

// Replace overwrites every register of r with the registers of other.
func (r *Row[T]) Replace(other Row[T]) {
	*r = other
}

// FromSlice builds a row from exactly NumCols elements.
func FromSlice[T any](s []T) (Row[T], error) {
	var r Row[T]
	if len(s) != NumCols {
		return r, fmt.Errorf("%w: got %d elements, want %d", ErrWidth, len(s), NumCols)
	}
	for i, p := range r.refs() {
		*p = s[i]
	}
	return r, nil
}

// Map converts every register of r with f.
func Map[T, U any](r *Row[T], f func(T) U) Row[U] {
	var out Row[U]
	dst := out.refs()
	for i, p := range r.refs() {
		*dst[i] = f(*p)
	}
	return out
}

// Names returns the column names in layout order, e.g. "read_bytes[2]".
func Names() []string {
	return fieldNames(reflect.TypeOf(Row[struct{}]{}))
}

// PublicValues is the named view of the public inputs.
type PublicValues[T any] struct {
	Modulus       T
	Commitment    T
	HashBase      T
	WinnerAmount  T
	WinnerAddress [AddressBytes]T
}

func (p *PublicValues[T]) refs() []*T {
	out := make([]*T, 0, NumPublic)
	out = append(out, &p.Modulus, &p.Commitment, &p.HashBase, &p.WinnerAmount)
	for i := range p.WinnerAddress {
		out = append(out, &p.WinnerAddress[i])
	}
	return out
}

// Flatten returns the public values in layout order.
func (p *PublicValues[T]) Flatten() []T {
	out := make([]T, 0, NumPublic)
	for _, v := range p.refs() {
		out = append(out, *v)
	}
	return out
}

// PublicFromSlice builds public values from exactly NumPublic elements.
func PublicFromSlice[T any](s []T) (PublicValues[T], error) {
	var p PublicValues[T]
	if len(s) != NumPublic {
		return p, fmt.Errorf("%w: got %d public values, want %d", ErrWidth, len(s), NumPublic)
	}
	for i, v := range p.refs() {
		*v = s[i]
	}
	return p, nil
}

// MapPublic converts every public value of p with f.
func MapPublic[T, U any](p *PublicValues[T], f func(T) U) PublicValues[U] {
	var out PublicValues[U]
	dst := out.refs()
	for i, v := range p.refs() {
		*dst[i] = f(*v)
	}
	return out
}

// fieldNames expands struct fields (and array elements) into snake_case names
// in declaration order.
func fieldNames(t reflect.Type) []string {
	var names []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := snake(f.Name)
		if f.Type.Kind() == reflect.Array {
			for j := 0; j < f.Type.Len(); j++ {
				names = append(names, fmt.Sprintf("%s[%d]", name, j))
			}
			continue
		}
		names = append(names, name)
	}
	return names
}

func snake(s string) string {
	switch s {
	case "R":
		return "r"
	case "QR":
		return "q_r"
	}
	var b strings.Builder
	for i, c := range s {
		if c >= 'A' && c <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			c += 'a' - 'A'
		}
		b.WriteRune(c)
	}
	return b.String()
}
