// builder.go - Backend protocol for evaluating the auction AIR.
//
// The AIR is written once against Builder. A backend chooses the expression
// type E: concrete Goldilocks elements (Checker), integer degrees
// (Degree) or emulated circuit variables (package snark).

package air

import "sealedbid/internal/columns"

// Algebra is the arithmetic the constraint evaluator needs from a backend.
type Algebra[E any] interface {
	Add(a, b E) E
	Sub(a, b E) E
	Mul(a, b E) E
	Const(v uint64) E
}

// Builder exposes two adjacent rows, the public values and the row selectors,
// and collects "must equal zero" assertions.
type Builder[E any] interface {
	Algebra[E]
	Local() *columns.Row[E]
	Next() *columns.Row[E]
	Public() *columns.PublicValues[E]
	IsFirstRow() E
	IsLastRow() E
	IsTransition() E
	AssertZero(name string, e E)
}

// gate is a selector-gated assertion context: every assertion made through it
// is multiplied by the selector first.
type gate[E any] struct {
	b     Builder[E]
	sel   E
	gated bool
}

func always[E any](b Builder[E]) gate[E] {
	return gate[E]{b: b}
}

func (g gate[E]) when(sel E) gate[E] {
	if g.gated {
		sel = g.b.Mul(g.sel, sel)
	}
	return gate[E]{b: g.b, sel: sel, gated: true}
}

func (g gate[E]) assertZero(name string, e E) {
	if g.gated {
		e = g.b.Mul(g.sel, e)
	}
	g.b.AssertZero(name, e)
}

func (g gate[E]) assertEq(name string, a, b E) {
	g.assertZero(name, g.b.Sub(a, b))
}

func (g gate[E]) assertOne(name string, a E) {
	g.assertZero(name, g.b.Sub(a, g.b.Const(1)))
}

func (g gate[E]) assertBool(name string, a E) {
	g.assertZero(name, g.b.Mul(a, g.b.Sub(a, g.b.Const(1))))
}

// expression helpers shared by the sub-circuits

func not[E any](b Builder[E], x E) E {
	return b.Sub(b.Const(1), x)
}

func sum[E any](b Builder[E], xs ...E) E {
	acc := b.Const(0)
	for _, x := range xs {
		acc = b.Add(acc, x)
	}
	return acc
}

// le32 recombines four little-endian bytes.
func le32[E any](b Builder[E], bytes [columns.LimbBytes]E) E {
	acc := bytes[columns.LimbBytes-1]
	for i := columns.LimbBytes - 2; i >= 0; i-- {
		acc = b.Add(b.Mul(acc, b.Const(256)), bytes[i])
	}
	return acc
}

// addressChunk is the j-th little-endian 4-byte chunk of an address.
func addressChunk[E any](b Builder[E], addr *[columns.AddressBytes]E, j int) E {
	var limb [columns.LimbBytes]E
	copy(limb[:], addr[j*columns.LimbBytes:(j+1)*columns.LimbBytes])
	return le32(b, limb)
}

// phase is the sum of the mutually exclusive phase flags of a row; a row
// where it is zero is a settle row.
func phase[E any](b Builder[E], r *columns.Row[E]) E {
	return sum(b, r.NewBidder, r.IsReading, r.IsExponent, r.ComputingWinner, r.IsDummy)
}

func settle[E any](b Builder[E], r *columns.Row[E]) E {
	return not(b, phase(b, r))
}
