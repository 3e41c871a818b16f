// circuit.go - The auction AIR as a gnark circuit over an emulated Goldilocks field.
//
// Each row pair of a fixed-height trace is fed to air.Eval through
// circuitBuilder. Row selectors are known at compile time, so constraints
// gated off on a row are folded away before they reach the constraint system.

package snark

import (
	"errors"
	"fmt"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/math/emulated"
	"github.com/consensys/gnark/std/math/emulated/emparams"

	"sealedbid/internal/air"
	"sealedbid/internal/columns"
	"sealedbid/internal/trace"
)

// Goldilocks is the emulated trace field.
type Goldilocks = emparams.Goldilocks

type element = *emulated.Element[Goldilocks]

// ErrHeight is returned for traces too short to carry a transition.
var ErrHeight = errors.New("snark: trace height must be a power of two >= 2")

// AuctionCircuit proves that a private trace of fixed height satisfies the
// auction AIR for the public values.
type AuctionCircuit struct {
	Public [columns.NumPublic]emulated.Element[Goldilocks] `gnark:",public"`
	Trace  [][columns.NumCols]emulated.Element[Goldilocks]
}

// NewCircuit returns an empty circuit shaped for the given trace height.
func NewCircuit(height int) *AuctionCircuit {
	return &AuctionCircuit{
		Trace: make([][columns.NumCols]emulated.Element[Goldilocks], height),
	}
}

// Define implements frontend.Circuit.
func (c *AuctionCircuit) Define(api frontend.API) error {
	height := len(c.Trace)
	if height < 2 || height&(height-1) != 0 {
		return fmt.Errorf("%w: got %d", ErrHeight, height)
	}
	f, err := emulated.NewField[Goldilocks](api)
	if err != nil {
		return fmt.Errorf("new goldilocks field: %w", err)
	}

	pub, err := columns.PublicFromSlice(refs(c.Public[:]))
	if err != nil {
		return err
	}
	rows := make([]columns.Row[element], height)
	for i := range c.Trace {
		if rows[i], err = columns.FromSlice(refs(c.Trace[i][:])); err != nil {
			return err
		}
	}

	b := &circuitBuilder{f: f, zero: f.Zero(), one: f.One(), public: pub}
	for i := 0; i < height; i++ {
		b.local, b.next = rows[i], rows[(i+1)%height]
		b.first = b.selector(i == 0)
		b.last = b.selector(i == height-1)
		b.transition = b.selector(i != height-1)
		air.Eval[element](b)
	}
	return nil
}

func refs(cells []emulated.Element[Goldilocks]) []element {
	out := make([]element, len(cells))
	for i := range cells {
		out[i] = &cells[i]
	}
	return out
}

// circuitBuilder implements air.Builder with emulated field elements.
// Products and sums involving the cached zero and one are simplified by
// pointer identity.
type circuitBuilder struct {
	f           *emulated.Field[Goldilocks]
	zero, one   element
	local, next columns.Row[element]
	public      columns.PublicValues[element]

	first, last, transition element
}

func (b *circuitBuilder) selector(on bool) element {
	if on {
		return b.one
	}
	return b.zero
}

func (b *circuitBuilder) Add(x, y element) element {
	switch {
	case x == b.zero:
		return y
	case y == b.zero:
		return x
	}
	return b.f.Add(x, y)
}

func (b *circuitBuilder) Sub(x, y element) element {
	if y == b.zero {
		return x
	}
	return b.f.Sub(x, y)
}

func (b *circuitBuilder) Mul(x, y element) element {
	switch {
	case x == b.zero || y == b.zero:
		return b.zero
	case x == b.one:
		return y
	case y == b.one:
		return x
	}
	return b.f.Mul(x, y)
}

func (b *circuitBuilder) Const(v uint64) element {
	switch v {
	case 0:
		return b.zero
	case 1:
		return b.one
	}
	return b.f.NewElement(v)
}

func (b *circuitBuilder) Local() *columns.Row[element]           { return &b.local }
func (b *circuitBuilder) Next() *columns.Row[element]            { return &b.next }
func (b *circuitBuilder) Public() *columns.PublicValues[element] { return &b.public }
func (b *circuitBuilder) IsFirstRow() element                    { return b.first }
func (b *circuitBuilder) IsLastRow() element                     { return b.last }
func (b *circuitBuilder) IsTransition() element                  { return b.transition }

func (b *circuitBuilder) AssertZero(_ string, e element) {
	if e == b.zero {
		return
	}
	b.f.AssertIsEqual(e, b.zero)
}

// Assign builds the full witness assignment for tr.
func Assign(tr *trace.Trace) *AuctionCircuit {
	m := tr.Matrix
	c := NewCircuit(m.Height())
	for i := 0; i < m.Height(); i++ {
		row := m.Row(i)
		for j := range row {
			c.Trace[i][j] = emulated.ValueOf[Goldilocks](row[j].Uint64())
		}
	}
	c.Public = PublicAssignment(tr.Public.Flatten())
	return c
}

// PublicAssignment converts flat public values.
func PublicAssignment(values []trace.Element) [columns.NumPublic]emulated.Element[Goldilocks] {
	var out [columns.NumPublic]emulated.Element[Goldilocks]
	for i := range values {
		out[i] = emulated.ValueOf[Goldilocks](values[i].Uint64())
	}
	return out
}
