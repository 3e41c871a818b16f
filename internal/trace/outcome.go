package trace

import (
	"github.com/ethereum/go-ethereum/common"

	"sealedbid/internal/columns"
)

// Outcome is what a trace says about one bidder, read off its
// computing-winner row.
type Outcome struct {
	Bidder  int
	Address common.Address
	Amount  uint64
	Nonce   uint64
	Errored bool
	// Leading reports whether this bid held the maximum after it was seen.
	Leading bool
}

// Outcomes lists one entry per bidder, in input order.
func (t *Trace) Outcomes() []Outcome {
	var out []Outcome
	for i := 0; i < t.Rows; i++ {
		r := t.Matrix.View(i)
		if !isSet(r.ComputingWinner) {
			continue
		}
		out = append(out, Outcome{
			Bidder:  len(out),
			Address: address(&r.ReadAddress),
			Amount:  r.BidAmount.Uint64(),
			Nonce:   r.Nonce.Uint64(),
			Errored: isSet(r.IsError),
			Leading: isSet(r.ChangeWinner),
		})
	}
	return out
}

// Summary describes a generated trace.
type Summary struct {
	Bidders int
	Errored int
	Rows    int
	Height  int
	Winner  common.Address
	Amount  uint64
}

// Summary collects the trace shape and its outcome.
func (t *Trace) Summary() Summary {
	s := Summary{Rows: t.Rows, Height: t.Matrix.Height()}
	for _, o := range t.Outcomes() {
		s.Bidders++
		if o.Errored {
			s.Errored++
		}
	}
	s.Winner, s.Amount = t.Winner()
	return s
}

// Winner returns the public winning address and amount. A zero address
// means no valid bid exceeded zero.
func (t *Trace) Winner() (common.Address, uint64) {
	return address(&t.Public.WinnerAddress), t.Public.WinnerAmount.Uint64()
}

func address(cells *[columns.AddressBytes]Element) common.Address {
	var a common.Address
	for i := range cells {
		a[i] = byte(cells[i].Uint64())
	}
	return a
}
