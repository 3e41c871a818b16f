// Package trace builds the execution trace of a sealed-bid auction.
//
// Generation is a left-to-right fold over the bids. Each step takes the last
// emitted row as state and returns the rows of one bidder window:
//
//	new bidder
//	per limb: reading, one exponent row per bit of d, settle
//	computing winner
//
// A limb that decrypts above 0xFFFF raises is_error on its settle row; the
// bidder's remaining limbs are then single pass-through reading rows. The
// hash accumulator and the running winner thread through every bidder.
// The result is padded with dummy rows to a power-of-two height.
package trace

import (
	"encoding/binary"
	"math/bits"

	"github.com/consensys/gnark-crypto/field/goldilocks"

	"sealedbid/internal/columns"
)

// Element is a Goldilocks field element.
type Element = goldilocks.Element

// Row is a trace row over Goldilocks.
type Row = columns.Row[goldilocks.Element]

// Public is the public-value view over Goldilocks.
type Public = columns.PublicValues[goldilocks.Element]

// Trace is a generated trace with its public values.
type Trace struct {
	Matrix *Matrix
	Public Public
	// Rows is the number of rows before padding.
	Rows int
}

// Generate validates the inputs and builds the padded trace.
func Generate(bids []Bid, key Key) (*Trace, error) {
	if err := validate(bids, key); err != nil {
		return nil, err
	}

	capacity := 0
	for _, b := range bids {
		capacity += maxBidderRows(b, key)
	}
	rows := make([]Row, 0, capacity)

	st := initialState()
	for _, b := range bids {
		var window []Row
		st, window = bidderStep(st, b, key)
		rows = append(rows, window...)
	}

	height := nextPowerOfTwo(len(rows))
	m := NewMatrix(height)
	for i := range rows {
		m.SetRow(i, &rows[i])
	}
	pad := dummyRow(st.last)
	for i := len(rows); i < height; i++ {
		m.SetRow(i, &pad)
	}

	return &Trace{
		Matrix: m,
		Public: publicValues(&st.last, key),
		Rows:   len(rows),
	}, nil
}

// RowsPerLimb is the number of rows spent decrypting one limb.
func RowsPerLimb(key Key) int {
	return 2 + bits.Len64(key.Exponent)
}

func maxBidderRows(b Bid, key Key) int {
	return 2 + b.Limbs()*RowsPerLimb(key)
}

// auctionState is the value threaded through the fold.
type auctionState struct {
	last Row
}

// initialState is a virtual row before the first bidder: empty accumulator
// at weight 1, no winner.
func initialState() auctionState {
	var st auctionState
	st.last.HashLim = fe(1)
	return st
}

// bidderStep emits one bidder's window.
func bidderStep(st auctionState, bid Bid, key Key) (auctionState, []Row) {
	rows := make([]Row, 0, maxBidderRows(bid, key))
	emit := func(r Row) {
		rows = append(rows, r)
		st.last = r
	}

	emit(newBidderRow(&st.last, bid.Address, key))
	for l := 0; l < bid.Limbs(); l++ {
		var limb [columns.LimbBytes]byte
		copy(limb[:], bid.Ciphertext[l*columns.LimbBytes:])

		emit(readingRow(&st.last, limb, key))
		if isSet(st.last.IsError) {
			continue
		}
		for !st.last.ExponentValue.IsZero() {
			emit(exponentRow(&st.last, key.Modulus))
		}
		emit(settleRow(&st.last))
	}
	emit(winnerRow(&st.last))
	return st, rows
}

func newBidderRow(prev *Row, address []byte, key Key) Row {
	var r Row
	r.NewBidder = fe(1)
	r.ExponentValue = fe(key.Exponent)
	r.R = fe(1)
	r.Gap = fe(1)
	for i, b := range address {
		r.ReadAddress[i] = fe(uint64(b))
	}
	r.HashValue, r.HashLim = prev.HashValue, prev.HashLim
	for j := 0; j < columns.AddressChunks; j++ {
		chunk := binary.LittleEndian.Uint32(address[j*columns.LimbBytes:])
		r.HashValue = add(r.HashValue, mul(fe(uint64(chunk)), r.HashLim))
		r.HashLim = mul(r.HashLim, fe(columns.HashBase))
	}
	carryAuction(&r, prev)
	return r
}

func readingRow(prev *Row, limb [columns.LimbBytes]byte, key Key) Row {
	r := *prev
	clearPhase(&r)
	r.IsReading = fe(1)
	for i, b := range limb {
		r.ReadBytes[i] = fe(uint64(b))
	}
	r.CurrentValue = fe(uint64(binary.LittleEndian.Uint32(limb[:])))
	r.QuotientValue = fe(0)
	r.ExponentValue = fe(key.Exponent)
	r.OddExponent = fe(0)
	r.R = fe(1)
	r.QR = fe(0)
	r.DecodedBytes = [columns.LimbBytes]goldilocks.Element{}
	if isSet(prev.NewBidder) {
		r.Gap = fe(1)
	} else {
		r.Gap = mul(prev.Gap, fe(columns.GapFactor))
	}
	if !isSet(r.IsError) {
		r.HashValue = add(prev.HashValue, mul(r.CurrentValue, prev.HashLim))
		r.HashLim = mul(prev.HashLim, fe(columns.HashBase))
	}
	return r
}

// exponentRow peels the low bit of the remaining exponent, squares the
// running value and multiplies it into r when the bit is set. Every product
// is below 2^64 - 2^33 + 1 (operands below 2^32), so the integer
// quotient/remainder split is also a valid field identity.
func exponentRow(prev *Row, modulus uint64) Row {
	r := *prev
	clearPhase(&r)
	r.IsExponent = fe(1)

	e := prev.ExponentValue.Uint64()
	r.ExponentValue = fe(e >> 1)
	r.OddExponent = fe(e & 1)

	cur := prev.CurrentValue.Uint64()
	sq := cur * cur
	r.QuotientValue = fe(sq / modulus)
	r.CurrentValue = fe(sq % modulus)

	if e&1 == 1 {
		prod := prev.R.Uint64() * cur
		r.QR = fe(prod / modulus)
		r.R = fe(prod % modulus)
	} else {
		r.QR = fe(0)
	}
	return r
}

func settleRow(prev *Row) Row {
	r := *prev
	clearPhase(&r)
	value := prev.R.Uint64()
	r.CurrentValue = prev.R
	r.QuotientValue = fe(0)
	r.ExponentValue = fe(0)
	r.OddExponent = fe(0)
	r.QR = fe(0)

	var decoded [columns.LimbBytes]byte
	binary.LittleEndian.PutUint32(decoded[:], uint32(value))
	for i, b := range decoded {
		r.DecodedBytes[i] = fe(uint64(b))
	}

	if value > columns.MaxLimb {
		r.IsError = fe(1)
		return r
	}
	r.FinalValue = add(prev.FinalValue, mul(r.CurrentValue, prev.Gap))
	return r
}

// winnerRow splits final_value into amount and nonce and updates the running
// maximum. Only a strictly larger, non-erroneous bid takes over, so ties keep
// the earlier bidder.
func winnerRow(prev *Row) Row {
	r := *prev
	clearPhase(&r)
	r.ComputingWinner = fe(1)

	final := prev.FinalValue.Uint64()
	bid := final / columns.AmountRadix
	r.BidAmount = fe(bid)
	r.Nonce = fe(final % columns.AmountRadix)

	r.ChangeWinner = fe(0)
	if !isSet(r.IsError) && bid > prev.WinnerAmount.Uint64() {
		r.ChangeWinner = fe(1)
		r.WinnerAmount = r.BidAmount
		r.WinnerAddress = r.ReadAddress
	}
	return r
}

// dummyRow repeats the last row with only is_dummy among the phase flags.
func dummyRow(prev Row) Row {
	r := prev
	clearPhase(&r)
	r.IsDummy = fe(1)
	return r
}

func carryAuction(r, prev *Row) {
	r.BidAmount = prev.BidAmount
	r.Nonce = prev.Nonce
	r.WinnerAmount = prev.WinnerAmount
	r.ChangeWinner = prev.ChangeWinner
	r.WinnerAddress = prev.WinnerAddress
}

func clearPhase(r *Row) {
	r.NewBidder = fe(0)
	r.IsReading = fe(0)
	r.IsExponent = fe(0)
	r.ComputingWinner = fe(0)
	r.IsDummy = fe(0)
}

func publicValues(last *Row, key Key) Public {
	return Public{
		Modulus:       fe(key.Modulus),
		Commitment:    last.HashValue,
		HashBase:      fe(columns.HashBase),
		WinnerAmount:  last.WinnerAmount,
		WinnerAddress: last.WinnerAddress,
	}
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

func fe(v uint64) goldilocks.Element {
	return goldilocks.NewElement(v)
}

func add(a, b goldilocks.Element) goldilocks.Element {
	var r goldilocks.Element
	r.Add(&a, &b)
	return r
}

func mul(a, b goldilocks.Element) goldilocks.Element {
	var r goldilocks.Element
	r.Mul(&a, &b)
	return r
}

func isSet(e goldilocks.Element) bool {
	return !e.IsZero()
}
