// Package air is the row-transition constraint system of the sealed-bid
// auction trace.
//
// Eval composes four groups of selector-gated assertions over a pair of
// adjacent rows:
//   - row shape: boolean flags and mutually exclusive phases,
//   - sequencing: which phase may follow which,
//   - the decryption, hashing and auction-logic sub-circuits.
//
// Eval holds no state. Backends may call it concurrently on disjoint row
// pairs.
package air

// Eval asserts every constraint of the auction AIR through b.
func Eval[E any](b Builder[E]) {
	evalShape(b)
	evalSequencing(b)
	evalDecryption(b)
	evalHash(b)
	evalAuction(b)
}

func evalShape[E any](b Builder[E]) {
	local := b.Local()
	row := always(b)

	row.assertBool("shape/is_dummy", local.IsDummy)
	row.assertBool("shape/new_bidder", local.NewBidder)
	row.assertBool("shape/is_reading", local.IsReading)
	row.assertBool("shape/is_exponent", local.IsExponent)
	row.assertBool("shape/computing_winner", local.ComputingWinner)
	row.assertBool("shape/is_error", local.IsError)
	row.assertBool("shape/change_winner", local.ChangeWinner)
	row.assertBool("shape/odd_exponent", local.OddExponent)
	row.assertBool("shape/one_phase", phase(b, local))

	row.when(not(b, local.IsExponent)).assertZero("shape/odd_off_exponent", local.OddExponent)
	row.assertZero("shape/exponent_without_error", b.Mul(local.IsExponent, local.IsError))
}

func evalSequencing[E any](b Builder[E]) {
	local, next := b.Local(), b.Next()
	row := always(b)
	tr := row.when(b.IsTransition())

	row.when(b.IsFirstRow()).assertOne("seq/first_new_bidder", local.NewBidder)
	row.when(b.IsLastRow()).assertOne("seq/last_finished", b.Add(local.ComputingWinner, local.IsDummy))

	tr.when(local.NewBidder).assertOne("seq/new_bidder_reads", next.IsReading)
	tr.when(local.IsReading).when(not(b, local.IsError)).assertOne("seq/read_exponent", next.IsExponent)
	tr.when(local.IsExponent).assertZero("seq/exponent_continues",
		sum(b, next.NewBidder, next.IsReading, next.ComputingWinner, next.IsDummy))
	tr.when(next.IsExponent).assertOne("seq/exponent_follows_read", b.Add(local.IsReading, local.IsExponent))
	tr.when(settle(b, next)).assertOne("seq/settle_follows_exponent", local.IsExponent)
	tr.when(next.IsReading).assertZero("seq/read_follows",
		sum(b, local.IsExponent, local.ComputingWinner, local.IsDummy))
	tr.when(next.ComputingWinner).assertZero("seq/winner_follows",
		sum(b, local.NewBidder, local.IsExponent, local.ComputingWinner, local.IsDummy))
	tr.when(local.ComputingWinner).assertOne("seq/winner_then_next", b.Add(next.NewBidder, next.IsDummy))
	tr.when(next.NewBidder).assertOne("seq/new_bidder_follows_winner", local.ComputingWinner)
	tr.when(local.IsDummy).assertOne("seq/dummy_sticky", next.IsDummy)
}
