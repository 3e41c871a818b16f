package air

import "sealedbid/internal/columns"

// evalAuction constrains the running maximum. Whether a bid becomes the new
// winner is decided by the witness (change_winner); the AIR only checks that
// the decision is consistent with the rest of the row.
func evalAuction[E any](b Builder[E]) {
	local, next := b.Local(), b.Next()
	row := always(b)
	tr := row.when(b.IsTransition())

	cw := row.when(local.ComputingWinner)
	cw.assertEq("auction/split", local.FinalValue,
		b.Add(b.Mul(local.BidAmount, b.Const(columns.AmountRadix)), local.Nonce))
	cw.assertZero("auction/error_never_wins", b.Mul(local.IsError, local.ChangeWinner))
	win := cw.when(local.ChangeWinner)
	win.assertEq("auction/winner_amount", local.WinnerAmount, local.BidAmount)
	for i := 0; i < columns.AddressBytes; i++ {
		win.assertEq("auction/winner_address", local.WinnerAddress[i], local.ReadAddress[i])
	}

	// a computing-winner row that keeps the previous winner
	keep := tr.when(next.ComputingWinner).when(not(b, next.ChangeWinner))
	keep.assertEq("auction/keep_amount", next.WinnerAmount, local.WinnerAmount)
	for i := 0; i < columns.AddressBytes; i++ {
		keep.assertEq("auction/keep_address", next.WinnerAddress[i], local.WinnerAddress[i])
	}

	// every other row leaves the auction registers untouched
	frozen := tr.when(not(b, next.ComputingWinner))
	frozen.assertEq("auction/frozen_bid", next.BidAmount, local.BidAmount)
	frozen.assertEq("auction/frozen_nonce", next.Nonce, local.Nonce)
	frozen.assertEq("auction/frozen_change", next.ChangeWinner, local.ChangeWinner)
	frozen.assertEq("auction/frozen_amount", next.WinnerAmount, local.WinnerAmount)
	for i := 0; i < columns.AddressBytes; i++ {
		frozen.assertEq("auction/frozen_address", next.WinnerAddress[i], local.WinnerAddress[i])
	}

	fr := row.when(b.IsFirstRow())
	fr.assertZero("auction/first_bid", local.BidAmount)
	fr.assertZero("auction/first_nonce", local.Nonce)
	fr.assertZero("auction/first_change", local.ChangeWinner)
	fr.assertZero("auction/first_amount", local.WinnerAmount)
	for i := 0; i < columns.AddressBytes; i++ {
		fr.assertZero("auction/first_address", local.WinnerAddress[i])
	}

	pub := b.Public()
	lr := row.when(b.IsLastRow())
	lr.assertEq("auction/public_amount", local.WinnerAmount, pub.WinnerAmount)
	for i := 0; i < columns.AddressBytes; i++ {
		lr.assertEq("auction/public_address", local.WinnerAddress[i], pub.WinnerAddress[i])
	}
}
