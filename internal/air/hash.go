package air

import "sealedbid/internal/columns"

// evalHash constrains the base-B rolling hash that binds every address and
// every ciphertext limb read before an error into one public commitment.
func evalHash[E any](b Builder[E]) {
	local, next := b.Local(), b.Next()
	base := b.Public().HashBase
	row := always(b)
	tr := row.when(b.IsTransition())

	// first row: the first address absorbed into an empty accumulator
	fr := row.when(b.IsFirstRow())
	value, lim := absorbAddress(b, &local.ReadAddress, b.Const(0), b.Const(1), base)
	fr.assertEq("hash/first_value", local.HashValue, value)
	fr.assertEq("hash/first_lim", local.HashLim, lim)

	// a bidder boundary absorbs all five address chunks at once
	nb := tr.when(next.NewBidder)
	value, lim = absorbAddress(b, &next.ReadAddress, local.HashValue, local.HashLim, base)
	nb.assertEq("hash/address_value", next.HashValue, value)
	nb.assertEq("hash/address_lim", next.HashLim, lim)

	// each limb read, unless the bid is already erroneous
	absorb := b.Mul(next.IsReading, not(b, next.IsError))
	rd := tr.when(absorb)
	rd.assertEq("hash/limb_value", next.HashValue, b.Add(local.HashValue, b.Mul(next.CurrentValue, local.HashLim)))
	rd.assertEq("hash/limb_lim", next.HashLim, b.Mul(local.HashLim, base))

	hold := tr.when(b.Sub(not(b, next.NewBidder), absorb))
	hold.assertEq("hash/hold_value", next.HashValue, local.HashValue)
	hold.assertEq("hash/hold_lim", next.HashLim, local.HashLim)

	// the address only changes at a bidder boundary
	keep := tr.when(not(b, next.NewBidder))
	for i := 0; i < columns.AddressBytes; i++ {
		keep.assertEq("hash/address_hold", next.ReadAddress[i], local.ReadAddress[i])
	}

	row.when(b.IsLastRow()).assertEq("hash/commitment", local.HashValue, b.Public().Commitment)
}

// absorbAddress returns the accumulator and positional weight after absorbing
// the five chunks of addr starting at weight lim.
func absorbAddress[E any](b Builder[E], addr *[columns.AddressBytes]E, value, lim, base E) (E, E) {
	for j := 0; j < columns.AddressChunks; j++ {
		value = b.Add(value, b.Mul(addressChunk(b, addr, j), lim))
		lim = b.Mul(lim, base)
	}
	return value, lim
}
