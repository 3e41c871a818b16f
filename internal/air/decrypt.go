package air

import "sealedbid/internal/columns"

// evalDecryption constrains the per-limb square-and-multiply decryption, the
// limb recombination into final_value and the error flag.
func evalDecryption[E any](b Builder[E]) {
	local, next := b.Local(), b.Next()
	n := b.Public().Modulus
	row := always(b)
	tr := row.when(b.IsTransition())

	// new bidder: fresh decryption registers
	nb := row.when(local.NewBidder)
	nb.assertOne("decrypt/new_bidder_r", local.R)
	nb.assertOne("decrypt/new_bidder_gap", local.Gap)
	nb.assertZero("decrypt/new_bidder_current", local.CurrentValue)
	nb.assertZero("decrypt/new_bidder_quotient", local.QuotientValue)
	nb.assertZero("decrypt/new_bidder_odd", local.OddExponent)
	nb.assertZero("decrypt/new_bidder_q_r", local.QR)
	nb.assertZero("decrypt/new_bidder_error", local.IsError)
	nb.assertZero("decrypt/new_bidder_final", local.FinalValue)
	for i := 0; i < columns.LimbBytes; i++ {
		nb.assertZero("decrypt/new_bidder_read_bytes", local.ReadBytes[i])
		nb.assertZero("decrypt/new_bidder_decoded_bytes", local.DecodedBytes[i])
	}

	// reading: the limb value is the little-endian ciphertext bytes
	rd := row.when(local.IsReading)
	rd.assertEq("decrypt/read_value", local.CurrentValue, le32(b, local.ReadBytes))
	rd.assertOne("decrypt/read_r", local.R)
	rd.assertZero("decrypt/read_quotient", local.QuotientValue)
	rd.assertZero("decrypt/read_odd", local.OddExponent)
	rd.assertZero("decrypt/read_q_r", local.QR)
	for i := 0; i < columns.LimbBytes; i++ {
		rd.assertZero("decrypt/read_decoded_bytes", local.DecodedBytes[i])
	}

	// settle: exponent consumed, value equals the decoded bytes, and a
	// non-zero high half marks the bid as erroneous
	st := row.when(settle(b, local))
	st.assertZero("decrypt/settle_exponent", local.ExponentValue)
	st.assertEq("decrypt/settle_value", local.CurrentValue, le32(b, local.DecodedBytes))
	st.assertZero("decrypt/overflow_byte2", b.Mul(local.DecodedBytes[2], not(b, local.IsError)))
	st.assertZero("decrypt/overflow_byte3", b.Mul(local.DecodedBytes[3], not(b, local.IsError)))

	// first limb read of a bidder
	first := tr.when(local.NewBidder).when(next.IsReading)
	first.assertOne("decrypt/first_read_gap", next.Gap)
	first.assertEq("decrypt/first_read_exponent", next.ExponentValue, local.ExponentValue)

	// exponent step: peel the low bit, square, and fold the bit into r
	ex := tr.when(next.IsExponent)
	ex.assertEq("decrypt/exponent_shift", local.ExponentValue,
		b.Add(b.Mul(next.ExponentValue, b.Const(2)), next.OddExponent))
	ex.assertEq("decrypt/square",
		b.Mul(local.CurrentValue, local.CurrentValue),
		b.Add(b.Mul(next.QuotientValue, n), next.CurrentValue))
	tr.when(next.OddExponent).assertEq("decrypt/multiply",
		b.Mul(local.R, local.CurrentValue),
		b.Add(b.Mul(next.QR, n), next.R))
	even := ex.when(not(b, next.OddExponent))
	even.assertEq("decrypt/even_r", next.R, local.R)
	even.assertZero("decrypt/even_q_r", next.QR)

	// settle: take the exponentiation result
	ns := tr.when(settle(b, next))
	ns.assertEq("decrypt/settle_result", next.CurrentValue, local.R)
	ns.assertZero("decrypt/settle_after_last_bit", local.ExponentValue)

	// gap
	later := b.Mul(next.IsReading, not(b, local.NewBidder))
	tr.when(later).assertEq("decrypt/gap_shift", next.Gap, b.Mul(local.Gap, b.Const(columns.GapFactor)))
	hold := sum(b, next.IsExponent, settle(b, next), next.ComputingWinner, next.IsDummy)
	tr.when(hold).assertEq("decrypt/gap_hold", next.Gap, local.Gap)

	// final value accumulates decoded limbs, weighted by gap
	tr.when(settle(b, next)).when(not(b, next.IsError)).assertEq("decrypt/final_accumulate",
		next.FinalValue, b.Add(local.FinalValue, b.Mul(next.CurrentValue, local.Gap)))
	frozen := b.Add(sum(b, next.IsReading, next.IsExponent, next.ComputingWinner, next.IsDummy),
		b.Mul(settle(b, next), next.IsError))
	tr.when(frozen).assertEq("decrypt/final_hold", next.FinalValue, local.FinalValue)

	// error: sticky within a bidder, raised only on a settle row
	tr.when(local.IsError).when(not(b, next.NewBidder)).assertOne("decrypt/error_sticky", next.IsError)
	tr.when(next.IsError).when(not(b, local.IsError)).assertZero("decrypt/error_raised_on_settle",
		phase(b, next))
}
