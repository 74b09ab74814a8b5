package event

// SplitAmount computes the even per-participant share of a total, in the
// smallest currency unit, rounding down. The remainder
// (totalAmount mod participantCount) is deliberately not assigned to
// anyone, so for every valid input:
//
//	share*count <= totalAmount < share*count + count
func SplitAmount(totalAmount int64, participantCount int) int64 {
	return totalAmount / int64(participantCount)
}
