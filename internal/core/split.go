package core

// SplitResult is the two-way monetary split of one amount.
type SplitResult struct {
	Walker Money
	Dea    Money
}

// Split maps an attribution tag and an amount to the two-party split.
// AMBOS is a 60/40 walker/dea share, AMBOS_I inverts it. Unknown tags
// split to zero on both sides rather than failing. Walker takes the
// rounded share and Dea the remainder, so the parts always sum back to
// the input amount.
func Split(tag Attribution, amount Money) SplitResult {
	switch tag {
	case Walker:
		return SplitResult{Walker: amount}
	case Dea:
		return SplitResult{Dea: amount}
	case Ambos:
		w := percentShare(amount.Cents, 60)
		return SplitResult{Walker: Money{Cents: w}, Dea: Money{Cents: amount.Cents - w}}
	case AmbosI:
		w := percentShare(amount.Cents, 40)
		return SplitResult{Walker: Money{Cents: w}, Dea: Money{Cents: amount.Cents - w}}
	default:
		return SplitResult{}
	}
}

// percentShare rounds cents*pct/100 half away from zero.
func percentShare(cents int64, pct int64) int64 {
	p := cents * pct
	if p >= 0 {
		return (p + 50) / 100
	}
	return (p - 50) / 100
}
