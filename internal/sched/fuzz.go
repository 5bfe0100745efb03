package sched

// FuzzRange returns the inclusive range an interval of ivl days is fuzzed
// within. The spread grows with the interval: 25% below a week, 15% (at
// least 2 days) below a month and 5% (at least 4 days) beyond.
func FuzzRange(ivl int) (int, int) {
	if ivl < 2 {
		return 1, 1
	}
	if ivl == 2 {
		return 2, 3
	}
	var fuzz int
	switch {
	case ivl < 7:
		fuzz = int(float64(ivl) * 0.25)
	case ivl < 30:
		fuzz = max(2, int(float64(ivl)*0.15))
	default:
		fuzz = max(4, int(float64(ivl)*0.05))
	}
	fuzz = max(fuzz, 1)
	return ivl - fuzz, ivl + fuzz
}

func (s *Scheduler) fuzzedIvl(ivl int) int {
	lo, hi := FuzzRange(ivl)
	return lo + s.rng.Intn(hi-lo+1)
}
