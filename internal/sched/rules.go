package sched

// Rules selects between the legacy and current scheduling semantics.
type Rules struct {
	Version int
	// RelearningType marks lapsed cards as TypeRelearning while they go
	// through the relearning steps. Without it they keep TypeReview.
	RelearningType bool
	// DayLearnFirst honours the collection option that shows day-learning
	// cards before reviews.
	DayLearnFirst bool
	// HardIncludesLateness computes the hard interval as
	// (ivl + daysLate/4) * 1.2 instead of ivl * hardFactor.
	HardIncludesLateness bool
	// WalkReviewCounts limits review counts per deck with the walking
	// count instead of applying only the selected deck's limit.
	WalkReviewCounts bool
}

var (
	// RulesV1 reproduces the legacy scheduler.
	RulesV1 = Rules{
		Version:              1,
		HardIncludesLateness: true,
		WalkReviewCounts:     true,
	}
	// RulesV2 is the current scheduler.
	RulesV2 = Rules{
		Version:        2,
		RelearningType: true,
		DayLearnFirst:  true,
	}
)

// RulesFor returns the rule set for a scheduler version, defaulting to V2.
func RulesFor(version int) Rules {
	if version == 1 {
		return RulesV1
	}
	return RulesV2
}
