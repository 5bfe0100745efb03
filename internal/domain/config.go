package domain

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// DefaultConfID is the id of the configuration group new decks use.
const DefaultConfID int64 = 1

// LeechAction is what happens to a card once it becomes a leech.
type LeechAction int

const (
	LeechSuspend LeechAction = iota
	LeechTagOnly
)

func (a LeechAction) String() string {
	if a == LeechSuspend {
		return "suspend"
	}
	return "tag-only"
}

// NewConfig controls how new cards are introduced and learnt.
type NewConfig struct {
	// PerDay is the new-card limit; default 20.
	PerDay int `json:"per_day" validate:"gte=0"`
	// Delays are the learning steps in minutes; default [1 10].
	Delays []float64 `json:"delays" validate:"dive,gt=0"`
	// Ints are the graduating and easy intervals in days; default [1 4].
	Ints [2]int `json:"ints"`
	// InitialFactor is the starting ease in permille; default 2500.
	InitialFactor int `json:"initial_factor" validate:"gte=1300"`
	// Bury hides new siblings of an answered card until tomorrow; default true.
	Bury bool `json:"bury"`
}

// ReviewConfig controls review intervals.
type ReviewConfig struct {
	// PerDay is the review limit; default 200.
	PerDay int `json:"per_day" validate:"gte=0"`
	// Ease4 is the easy bonus; default 1.3.
	Ease4 float64 `json:"ease4" validate:"gte=1"`
	// HardFactor multiplies the interval on hard; default 1.2.
	HardFactor float64 `json:"hard_factor" validate:"gt=0"`
	// IvlFct scales every computed interval; default 1.0.
	IvlFct float64 `json:"ivl_fct" validate:"gt=0"`
	// MaxIvl caps intervals in days; default 36500.
	MaxIvl int `json:"max_ivl" validate:"gte=1"`
	// Bury hides review siblings of an answered card until tomorrow; default true.
	Bury bool `json:"bury"`
	// NoFuzz disables interval fuzz; default false.
	NoFuzz bool `json:"no_fuzz"`
}

// LapseConfig controls what happens when a review card is forgotten.
type LapseConfig struct {
	// Delays are the relearning steps in minutes; default [10].
	Delays []float64 `json:"delays" validate:"dive,gt=0"`
	// Mult multiplies the interval on a lapse; default 0.
	Mult float64 `json:"mult" validate:"gte=0,lte=1"`
	// MinInt is the smallest interval after a lapse; default 1.
	MinInt int `json:"min_int" validate:"gte=1"`
	// LeechFails is the lapse count at which a card becomes a leech, 0 to
	// disable; default 8.
	LeechFails int `json:"leech_fails" validate:"gte=0"`
	// LeechAction defaults to LeechTagOnly.
	LeechAction LeechAction `json:"leech_action" validate:"oneof=0 1"`
}

// DeckConfig is the scheduling policy shared by a group of decks.
type DeckConfig struct {
	ID    int64        `json:"id"`
	Name  string       `json:"name" validate:"required"`
	New   NewConfig    `json:"new"`
	Rev   ReviewConfig `json:"rev"`
	Lapse LapseConfig  `json:"lapse"`
	// MaxTaken caps the answer time recorded per review; default 60s.
	MaxTaken time.Duration `json:"max_taken" validate:"gte=0"`
}

// DefaultDeckConfig returns the configuration new collections start with.
func DefaultDeckConfig() *DeckConfig {
	return &DeckConfig{
		ID:   DefaultConfID,
		Name: "Default",
		New: NewConfig{
			PerDay:        20,
			Delays:        []float64{1, 10},
			Ints:          [2]int{1, 4},
			InitialFactor: 2500,
			Bury:          true,
		},
		Rev: ReviewConfig{
			PerDay:     200,
			Ease4:      1.3,
			HardFactor: 1.2,
			IvlFct:     1.0,
			MaxIvl:     36500,
			Bury:       true,
		},
		Lapse: LapseConfig{
			Delays:      []float64{10},
			Mult:        0,
			MinInt:      1,
			LeechFails:  8,
			LeechAction: LeechTagOnly,
		},
		MaxTaken: 60 * time.Second,
	}
}

// Normalize replaces out-of-range values with their defaults so that a
// damaged configuration never blocks an answer.
func (c *DeckConfig) Normalize() {
	def := DefaultDeckConfig()
	if c.New.PerDay < 0 {
		c.New.PerDay = 0
	}
	if c.New.Ints[0] < 1 {
		c.New.Ints[0] = def.New.Ints[0]
	}
	if c.New.Ints[1] < 1 {
		c.New.Ints[1] = def.New.Ints[1]
	}
	if c.New.InitialFactor < 1300 {
		c.New.InitialFactor = def.New.InitialFactor
	}
	if c.Rev.PerDay < 0 {
		c.Rev.PerDay = 0
	}
	if c.Rev.Ease4 < 1 {
		c.Rev.Ease4 = def.Rev.Ease4
	}
	if c.Rev.HardFactor <= 0 {
		c.Rev.HardFactor = def.Rev.HardFactor
	}
	if c.Rev.IvlFct <= 0 {
		c.Rev.IvlFct = def.Rev.IvlFct
	}
	if c.Rev.MaxIvl < 1 {
		c.Rev.MaxIvl = def.Rev.MaxIvl
	}
	if c.Lapse.Mult < 0 || c.Lapse.Mult > 1 {
		c.Lapse.Mult = def.Lapse.Mult
	}
	if c.Lapse.MinInt < 1 {
		c.Lapse.MinInt = def.Lapse.MinInt
	}
	if c.Lapse.LeechFails < 0 {
		c.Lapse.LeechFails = 0
	}
	if c.MaxTaken <= 0 {
		c.MaxTaken = def.MaxTaken
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration field constraints.
func (c *DeckConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid deck config %q: %w", c.Name, err)
	}
	return nil
}
