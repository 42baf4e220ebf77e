package offers

import (
	"github.com/angelmondragon/quizfunnel-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quizfunnel-backend/pkg/errors"
)

const DefaultMinQuizDepth = 5

// Sequencer decides which offer tier a visitor sees. Tiers only move forward,
// one step per exit signal, and only after the visitor answered enough quiz
// questions.
type Sequencer struct {
	minDepth int
}

func NewSequencer(minDepth int) *Sequencer {
	if minDepth <= 0 {
		minDepth = DefaultMinQuizDepth
	}
	return &Sequencer{minDepth: minDepth}
}

// Transition is the result of feeding one signal to the sequencer.
type Transition struct {
	OfferTier enums.OfferTier `json:"offerTier"`
	Advanced  bool            `json:"advanced"`
}

// Next applies signal to current. It never returns a tier earlier than
// current; at the final tier every signal is a no-op.
func (s *Sequencer) Next(current enums.OfferTier, quizDepth int, signal enums.ExitSignal) (Transition, error) {
	if !current.IsValid() {
		return Transition{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown offer tier").
			WithDetails(map[string]string{"currentTier": string(current)})
	}
	if !signal.IsValid() {
		return Transition{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown exit signal").
			WithDetails(map[string]string{"signal": string(signal)})
	}
	if quizDepth < 0 {
		return Transition{}, pkgerrors.New(pkgerrors.CodeValidation, "quiz depth must not be negative").
			WithDetails(map[string]string{"quizDepth": "must be >= 0"})
	}

	if quizDepth < s.minDepth {
		return Transition{OfferTier: current}, nil
	}
	next, ok := current.Next()
	return Transition{OfferTier: next, Advanced: ok}, nil
}

// MinDepth reports the configured quiz depth gate.
func (s *Sequencer) MinDepth() int {
	return s.minDepth
}
