package offers

import (
	"testing"

	"github.com/angelmondragon/quizfunnel-backend/pkg/enums"
)

func TestSequencerTransitions(t *testing.T) {
	seq := NewSequencer(5)

	cases := []struct {
		name     string
		current  enums.OfferTier
		depth    int
		want     enums.OfferTier
		advanced bool
	}{
		{"signal before min depth stays", enums.OfferTierRegular, 4, enums.OfferTierRegular, false},
		{"first signal after depth advances", enums.OfferTierRegular, 5, enums.OfferTierExitDiscount, true},
		{"second signal advances to final", enums.OfferTierExitDiscount, 12, enums.OfferTierFinalDiscount, true},
		{"signal at final is a no-op", enums.OfferTierFinalDiscount, 12, enums.OfferTierFinalDiscount, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := seq.Next(tc.current, tc.depth, enums.ExitSignalPointerExitTop)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.OfferTier != tc.want || got.Advanced != tc.advanced {
				t.Fatalf("got %+v, want tier=%s advanced=%v", got, tc.want, tc.advanced)
			}
		})
	}
}

func TestSequencerNeverMovesBackward(t *testing.T) {
	seq := NewSequencer(0)
	tier := enums.OfferTierRegular
	for i := 0; i < 10; i++ {
		got, err := seq.Next(tier, 20, enums.ExitSignalBackNavigation)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.OfferTier.Index() < tier.Index() {
			t.Fatalf("moved backward from %s to %s", tier, got.OfferTier)
		}
		tier = got.OfferTier
	}
	if tier != enums.OfferTierFinalDiscount {
		t.Fatalf("expected to settle at final tier, got %s", tier)
	}
}

func TestSequencerRejectsUnknownInput(t *testing.T) {
	seq := NewSequencer(5)
	if _, err := seq.Next(enums.OfferTierRegular, 6, enums.ExitSignal("scroll")); err == nil {
		t.Fatal("expected unknown signal to fail")
	}
	if _, err := seq.Next(enums.OfferTier("vip"), 6, enums.ExitSignalTabReturn); err == nil {
		t.Fatal("expected unknown tier to fail")
	}
	if _, err := seq.Next(enums.OfferTierRegular, -1, enums.ExitSignalTabReturn); err == nil {
		t.Fatal("expected negative depth to fail")
	}
	if NewSequencer(0).MinDepth() != DefaultMinQuizDepth {
		t.Fatal("zero min depth should fall back to default")
	}
}
