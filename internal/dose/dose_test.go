package dose

import (
	"testing"

	"telegram-cycle-coach/internal/models"
)

func TestForPhase(t *testing.T) {
	targets := Targets{Coffee: 3, Nicotine: 6}

	if target, threshold := targets.ForPhase(models.PhaseCoffee); target != 3 || threshold != 4 {
		t.Errorf("coffee = (%d, %d), want (3, 4)", target, threshold)
	}
	if target, threshold := targets.ForPhase(models.PhaseNicotine); target != 6 || threshold != 8 {
		t.Errorf("nicotine = (%d, %d), want (6, 8)", target, threshold)
	}
}

func TestValidRanges(t *testing.T) {
	for _, n := range []int{0, 11, -1} {
		if ValidCoffee(n) {
			t.Errorf("ValidCoffee(%d) = true", n)
		}
	}
	for _, n := range []int{1, 10} {
		if !ValidCoffee(n) {
			t.Errorf("ValidCoffee(%d) = false", n)
		}
	}
	for _, n := range []int{0, 21} {
		if ValidNicotine(n) {
			t.Errorf("ValidNicotine(%d) = true", n)
		}
	}
	for _, n := range []int{1, 20} {
		if !ValidNicotine(n) {
			t.Errorf("ValidNicotine(%d) = false", n)
		}
	}
}
