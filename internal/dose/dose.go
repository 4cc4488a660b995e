// Package dose maps per-user consumption targets to their tolerance
// thresholds. Thresholds are derived, never stored.
package dose

import "telegram-cycle-coach/internal/models"

// Allowed target ranges, enforced by the dose-set dialogue.
const (
	CoffeeMin   = 1
	CoffeeMax   = 10
	NicotineMin = 1
	NicotineMax = 20
)

// Threshold slack per phase: the warning line sits above the target.
const (
	coffeeSlack   = 1
	nicotineSlack = 2
)

// Targets holds the configured daily targets for both phases.
type Targets struct {
	Coffee   int
	Nicotine int
}

// FromUser extracts the targets from a stored user row.
func FromUser(u models.User) Targets {
	return Targets{Coffee: u.CoffeeTarget, Nicotine: u.NicotineTarget}
}

// ForPhase returns (target, threshold) for the given phase.
func (t Targets) ForPhase(p models.Phase) (int, int) {
	if p == models.PhaseNicotine {
		return t.Nicotine, t.Nicotine + nicotineSlack
	}
	return t.Coffee, t.Coffee + coffeeSlack
}

// ValidCoffee reports whether n is an acceptable coffee target.
func ValidCoffee(n int) bool { return n >= CoffeeMin && n <= CoffeeMax }

// ValidNicotine reports whether n is an acceptable nicotine target.
func ValidNicotine(n int) bool { return n >= NicotineMin && n <= NicotineMax }
