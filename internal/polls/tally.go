package polls

import (
	"fmt"

	"github.com/quickpoll/backend/internal/models"
)

// Tally counts recorded votes per option index.
func Tally(p *models.Poll) []int {
	out := make([]int, len(p.Options))
	for _, v := range p.Votes {
		if v.OptionIndex >= 0 && v.OptionIndex < len(out) {
			out[v.OptionIndex]++
		}
	}
	return out
}

// VerifyTally reports ErrTallyDrift when any stored counter differs from Tally.
func VerifyTally(p *models.Poll) error {
	derived := Tally(p)
	total := 0
	for i, opt := range p.Options {
		if opt.Votes != derived[i] {
			return fmt.Errorf("%w: option %d has counter %d but %d votes", ErrTallyDrift, i, opt.Votes, derived[i])
		}
		total += opt.Votes
	}
	if total != len(p.Votes) {
		return fmt.Errorf("%w: counters sum to %d but %d votes recorded", ErrTallyDrift, total, len(p.Votes))
	}
	return nil
}
