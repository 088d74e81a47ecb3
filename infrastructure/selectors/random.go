package selectors

import (
	"math/rand/v2"

	"github.com/ahrav/go-catsurv/internal/domain"
	"github.com/ahrav/go-catsurv/internal/ports"
)

var _ ports.Selector = (*Random)(nil)

// Random picks an unanswered item uniformly at random. Its scoring table
// holds zeros.
type Random struct {
	base
	rng *rand.Rand
}

// NewRandom creates a random selector. A nil rng uses an unseeded source.
func NewRandom(s Session, rng *rand.Rand) *Random {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Random{base: base{s}, rng: rng}
}

// Type returns domain.SelectionRandom.
func (s *Random) Type() domain.SelectionType { return domain.SelectionRandom }

// SelectItem returns an all-zero table and a uniformly drawn item.
func (s *Random) SelectItem() (domain.Selection, error) {
	sel, err := s.selectBy(domain.SelectionRandom, false, func(int) (float64, error) { return 0, nil })
	if err != nil {
		return domain.Selection{}, err
	}
	sel.Item = sel.Questions[s.rng.IntN(len(sel.Questions))]
	return sel, nil
}
