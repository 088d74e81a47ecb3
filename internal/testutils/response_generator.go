package testutils

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/ahrav/go-catsurv/infrastructure/irt"
	"github.com/ahrav/go-catsurv/internal/domain"
)

// GenerateItemBank draws a synthetic bank of size items. Polytomous items
// get categories response options; binary families ignore categories.
func GenerateItemBank(model domain.ModelType, size, categories int, seed uint64) []domain.Item {
	rng := rand.New(rand.NewPCG(seed, seed^0x5851f42d4c957f2d))
	thresholds := max(categories-1, 1)
	if model.IsBinary() {
		thresholds = 1
	}

	items := make([]domain.Item, size)
	for i := range items {
		difficulty := make([]float64, thresholds)
		for k := range difficulty {
			difficulty[k] = rng.NormFloat64()
		}
		slices.Sort(difficulty)
		if model == domain.ModelGRM {
			// Distinct ascending thresholds.
			for k := 1; k < len(difficulty); k++ {
				if difficulty[k] <= difficulty[k-1] {
					difficulty[k] = difficulty[k-1] + 0.05
				}
			}
		}

		item := domain.Item{
			Name:           fmt.Sprintf("Q%d", i+1),
			Discrimination: 0.5 + 1.5*rng.Float64(),
			Difficulty:     difficulty,
		}
		if model == domain.ModelTPM {
			item.Guessing = 0.25 * rng.Float64()
		}
		items[i] = item
	}
	return items
}

// GenerateResponseDataset draws size respondents with standard normal
// abilities and samples a complete response profile for each from the
// model's category probabilities. The seed makes generation reproducible.
func GenerateResponseDataset(model domain.ModelType, items []domain.Item, size int, seed uint64) (*ResponseDataset, error) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	dataset := &ResponseDataset{
		Metadata: DatasetMetadata{
			Name:        "Simulated Respondents",
			Version:     "1.0.0",
			Source:      "Generated for testing",
			Description: fmt.Sprintf("%d respondents with N(0,1) abilities answering %d %s items.", size, len(items), model),
			Seed:        seed,
			Size:        size,
		},
		Model:      model,
		Items:      slices.Clone(items),
		TrueThetas: make([]float64, size),
		Rows:       make([][]int, size),
	}

	lowest := 1
	if model.IsBinary() {
		lowest = 0
	}

	for r := range size {
		theta := rng.NormFloat64()
		row := make([]int, len(items))
		for i, item := range items {
			c, err := irt.CategoriesAt(model, item, theta)
			if err != nil {
				return nil, fmt.Errorf("respondent %d, item %d: %w", r, i, err)
			}
			row[i] = lowest + drawCategory(rng, c.P)
		}
		dataset.TrueThetas[r] = theta
		dataset.Rows[r] = row
	}
	return dataset, nil
}

// drawCategory samples an index from the probability vector p.
func drawCategory(rng *rand.Rand, p []float64) int {
	u := rng.Float64()
	cum := 0.0
	for k, pk := range p {
		cum += pk
		if u < cum {
			return k
		}
	}
	return len(p) - 1
}
