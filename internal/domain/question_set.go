package domain

import (
	"fmt"
	"math"
	"slices"
)

// Unanswered marks an item the respondent has not answered.
const Unanswered = math.MinInt32

// QuestionSet is the item bank together with one respondent's progress.
// Every item index is in exactly one of ApplicableRows (answered) and
// NonapplicableRows (unanswered). Mutate answers only through Answer,
// Unanswer, ResetAnswers and Restore so the partition stays consistent.
//
// A QuestionSet is not safe for concurrent use.
type QuestionSet struct {
	Model ModelType
	Items []Item

	// Answers holds one response code per item, or Unanswered.
	Answers []int

	// ApplicableRows lists answered item indices in the order they were answered.
	ApplicableRows []int

	// NonapplicableRows lists unanswered item indices.
	NonapplicableRows []int

	// AllExtreme is true when at least one item is answered and the answers
	// are all at the lowest option or all at the highest option.
	AllExtreme bool
}

// NewQuestionSet builds a question set and validates the answer vector
// against each item's response scale.
func NewQuestionSet(model ModelType, items []Item, answers []int) (*QuestionSet, error) {
	if !model.Valid() {
		return nil, NewConfigError("model", string(model), ErrInvalidConfiguration)
	}
	if len(items) == 0 {
		return nil, NewConfigError("items", "", fmt.Errorf("question set has no items"))
	}
	if answers == nil {
		answers = make([]int, len(items))
		for i := range answers {
			answers[i] = Unanswered
		}
	}
	if len(answers) != len(items) {
		return nil, NewConfigError("answers", fmt.Sprint(len(answers)),
			fmt.Errorf("%w: %d answers for %d items", ErrShapeMismatch, len(answers), len(items)))
	}

	qs := &QuestionSet{
		Model:   model,
		Items:   slices.Clone(items),
		Answers: make([]int, len(items)),
	}
	if err := qs.ResetAnswers(answers); err != nil {
		return nil, err
	}
	return qs, nil
}

// Len returns the number of items in the bank.
func (qs *QuestionSet) Len() int { return len(qs.Items) }

// Categories returns the number of response options for an item.
func (qs *QuestionSet) Categories(item int) int {
	if qs.Model.IsBinary() {
		return 2
	}
	return len(qs.Items[item].Difficulty) + 1
}

// ResponseOptions returns the valid response codes for an item, lowest first.
func (qs *QuestionSet) ResponseOptions(item int) []int {
	k := qs.Categories(item)
	opts := make([]int, k)
	for i := range opts {
		opts[i] = qs.lowestOption() + i
	}
	return opts
}

func (qs *QuestionSet) lowestOption() int {
	if qs.Model.IsBinary() {
		return 0
	}
	return 1
}

// CategoryIndex maps a response code to a 0-based category index.
func (qs *QuestionSet) CategoryIndex(response int) int { return response - qs.lowestOption() }

// IsAnswered reports whether item has a recorded response.
func (qs *QuestionSet) IsAnswered(item int) bool { return qs.Answers[item] != Unanswered }

// CheckItem returns ErrItemOutOfRange if item does not index the bank.
func (qs *QuestionSet) CheckItem(item int) error {
	if item < 0 || item >= len(qs.Items) {
		return fmt.Errorf("%w: item=%d, items=%d", ErrItemOutOfRange, item, len(qs.Items))
	}
	return nil
}

func (qs *QuestionSet) checkResponse(item, response int) error {
	lo := qs.lowestOption()
	hi := lo + qs.Categories(item) - 1
	if response < lo || response > hi {
		return fmt.Errorf("%w: item=%d, response=%d, allowed=[%d,%d]", ErrInvalidResponse, item, response, lo, hi)
	}
	return nil
}

// Answer records response for item, moving it into ApplicableRows if it was
// unanswered.
func (qs *QuestionSet) Answer(item, response int) error {
	if err := qs.CheckItem(item); err != nil {
		return err
	}
	if err := qs.checkResponse(item, response); err != nil {
		return err
	}
	if !qs.IsAnswered(item) {
		qs.NonapplicableRows = slices.DeleteFunc(qs.NonapplicableRows, func(i int) bool { return i == item })
		qs.ApplicableRows = append(qs.ApplicableRows, item)
	}
	qs.Answers[item] = response
	qs.refreshExtreme()
	return nil
}

// Unanswer clears the response for item, moving it back to NonapplicableRows.
func (qs *QuestionSet) Unanswer(item int) error {
	if err := qs.CheckItem(item); err != nil {
		return err
	}
	if !qs.IsAnswered(item) {
		return nil
	}
	qs.ApplicableRows = slices.DeleteFunc(qs.ApplicableRows, func(i int) bool { return i == item })
	qs.NonapplicableRows = append(qs.NonapplicableRows, item)
	qs.Answers[item] = Unanswered
	qs.refreshExtreme()
	return nil
}

// ResetAnswers replaces the whole answer vector and rebuilds the partition
// in ascending index order. The question set is left unchanged on error.
func (qs *QuestionSet) ResetAnswers(answers []int) error {
	if len(answers) != len(qs.Items) {
		return fmt.Errorf("%w: %d answers for %d items", ErrShapeMismatch, len(answers), len(qs.Items))
	}
	for i, a := range answers {
		if a == Unanswered {
			continue
		}
		if err := qs.checkResponse(i, a); err != nil {
			return err
		}
	}

	qs.ApplicableRows = qs.ApplicableRows[:0]
	qs.NonapplicableRows = qs.NonapplicableRows[:0]
	for i, a := range answers {
		qs.Answers[i] = a
		if a == Unanswered {
			qs.NonapplicableRows = append(qs.NonapplicableRows, i)
		} else {
			qs.ApplicableRows = append(qs.ApplicableRows, i)
		}
	}
	qs.refreshExtreme()
	return nil
}

func (qs *QuestionSet) refreshExtreme() {
	if len(qs.ApplicableRows) == 0 {
		qs.AllExtreme = false
		return
	}
	allLow, allHigh := true, true
	lo := qs.lowestOption()
	for _, i := range qs.ApplicableRows {
		a := qs.Answers[i]
		if a != lo {
			allLow = false
		}
		if a != lo+qs.Categories(i)-1 {
			allHigh = false
		}
	}
	qs.AllExtreme = allLow || allHigh
}

// Checkpoint captures the answer state so it can be restored exactly.
type Checkpoint struct {
	answers       []int
	applicable    []int
	nonapplicable []int
	allExtreme    bool
}

// Checkpoint returns a snapshot of the answers and the partition.
func (qs *QuestionSet) Checkpoint() Checkpoint {
	return Checkpoint{
		answers:       slices.Clone(qs.Answers),
		applicable:    slices.Clone(qs.ApplicableRows),
		nonapplicable: slices.Clone(qs.NonapplicableRows),
		allExtreme:    qs.AllExtreme,
	}
}

// Restore puts the question set back into the state captured by cp,
// including the order of both partitions. A checkpoint can be restored
// any number of times.
func (qs *QuestionSet) Restore(cp Checkpoint) {
	qs.Answers = slices.Clone(cp.answers)
	qs.ApplicableRows = slices.Clone(cp.applicable)
	qs.NonapplicableRows = slices.Clone(cp.nonapplicable)
	qs.AllExtreme = cp.allExtreme
}

// Clone returns an independent deep copy.
func (qs *QuestionSet) Clone() *QuestionSet {
	items := make([]Item, len(qs.Items))
	for i, it := range qs.Items {
		it.Difficulty = slices.Clone(it.Difficulty)
		items[i] = it
	}
	return &QuestionSet{
		Model:             qs.Model,
		Items:             items,
		Answers:           slices.Clone(qs.Answers),
		ApplicableRows:    slices.Clone(qs.ApplicableRows),
		NonapplicableRows: slices.Clone(qs.NonapplicableRows),
		AllExtreme:        qs.AllExtreme,
	}
}

// Names returns the display names of the given items, falling back to
// a 1-based "Q<n>" label.
func (qs *QuestionSet) Names(items []int) []string {
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = qs.Items[item].Name
		if names[i] == "" {
			names[i] = fmt.Sprintf("Q%d", item+1)
		}
	}
	return names
}
