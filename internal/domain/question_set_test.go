package domain

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const na = Unanswered

func binaryItems(n int) []Item {
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{Discrimination: 1, Difficulty: []float64{float64(i) - 1}}
	}
	return items
}

func gradedItems() []Item {
	return []Item{
		{Name: "a", Discrimination: 1, Difficulty: []float64{-1, 0, 1}},
		{Name: "b", Discrimination: 1, Difficulty: []float64{-0.5, 0.5}},
		{Name: "c", Discrimination: 1, Difficulty: []float64{0}},
	}
}

// assertPartition checks that every item is in exactly one row set and that
// the answer vector agrees with the partition.
func assertPartition(t *testing.T, qs *QuestionSet) {
	t.Helper()
	seen := make([]int, qs.Len())
	for _, i := range qs.ApplicableRows {
		seen[i]++
		assert.NotEqual(t, Unanswered, qs.Answers[i], "answered row %d has no answer", i)
	}
	for _, i := range qs.NonapplicableRows {
		seen[i]++
		assert.Equal(t, Unanswered, qs.Answers[i], "unanswered row %d has an answer", i)
	}
	for i, n := range seen {
		assert.Equal(t, 1, n, "item %d appears %d times", i, n)
	}
}

func TestNewQuestionSet(t *testing.T) {
	tests := []struct {
		name       string
		model      ModelType
		items      []Item
		answers    []int
		wantErr    error
		applicable []int
		allExtreme bool
	}{
		{
			name:       "nil answers are all unanswered",
			model:      ModelLTM,
			items:      binaryItems(3),
			answers:    nil,
		},
		{
			name:       "mixed binary",
			model:      ModelLTM,
			items:      binaryItems(4),
			answers:    []int{1, na, 0, na},
			applicable: []int{0, 2},
		},
		{
			name:       "all correct is extreme",
			model:      ModelTPM,
			items:      binaryItems(3),
			answers:    []int{1, 1, na},
			applicable: []int{0, 1},
			allExtreme: true,
		},
		{
			name:       "graded highest on every item is extreme",
			model:      ModelGRM,
			items:      gradedItems(),
			answers:    []int{4, 3, 2},
			applicable: []int{0, 1, 2},
			allExtreme: true,
		},
		{
			name:       "graded lowest and highest mixed is not extreme",
			model:      ModelGPCM,
			items:      gradedItems(),
			answers:    []int{1, 3, na},
			applicable: []int{0, 1},
		},
		{
			name:    "shape mismatch",
			model:   ModelLTM,
			items:   binaryItems(3),
			answers: []int{1, 0},
			wantErr: ErrShapeMismatch,
		},
		{
			name:    "binary response out of range",
			model:   ModelLTM,
			items:   binaryItems(2),
			answers: []int{2, 0},
			wantErr: ErrInvalidResponse,
		},
		{
			name:    "graded zero is not a response",
			model:   ModelGRM,
			items:   gradedItems(),
			answers: []int{0, na, na},
			wantErr: ErrInvalidResponse,
		},
		{
			name:    "unknown model",
			model:   ModelType("rasch"),
			items:   binaryItems(1),
			wantErr: ErrInvalidConfiguration,
		},
		{
			name:    "empty bank",
			model:   ModelLTM,
			wantErr: ErrInvalidConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qs, err := NewQuestionSet(tt.model, tt.items, tt.answers)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if len(tt.applicable) == 0 {
				assert.Empty(t, qs.ApplicableRows)
			} else {
				assert.Equal(t, tt.applicable, qs.ApplicableRows)
			}
			assert.Equal(t, tt.allExtreme, qs.AllExtreme)
			assertPartition(t, qs)
		})
	}
}

func TestQuestionSetAnswerAndUnanswer(t *testing.T) {
	qs, err := NewQuestionSet(ModelGRM, gradedItems(), nil)
	require.NoError(t, err)

	require.NoError(t, qs.Answer(1, 2))
	assert.Equal(t, []int{1}, qs.ApplicableRows)
	assert.Equal(t, []int{0, 2}, qs.NonapplicableRows)
	assert.False(t, qs.AllExtreme)
	assertPartition(t, qs)

	// Re-answering changes the value without duplicating the row.
	require.NoError(t, qs.Answer(1, 3))
	assert.Equal(t, []int{1}, qs.ApplicableRows)
	assert.True(t, qs.AllExtreme)

	assert.ErrorIs(t, qs.Answer(0, 5), ErrInvalidResponse)
	assert.ErrorIs(t, qs.Answer(7, 1), ErrItemOutOfRange)
	assert.ErrorIs(t, qs.Answer(-1, 1), ErrItemOutOfRange)

	require.NoError(t, qs.Unanswer(1))
	assert.Empty(t, qs.ApplicableRows)
	assert.False(t, qs.AllExtreme)
	assertPartition(t, qs)

	require.NoError(t, qs.Unanswer(1), "unanswering twice is a no-op")
}

func TestQuestionSetResponseOptions(t *testing.T) {
	binary, err := NewQuestionSet(ModelLTM, binaryItems(1), nil)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, binary.ResponseOptions(0))
	assert.Equal(t, 1, binary.CategoryIndex(1))

	graded, err := NewQuestionSet(ModelGRM, gradedItems(), nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, graded.ResponseOptions(0))
	assert.Equal(t, []int{1, 2}, graded.ResponseOptions(2))
	assert.Equal(t, 0, graded.CategoryIndex(1))
}

func TestQuestionSetCheckpointRestore(t *testing.T) {
	qs, err := NewQuestionSet(ModelLTM, binaryItems(5), []int{1, na, 0, na, na})
	require.NoError(t, err)
	require.NoError(t, qs.Answer(4, 1))
	before := qs.Clone()

	cp := qs.Checkpoint()
	require.NoError(t, qs.Answer(1, 0))
	require.NoError(t, qs.Unanswer(0))
	require.NoError(t, qs.ResetAnswers([]int{na, na, na, na, na}))

	qs.Restore(cp)
	assert.Equal(t, before, qs)
	assertPartition(t, qs)

	// The same checkpoint can be restored again after further mutation.
	require.NoError(t, qs.Answer(3, 1))
	qs.Restore(cp)
	assert.Equal(t, before, qs)
}

func TestQuestionSetResetAnswersRejectsBadRowsAtomically(t *testing.T) {
	qs, err := NewQuestionSet(ModelLTM, binaryItems(3), []int{1, 0, na})
	require.NoError(t, err)
	before := qs.Clone()

	assert.ErrorIs(t, qs.ResetAnswers([]int{1, 1}), ErrShapeMismatch)
	assert.ErrorIs(t, qs.ResetAnswers([]int{1, 3, 0}), ErrInvalidResponse)
	assert.Equal(t, before, qs)
}

func TestQuestionSetCloneIsIndependent(t *testing.T) {
	qs, err := NewQuestionSet(ModelGPCM, gradedItems(), []int{2, na, na})
	require.NoError(t, err)

	clone := qs.Clone()
	require.NoError(t, clone.Answer(1, 1))
	clone.Items[0].Difficulty[0] = 99

	assert.Equal(t, []int{0}, qs.ApplicableRows)
	assert.Equal(t, -1.0, qs.Items[0].Difficulty[0])
}

func TestQuestionSetNames(t *testing.T) {
	qs, err := NewQuestionSet(ModelGRM, append(gradedItems(), Item{Discrimination: 1, Difficulty: []float64{0}}), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "Q4"}, qs.Names([]int{0, 3}))
}

func TestEnums(t *testing.T) {
	for _, m := range ModelTypes() {
		assert.True(t, m.Valid())
	}
	for _, e := range EstimationTypes() {
		assert.True(t, e.Valid())
	}
	for _, s := range SelectionTypes() {
		assert.True(t, s.Valid())
	}
	assert.Len(t, SelectionTypes(), 10)
	assert.False(t, EstimationType("BME").Valid())
	assert.False(t, SelectionType("").Valid())
	assert.True(t, slices.ContainsFunc(ModelTypes(), ModelType.IsBinary))
	assert.False(t, IsSet(Unset))
	assert.True(t, IsSet(0))
	assert.True(t, math.IsNaN(NoStoppingRules().SEThreshold))
}
