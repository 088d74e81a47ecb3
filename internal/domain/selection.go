package domain

// Selection is the scoring table produced by an item selector.
// Questions, QuestionNames and Values are parallel slices covering every
// unanswered item in ascending index order.
type Selection struct {
	// Name is the criterion the values were computed with, e.g. "EPV".
	Name string

	Questions     []int
	QuestionNames []string
	Values        []float64

	// Item is the index of the item to administer next.
	Item int
}

// LookAheadRow pairs a hypothetical response with the item that would be
// selected after it.
type LookAheadRow struct {
	ResponseOption int
	NextItem       int
}
