package testutils

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ahrav/go-catsurv/internal/domain"
)

// MinimumDatasetSize is the smallest number of respondents a dataset must
// hold to be used for recovery benchmarks.
const MinimumDatasetSize = 10

// ResponseDataset is a bank of items together with simulated respondents
// whose true abilities are known, for checking how well a session
// configuration recovers them.
type ResponseDataset struct {
	// Metadata provides information about the dataset itself.
	Metadata DatasetMetadata `json:"metadata"`

	// Model is the IRT family the responses were drawn from.
	Model domain.ModelType `json:"model"`

	// Items is the calibrated bank.
	Items []domain.Item `json:"items"`

	// TrueThetas holds the generating ability of each respondent.
	TrueThetas []float64 `json:"true_thetas"`

	// Rows holds one complete response profile per respondent.
	Rows [][]int `json:"rows"`
}

// DatasetMetadata contains provenance information about a dataset.
type DatasetMetadata struct {
	// Name identifies the dataset.
	Name string `json:"name"`

	// Version tracks dataset revisions.
	Version string `json:"version"`

	// Source indicates where the dataset originated.
	Source string `json:"source"`

	// Description provides details about the dataset contents.
	Description string `json:"description"`

	// Seed is the random seed the responses were drawn with.
	Seed uint64 `json:"seed"`

	// Size indicates the number of respondents.
	Size int `json:"respondent_count"`
}

// LoadResponseDataset loads a dataset from a JSON file and validates it.
func LoadResponseDataset(path string) (*ResponseDataset, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset file: %w", err)
	}

	var dataset ResponseDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		return nil, fmt.Errorf("failed to parse dataset JSON: %w", err)
	}

	if err := ValidateResponseDataset(&dataset); err != nil {
		return nil, fmt.Errorf("dataset validation failed: %w", err)
	}
	return &dataset, nil
}

// ValidateResponseDataset checks that a dataset is complete and consistent
// with its own item bank.
func ValidateResponseDataset(dataset *ResponseDataset) error {
	if dataset == nil {
		return fmt.Errorf("dataset is nil")
	}
	if dataset.Metadata.Name == "" {
		return fmt.Errorf("metadata validation failed: name is required")
	}
	if err := domain.ValidateItems(dataset.Model, dataset.Items); err != nil {
		return err
	}
	if len(dataset.Rows) < MinimumDatasetSize {
		return fmt.Errorf("dataset must contain at least %d respondents, found %d",
			MinimumDatasetSize, len(dataset.Rows))
	}
	if len(dataset.TrueThetas) != len(dataset.Rows) {
		return fmt.Errorf("%d true thetas for %d rows", len(dataset.TrueThetas), len(dataset.Rows))
	}
	if dataset.Metadata.Size != len(dataset.Rows) {
		return fmt.Errorf("metadata size %d does not match %d rows", dataset.Metadata.Size, len(dataset.Rows))
	}

	qs, err := domain.NewQuestionSet(dataset.Model, dataset.Items, nil)
	if err != nil {
		return err
	}
	for i, row := range dataset.Rows {
		if err := qs.ResetAnswers(row); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}

// SaveResponseDataset writes a dataset to path as indented JSON, creating
// the parent directory if needed.
func SaveResponseDataset(dataset *ResponseDataset, path string) error {
	data, err := json.MarshalIndent(dataset, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal dataset: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write dataset file: %w", err)
	}
	return nil
}

// WriteResponsesCSV writes the response rows as a CSV table with one column
// per item, named after the item or Q<n> when unnamed.
func WriteResponsesCSV(dataset *ResponseDataset, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to create response table: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := make([]string, len(dataset.Items))
	for i, item := range dataset.Items {
		header[i] = item.Name
		if header[i] == "" {
			header[i] = "Q" + strconv.Itoa(i+1)
		}
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(dataset.Items))
	for _, row := range dataset.Rows {
		for i, v := range row {
			record[i] = "NA"
			if v != domain.Unanswered {
				record[i] = strconv.Itoa(v)
			}
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
