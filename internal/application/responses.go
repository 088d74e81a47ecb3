package application

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ahrav/go-catsurv/internal/domain"
	"github.com/ahrav/go-catsurv/internal/ports"
)

// ResponseTable is a respondents-by-items matrix of response codes. Missing
// responses hold domain.Unanswered.
type ResponseTable struct {
	// Names holds the header, one column name per item.
	Names []string
	Rows  [][]int
}

// missingCell reports whether a cell marks a missing response.
func missingCell(s string) bool {
	switch strings.ToUpper(s) {
	case "", "NA", "NAN", "NULL":
		return true
	}
	return false
}

// ReadResponses parses a CSV response table. The first record is the header
// of item names; every following record must have one integer cell per
// column. Empty cells and NA mark missing responses.
func ReadResponses(r io.Reader, source string) (ResponseTable, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ResponseTable{}, ports.NewTableError(source, 0, 0, fmt.Errorf("%w: missing header", ports.ErrMalformedTable))
		}
		return ResponseTable{}, ports.NewTableError(source, 0, 0, fmt.Errorf("%w: %v", ports.ErrMalformedTable, err))
	}

	table := ResponseTable{Names: make([]string, len(header))}
	for i, name := range header {
		table.Names[i] = strings.TrimSpace(name)
	}

	for row := 1; ; row++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return ResponseTable{}, ports.NewTableError(source, row, perr.Column, fmt.Errorf("%w: %v", ports.ErrMalformedTable, perr.Err))
			}
			return ResponseTable{}, ports.NewTableError(source, row, 0, fmt.Errorf("%w: %v", ports.ErrMalformedTable, err))
		}

		values := make([]int, len(record))
		for col, cell := range record {
			cell = strings.TrimSpace(cell)
			if missingCell(cell) {
				values[col] = domain.Unanswered
				continue
			}
			v, err := strconv.Atoi(cell)
			if err != nil {
				return ResponseTable{}, ports.NewTableError(source, row, col+1,
					fmt.Errorf("%w: cell %q is not an integer", ports.ErrMalformedTable, cell))
			}
			values[col] = v
		}
		table.Rows = append(table.Rows, values)
	}
	return table, nil
}

// ReadResponsesFile reads a CSV response table from path.
func ReadResponsesFile(path string) (ResponseTable, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return ResponseTable{}, fmt.Errorf("failed to open response table: %w", err)
	}
	defer f.Close()
	return ReadResponses(f, path)
}
