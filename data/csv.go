// Package data loads training sets for the command-line driver.
package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
)

var ErrEmptyDataset = errors.New("data: no samples")

// Dataset holds paired network inputs and targets.
type Dataset struct {
	Inputs  [][]float64
	Targets [][]float64
}

// Len is the number of samples.
func (d *Dataset) Len() int { return len(d.Inputs) }

// LoadCSV reads a numeric CSV file. The last targetCols columns of every
// row are targets, the rest are inputs. hasHeader skips the first line.
func LoadCSV(path string, targetCols int, hasHeader bool) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ReadCSV(file, targetCols, hasHeader)
}

// ReadCSV is LoadCSV over any reader.
func ReadCSV(r io.Reader, targetCols int, hasHeader bool) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	if hasHeader && len(records) > 0 {
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}

	numCols := len(records[0])
	if targetCols < 1 || targetCols >= numCols {
		return nil, fmt.Errorf("%d target columns leave no inputs in %d columns", targetCols, numCols)
	}
	split := numCols - targetCols

	ds := &Dataset{
		Inputs:  make([][]float64, len(records)),
		Targets: make([][]float64, len(records)),
	}
	for i, record := range records {
		row := make([]float64, numCols)
		for j, valStr := range record {
			val, err := strconv.ParseFloat(strings.TrimSpace(valStr), 64)
			if err != nil {
				return nil, fmt.Errorf("failed to parse value at row %d, col %d: %w", i, j, err)
			}
			row[j] = val
		}
		ds.Inputs[i] = row[:split:split]
		ds.Targets[i] = row[split:]
	}
	return ds, nil
}

// MinMaxNormalize rescales every input column into [0, 1]. Constant
// columns become 0.
func (d *Dataset) MinMaxNormalize() {
	if len(d.Inputs) == 0 {
		return
	}

	column := make([]float64, len(d.Inputs))
	for j := range d.Inputs[0] {
		for i, sample := range d.Inputs {
			column[i] = sample[j]
		}
		lo, hi := floats.Min(column), floats.Max(column)
		for _, sample := range d.Inputs {
			if hi != lo {
				sample[j] = (sample[j] - lo) / (hi - lo)
			} else {
				sample[j] = 0
			}
		}
	}
}
