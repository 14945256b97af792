// Package tabular merges extracted overlay records with species detections
// into one row-aligned CSV artifact.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/clementchangcheng/projectwildlife/internal/models"
)

var (
	// ErrEmptyOutputPath is returned before anything is written when the
	// caller supplied no destination.
	ErrEmptyOutputPath = errors.New("output file path cannot be empty")

	// ErrNoData is returned when both input sequences are empty. The caller
	// decides whether that is fatal; no file is created.
	ErrNoData = errors.New("no data to write")

	// ErrEmptyFile is returned when the post-write verification finds the
	// file present but empty.
	ErrEmptyFile = errors.New("csv file was created but is empty")
)

// WriteCSV merges records and species positionally and writes them to
// outputPath. The header is always Date,Time,Temperature; the
// Species,Confidence columns are appended only when species data is present
// at all. Missing fields at a given row render as empty strings and
// confidence is formatted to two decimal places. After writing, the file is
// verified to exist and be non-empty.
func WriteCSV(records []models.ExtractedRecord, species []models.SpeciesRecord, outputPath string) error {
	if outputPath == "" {
		return ErrEmptyOutputPath
	}
	if len(records) == 0 && len(species) == 0 {
		return ErrNoData
	}

	header := []string{"Date", "Time", "Temperature"}
	if len(species) > 0 {
		header = append(header, "Species", "Confidence")
	}

	rows := [][]string{header}
	for i := 0; i < max(len(records), len(species)); i++ {
		row := []string{"", "", ""}
		if i < len(records) {
			row[0] = records[i].Date
			row[1] = records[i].Time
			if records[i].TemperatureC != nil {
				row[2] = strconv.Itoa(*records[i].TemperatureC)
			}
		}
		if len(species) > 0 {
			if i < len(species) {
				row = append(row, species[i].Species, fmt.Sprintf("%.2f", species[i].Confidence))
			} else {
				row = append(row, "", "")
			}
		}
		rows = append(rows, row)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file %s: %w", outputPath, err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write CSV rows to %s: %w", outputPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to finalize CSV file %s: %w", outputPath, err)
	}

	return verify(outputPath)
}

// verify surfaces a missing or truncated output file as an error so a
// partial artifact is never silently persisted.
func verify(outputPath string) error {
	info, err := os.Stat(outputPath)
	if err != nil {
		return fmt.Errorf("failed to verify CSV file %s: %w", outputPath, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyFile, outputPath)
	}
	return nil
}
