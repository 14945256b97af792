// Package extract parses camera-overlay OCR text into structured
// date/time/temperature records.
package extract

import (
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/clementchangcheng/projectwildlife/internal/models"
)

var (
	datePattern = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	timePattern = regexp.MustCompile(`(\d{1,2}:\d{2}:\d{2}(?:\s*[AaPp][Mm])?)`)
	tempPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:°|degrees?|deg)?°?\s*([FC])`)
)

// Records scans free-form OCR text for date, time and temperature substrings
// and assembles them into records by positional index: the k-th date, k-th
// time and k-th temperature found in the text land in the k-th record. No
// semantic pairing between the three field types is attempted; camera
// overlays emit one observation per frame, which keeps the lists aligned in
// practice. Records with no fields at all are omitted.
func Records(text string) []models.ExtractedRecord {
	text = normalize(text)

	dates := captures(datePattern.FindAllStringSubmatch(text, -1), 1)
	times := captures(timePattern.FindAllStringSubmatch(text, -1), 1)
	for i, t := range times {
		times[i] = convertTo24Hour(t)
	}
	temps := tempPattern.FindAllStringSubmatch(text, -1)

	slog.Debug("Scanned OCR text.",
		"dates", len(dates), "times", len(times), "temperatures", len(temps))

	n := max(len(dates), max(len(times), len(temps)))
	records := make([]models.ExtractedRecord, 0, n)
	for i := 0; i < n; i++ {
		var rec models.ExtractedRecord
		if i < len(dates) {
			rec.Date = dates[i]
		}
		if i < len(times) {
			rec.Time = times[i]
		}
		if i < len(temps) {
			if c, ok := toCelsius(temps[i][1], temps[i][2]); ok {
				rec.TemperatureC = &c
			}
		}
		if !rec.IsEmpty() {
			records = append(records, rec)
		}
	}
	return records
}

// normalize repairs the degree-glyph corruption OCR produces and flattens
// newlines so the patterns can match across line breaks.
func normalize(text string) string {
	text = strings.ReplaceAll(text, "�", "°")
	return strings.ReplaceAll(text, "\n", " ")
}

// convertTo24Hour reformats a 12-hour time string as HH:MM:SS. A string with
// no AM/PM marker is assumed to already be 24-hour and returned as-is; a
// marked string that fails to parse is passed through unchanged rather than
// dropped.
func convertTo24Hour(s string) string {
	upper := strings.ToUpper(s)
	if !strings.Contains(upper, "AM") && !strings.Contains(upper, "PM") {
		return s
	}
	parsed, err := time.Parse("3:04:05 PM", strings.TrimSpace(upper))
	if err != nil {
		slog.Warn("Could not parse 12-hour time, passing through.", "time", s, "error", err)
		return s
	}
	return parsed.Format("15:04:05")
}

// toCelsius converts a matched temperature value to integer Celsius.
func toCelsius(value, unit string) (int, bool) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		slog.Warn("Could not parse temperature value, skipping.", "value", value, "error", err)
		return 0, false
	}
	if strings.EqualFold(unit, "F") {
		return int(math.Round((v - 32) * 5 / 9)), true
	}
	return int(math.Round(v)), true
}

func captures(matches [][]string, group int) []string {
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[group])
	}
	return out
}
