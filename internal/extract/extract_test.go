package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecords(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		date  string
		time  string
		tempC *int
	}{
		{
			name:  "full_overlay",
			text:  "2024-06-01 14:30:00 25°C",
			date:  "2024-06-01",
			time:  "14:30:00",
			tempC: intPtr(25),
		},
		{
			name:  "fahrenheit_converted",
			text:  "TRAIL CAM 98.6 F",
			tempC: intPtr(37),
		},
		{
			name:  "celsius_rounded",
			text:  "21.7 C",
			tempC: intPtr(22),
		},
		{
			name:  "degrees_word",
			text:  "temp 32 degrees F",
			tempC: intPtr(0),
		},
		{
			name: "pm_time_converted",
			text: "02:15:00 PM",
			time: "14:15:00",
		},
		{
			name: "midnight_am",
			text: "12:00:00 AM",
			time: "00:00:00",
		},
		{
			name: "noon_pm",
			text: "12:00:00 PM",
			time: "12:00:00",
		},
		{
			name: "lowercase_marker",
			text: "07:05:10 pm",
			time: "19:05:10",
		},
		{
			name: "date_only",
			text: "captured on 2023-11-09",
			date: "2023-11-09",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := Records(tt.text)
			require.Len(t, records, 1)
			assert.Equal(t, tt.date, records[0].Date)
			assert.Equal(t, tt.time, records[0].Time)
			assert.Equal(t, tt.tempC, records[0].TemperatureC)
		})
	}
}

func TestRecords_NoMatches(t *testing.T) {
	assert.Empty(t, Records("just a deer in the woods"))
	assert.Empty(t, Records(""))
}

func TestRecords_MalformedTwelveHourPassesThrough(t *testing.T) {
	// An AM/PM marker on an hour outside 1-12 cannot be reinterpreted; the
	// raw string is kept instead of being dropped.
	records := Records("14:15:00 PM")
	require.Len(t, records, 1)
	assert.Equal(t, "14:15:00 PM", records[0].Time)
}

func TestRecords_DegreeGlyphCorruptionRepaired(t *testing.T) {
	records := Records("2024-06-01\n14:30:00\n25�C")
	require.Len(t, records, 1)
	assert.Equal(t, "2024-06-01", records[0].Date)
	assert.Equal(t, "14:30:00", records[0].Time)
	require.NotNil(t, records[0].TemperatureC)
	assert.Equal(t, 25, *records[0].TemperatureC)
}

func TestRecords_PositionalAssembly(t *testing.T) {
	text := "2024-06-01 08:00:00 15C then 2024-06-02 09:30:00"
	records := Records(text)
	require.Len(t, records, 2)

	assert.Equal(t, "2024-06-01", records[0].Date)
	assert.Equal(t, "08:00:00", records[0].Time)
	require.NotNil(t, records[0].TemperatureC)
	assert.Equal(t, 15, *records[0].TemperatureC)

	assert.Equal(t, "2024-06-02", records[1].Date)
	assert.Equal(t, "09:30:00", records[1].Time)
	assert.Nil(t, records[1].TemperatureC)
}

func intPtr(v int) *int { return &v }
