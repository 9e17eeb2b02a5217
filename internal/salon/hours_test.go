package salon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHoursLine(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		wantHours  map[string][]string
		wantClosed []string
		warnings   int
	}{
		{
			name: "split shifts and closed days",
			line: "Mon: closed; Tue-Fri: 09:30-13:30/16:00-20:00; Sat: 09:00-14:00; Sun: cerrado.",
			wantHours: map[string][]string{
				"Tue": {"09:30-13:30", "16:00-20:00"},
				"Wed": {"09:30-13:30", "16:00-20:00"},
				"Thu": {"09:30-13:30", "16:00-20:00"},
				"Fri": {"09:30-13:30", "16:00-20:00"},
				"Sat": {"09:00-14:00"},
			},
			wantClosed: []string{"Mon", "Sun"},
		},
		{
			name: "range wraps around the week",
			line: "Fri-Mon: 10:00-14:00",
			wantHours: map[string][]string{
				"Fri": {"10:00-14:00"},
				"Sat": {"10:00-14:00"},
				"Sun": {"10:00-14:00"},
				"Mon": {"10:00-14:00"},
			},
			wantClosed: []string{"Tue", "Wed", "Thu"},
		},
		{
			name: "comma list and dashes",
			line: "Mon, Wed: 9:00—13:00; Tue: выходной; Thu–Sat: 10:00 – 18:00",
			wantHours: map[string][]string{
				"Mon": {"09:00-13:00"},
				"Wed": {"09:00-13:00"},
				"Thu": {"10:00-18:00"},
				"Fri": {"10:00-18:00"},
				"Sat": {"10:00-18:00"},
			},
			wantClosed: []string{"Tue", "Sun"},
		},
		{
			name: "segment without dash is dropped",
			line: "Mon-Fri: 09:00-14:00/mediodia",
			wantHours: map[string][]string{
				"Mon": {"09:00-14:00"}, "Tue": {"09:00-14:00"}, "Wed": {"09:00-14:00"},
				"Thu": {"09:00-14:00"}, "Fri": {"09:00-14:00"},
			},
			wantClosed: []string{"Sat", "Sun"},
			warnings:   1,
		},
		{
			name:       "no valid segment closes the day",
			line:       "Mon: por la tarde; Tue: 10:00-12:00",
			wantHours:  map[string][]string{"Tue": {"10:00-12:00"}},
			wantClosed: []string{"Mon", "Wed", "Thu", "Fri", "Sat", "Sun"},
			warnings:   1,
		},
		{
			name: "overlapping clauses append",
			line: "Mon-Fri: 09:00-14:00; Fri: 16:00-20:00",
			wantHours: map[string][]string{
				"Mon": {"09:00-14:00"}, "Tue": {"09:00-14:00"}, "Wed": {"09:00-14:00"},
				"Thu": {"09:00-14:00"}, "Fri": {"09:00-14:00", "16:00-20:00"},
			},
			wantClosed: []string{"Sat", "Sun"},
		},
		{
			name: "explicitly closed day wins over earlier hours",
			line: "Mon-Sat: 09:00-18:00; Sat: festivo",
			wantHours: map[string][]string{
				"Mon": {"09:00-18:00"}, "Tue": {"09:00-18:00"}, "Wed": {"09:00-18:00"},
				"Thu": {"09:00-18:00"}, "Fri": {"09:00-18:00"},
			},
			wantClosed: []string{"Sat", "Sun"},
		},
		{
			name:       "unknown day token",
			line:       "Lunes: 09:00-14:00; Tue: 09:00-14:00",
			wantHours:  map[string][]string{"Tue": {"09:00-14:00"}},
			wantClosed: []string{"Mon", "Wed", "Thu", "Fri", "Sat", "Sun"},
			warnings:   1,
		},
		{
			name:       "empty line",
			line:       "",
			wantHours:  map[string][]string{},
			wantClosed: DayNames,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wh := ParseHoursLine(tt.line)
			require.Len(t, wh.Hours, 7)
			for _, d := range DayNames {
				want := tt.wantHours[d]
				if want == nil {
					want = []string{}
				}
				assert.Equal(t, want, wh.Hours[d], "day %s", d)
			}
			assert.Equal(t, tt.wantClosed, wh.ClosedDays)
			assert.Len(t, wh.Warnings, tt.warnings)
		})
	}
}

func TestParseHoursLine_ClosedDaysUnique(t *testing.T) {
	wh := ParseHoursLine("Sun: closed; Sun: cerrado; Mon: closed; Tue-Sat: 10:00-19:00")
	assert.Equal(t, []string{"Sun", "Mon"}, wh.ClosedDays)
}

func TestFormatHoursLine_RoundTrip(t *testing.T) {
	lines := []string{
		"Mon: closed; Tue-Fri: 09:30-13:30/16:00-20:00; Sat: 09:00-14:00; Sun: cerrado.",
		"Sun: closed; Sat: closed; Mon-Fri: 9:00-18:00",
		"Fri-Mon: 10:00-14:00",
		"Mon-Fri: 09:00-14:00; Fri: 16:00-20:00",
		"",
	}
	for _, line := range lines {
		first := ParseHoursLine(line)
		second := ParseHoursLine(FormatHoursLine(first.Hours, first.ClosedDays))
		assert.Equal(t, first.Hours, second.Hours, line)
		assert.Equal(t, first.ClosedDays, second.ClosedDays, line)
		assert.Empty(t, second.Warnings, line)
	}
}

func TestParseInterval(t *testing.T) {
	start, end, err := ParseInterval("9:30-14:00")
	require.NoError(t, err)
	assert.Equal(t, "09:30", start.String())
	assert.Equal(t, "14:00", end.String())

	_, end, err = ParseInterval("20:00-24:00")
	require.NoError(t, err)
	assert.Equal(t, Clock(24*60), end)

	for _, bad := range []string{"0900-1400", "14:00-09:00", "09:00", "25:00-26:00", "09:5-10:00"} {
		_, _, err := ParseInterval(bad)
		assert.Error(t, err, bad)
	}
}

func TestWeekdayCode(t *testing.T) {
	assert.Equal(t, "Mon", WeekdayCode(time.Monday))
	assert.Equal(t, "Sun", WeekdayCode(time.Sunday))
	assert.Equal(t, "Sat", WeekdayCode(time.Saturday))
}
