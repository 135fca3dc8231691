package timecode

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		date    string
		code    string
		want    string
		wantErr bool
	}{
		{"frames truncated", "2024-11-10", "05:59:59;29", "2024-11-10T05:59:59Z", false},
		{"no frames", "2024-11-10", "12:00:00", "2024-11-10T12:00:00Z", false},
		{"colon frame separator", "2024-11-10", "23:59:59:15", "2024-11-10T23:59:59Z", false},
		{"midnight", "2024-01-01", "00:00:00;00", "2024-01-01T00:00:00Z", false},
		{"bad date", "2024-13-40", "05:00:00;00", "", true},
		{"bad timecode", "2024-11-10", "not-a-time", "", true},
		{"empty date", "", "05:00:00", "", true},
		{"empty timecode", "2024-11-10", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.date, tt.code, time.UTC)
			if tt.wantErr {
				require.Error(t, err)
				var pe *ParseError
				assert.True(t, errors.As(err, &pe))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Format(time.RFC3339))
		})
	}
}

func TestResolve_Location(t *testing.T) {
	loc, err := time.LoadLocation("America/Anchorage")
	require.NoError(t, err)

	got, err := Resolve("2024-11-10", "05:59:59;29", loc)
	require.NoError(t, err)
	assert.Equal(t, loc, got.Location())
	assert.Equal(t, "2024-11-10T05:59:59", got.Format("2006-01-02T15:04:05"))
}

func TestResolve_NilLocationDefaultsUTC(t *testing.T) {
	got, err := Resolve("2024-11-10", "05:59:59", nil)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, got.Location())
}
