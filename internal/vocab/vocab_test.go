package vocab

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifier_SpotType(t *testing.T) {
	c := NewClassifier(nil)

	tests := []struct {
		name string
		raw  string
		want SpotType
	}{
		{"exact match", "COMMERCIAL", SpotCommercial},
		{"lowercase", "commercial", SpotCommercial},
		{"mixed case", "Psa", SpotPSA},
		{"surrounding whitespace", "  PR ", SpotPR},
		{"two letter code", "FL", SpotFL},
		{"underscore variant", "STATION_ID", SpotStationID},
		{"unknown value", "ZZ", SpotUnknown},
		{"empty string", "", SpotUnknown},
		{"garbage", "!!not-a-code!!", SpotUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.SpotType(tt.raw))
		})
	}
}

func TestClassifier_Modes(t *testing.T) {
	c := NewClassifier(nil)

	assert.Equal(t, StartFixed, c.StartMode("fixed"))
	assert.Equal(t, StartSequential, c.StartMode("SEQUENTIAL"))
	assert.Equal(t, StartUnknown, c.StartMode("WHENEVER"))

	assert.Equal(t, EndDuration, c.EndMode("Duration"))
	assert.Equal(t, EndFollow, c.EndMode("FOLLOW"))
	assert.Equal(t, EndUnknown, c.EndMode(""))
}

// Classification never fails, whatever the input.
func TestClassifier_Totality(t *testing.T) {
	c := NewClassifier(nil)

	inputs := []string{"", " ", "\x00", strings.Repeat("A", 10000), "日本語", "fixed;drop table"}
	for _, in := range inputs {
		assert.NotEmpty(t, c.SpotType(in))
		assert.NotEmpty(t, c.StartMode(in))
		assert.NotEmpty(t, c.EndMode(in))
	}
}

func TestClassifier_UnknownTracking(t *testing.T) {
	c := NewClassifier(nil)

	var calls []string
	c.OnUnknown = func(kind, raw string) {
		calls = append(calls, kind+":"+raw)
	}

	c.SpotType("XX")
	c.SpotType("XX") // second sighting must not re-fire
	c.StartMode("XX")

	assert.Equal(t, []string{"spot_type:XX", "start_mode:XX"}, calls)
	assert.Len(t, c.UnknownValues(), 2)
}

func TestClassifier_LoadAliases(t *testing.T) {
	c := NewClassifier(nil)

	yml := `
spot_type_aliases:
  PROMO: PR
  filler: fi
`
	require.NoError(t, c.LoadAliasesFromReader(strings.NewReader(yml)))

	assert.Equal(t, SpotPR, c.SpotType("promo"))
	assert.Equal(t, SpotFI, c.SpotType("FILLER"))
	// Built-in table still applies.
	assert.Equal(t, SpotCommercial, c.SpotType("COMMERCIAL"))
}

func TestClassifier_LoadAliases_BadTarget(t *testing.T) {
	c := NewClassifier(nil)

	err := c.LoadAliasesFromReader(strings.NewReader("spot_type_aliases:\n  X: NOPE\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown spot type")
}
