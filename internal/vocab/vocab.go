// Package vocab maps free-text codes from as-run logs onto closed
// vocabularies. Classification is total: unrecognized input degrades to the
// UNKNOWN member of the requested vocabulary, never to an error.
package vocab

import (
	"log/slog"
	"strings"
	"sync"
)

// SpotType categorizes non-program content.
type SpotType string

const (
	SpotCommercial SpotType = "COMMERCIAL"
	SpotProgram    SpotType = "PROGRAM"
	SpotStationID  SpotType = "STATIONID"
	SpotPSA        SpotType = "PSA"
	SpotID         SpotType = "ID"
	SpotFL         SpotType = "FL"
	SpotNS         SpotType = "NS"
	SpotGS         SpotType = "GS"
	SpotSF         SpotType = "SF"
	SpotPG         SpotType = "PG"
	SpotRS         SpotType = "RS"
	SpotFI         SpotType = "FI"
	SpotPR         SpotType = "PR"
	SpotPS         SpotType = "PS"
	SpotPA         SpotType = "PA"
	SpotFR         SpotType = "FR"
	SpotDA         SpotType = "DA"
	SpotTN         SpotType = "TN"
	SpotAJ         SpotType = "AJ"
	SpotUnknown    SpotType = "UNKNOWN"
)

// StartMode describes how an event was started by automation.
type StartMode string

const (
	StartFixed      StartMode = "FIXED"
	StartFollow     StartMode = "FOLLOW"
	StartSequential StartMode = "SEQUENTIAL"
	StartManual     StartMode = "MANUAL"
	StartUnknown    StartMode = "UNKNOWN"
)

// EndMode describes how an event was ended.
type EndMode string

const (
	EndDuration EndMode = "DURATION"
	EndFixed    EndMode = "FIXED"
	EndManual   EndMode = "MANUAL"
	EndFollow   EndMode = "FOLLOW"
	EndUnknown  EndMode = "UNKNOWN"
)

var spotTypes = map[string]SpotType{
	"COMMERCIAL": SpotCommercial,
	"PROGRAM":    SpotProgram,
	"STATIONID":  SpotStationID,
	"STATION_ID": SpotStationID,
	"PSA":        SpotPSA,
	"ID":         SpotID,
	"FL":         SpotFL,
	"NS":         SpotNS,
	"GS":         SpotGS,
	"SF":         SpotSF,
	"PG":         SpotPG,
	"RS":         SpotRS,
	"FI":         SpotFI,
	"PR":         SpotPR,
	"PS":         SpotPS,
	"PA":         SpotPA,
	"FR":         SpotFR,
	"DA":         SpotDA,
	"TN":         SpotTN,
	"AJ":         SpotAJ,
}

var startModes = map[string]StartMode{
	"FIXED":      StartFixed,
	"FOLLOW":     StartFollow,
	"SEQUENTIAL": StartSequential,
	"MANUAL":     StartManual,
}

var endModes = map[string]EndMode{
	"DURATION": EndDuration,
	"FIXED":    EndFixed,
	"MANUAL":   EndManual,
	"FOLLOW":   EndFollow,
}

// Classifier resolves raw vocabulary strings. It remembers which unknown
// values it has already warned about so a noisy feed logs each new value
// once per process.
type Classifier struct {
	log     *slog.Logger
	aliases map[string]SpotType

	mu          sync.Mutex
	seenUnknown map[string]struct{}

	// OnUnknown, if set, is called once per newly seen unknown value with
	// the vocabulary kind ("spot_type", "start_mode", "end_mode").
	OnUnknown func(kind, raw string)
}

// NewClassifier returns a Classifier over the built-in tables.
func NewClassifier(log *slog.Logger) *Classifier {
	if log == nil {
		log = slog.Default()
	}
	return &Classifier{
		log:         log.With("component", "vocab"),
		aliases:     make(map[string]SpotType),
		seenUnknown: make(map[string]struct{}),
	}
}

// SpotType resolves a raw spot-type code, consulting any loaded aliases
// before the built-in table.
func (c *Classifier) SpotType(raw string) SpotType {
	key := strings.ToUpper(strings.TrimSpace(raw))
	if st, ok := c.aliases[key]; ok {
		return st
	}
	if st, ok := spotTypes[key]; ok {
		return st
	}
	c.recordUnknown("spot_type", raw)
	return SpotUnknown
}

// StartMode resolves a raw start-mode code.
func (c *Classifier) StartMode(raw string) StartMode {
	if m, ok := startModes[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return m
	}
	c.recordUnknown("start_mode", raw)
	return StartUnknown
}

// EndMode resolves a raw end-mode code.
func (c *Classifier) EndMode(raw string) EndMode {
	if m, ok := endModes[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return m
	}
	c.recordUnknown("end_mode", raw)
	return EndUnknown
}

// UnknownValues returns the distinct unknown values seen so far, keyed as
// "kind:raw". Used by status reporting.
func (c *Classifier) UnknownValues() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.seenUnknown))
	for k := range c.seenUnknown {
		out = append(out, k)
	}
	return out
}

func (c *Classifier) recordUnknown(kind, raw string) {
	key := kind + ":" + raw
	c.mu.Lock()
	_, seen := c.seenUnknown[key]
	if !seen {
		c.seenUnknown[key] = struct{}{}
	}
	c.mu.Unlock()

	if !seen {
		c.log.Warn("unknown vocabulary value", "kind", kind, "value", raw)
		if c.OnUnknown != nil {
			c.OnUnknown(kind, raw)
		}
	}
}
