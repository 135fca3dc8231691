// Package parser extracts playout events from BXF as-run documents.
//
// Failures are scoped at two levels: a document that does not parse as
// XML fails the whole call with *XMLError, while a failure inside one
// CompleteAsRun record drops only that record. Optional fields that are
// simply absent yield empty values, never errors.
package parser

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/beevik/etree"

	"github.com/asrun-analyzer/backend/internal/models"
	"github.com/asrun-analyzer/backend/internal/timecode"
	"github.com/asrun-analyzer/backend/internal/vocab"
)

// XMLError reports a structurally invalid document. There is no partial
// result for a document-level failure.
type XMLError struct {
	Err error
}

func (e *XMLError) Error() string { return fmt.Sprintf("invalid as-run document: %v", e.Err) }
func (e *XMLError) Unwrap() error { return e.Err }

// Extractor walks parsed BXF documents and emits PlayoutEvent candidates.
type Extractor struct {
	classifier *vocab.Classifier
	log        *slog.Logger
	loc        *time.Location

	// OnRecordError, if set, is called for each dropped record.
	OnRecordError func(err error)
}

// NewExtractor returns an Extractor that resolves start times in loc
// (nil means UTC).
func NewExtractor(classifier *vocab.Classifier, loc *time.Location, log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Extractor{
		classifier: classifier,
		log:        log.With("component", "parser"),
		loc:        loc,
	}
}

// Extract parses one as-run document and returns its events in document
// order. Records that fail to extract are logged and omitted; the rest of
// the file is preserved.
func (x *Extractor) Extract(data []byte) ([]*models.PlayoutEvent, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, &XMLError{Err: err}
	}
	root := doc.Root()
	if root == nil {
		return nil, &XMLError{Err: fmt.Errorf("document has no root element")}
	}

	records := findAll(root, "AsRun", "CompleteAsRun")
	x.log.Debug("found as-run records", "count", len(records))

	events := make([]*models.PlayoutEvent, 0, len(records))
	for i, rec := range records {
		ev, err := x.extractRecord(rec)
		if err != nil {
			x.log.Warn("dropping as-run record", "index", i, "error", err)
			if x.OnRecordError != nil {
				x.OnRecordError(err)
			}
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func (x *Extractor) extractRecord(rec *etree.Element) (*models.PlayoutEvent, error) {
	ev := &models.PlayoutEvent{
		EventID:     text(find(rec, "EventId", "EventId")),
		Title:       text(find(rec, "EventTitle")),
		Description: text(find(rec, "Description")),
		HouseNumber: text(find(rec, "ContentId", "HouseNumber")),
		Source:      text(find(rec, "RouterSource", "Name")),
		Status:      text(find(rec, "AsRunDetail", "Status")),
		EventType:   text(find(rec, "AsRunDetail", "Type")),
	}

	if spot := text(find(rec, "PrimaryEvent", "NonProgramEvent", "Details", "SpotType")); spot != "" {
		ev.SpotType = spot
		ev.SpotTypeCategory = string(x.classifier.SpotType(spot))
	}

	if pe := find(rec, "ProgramEvent"); pe != nil {
		ev.Category = models.CategoryProgram
		ev.SegmentNumber = text(find(pe, "SegmentNumber"))
		ev.SegmentName = text(find(pe, "SegmentName"))
		ev.ProgramName = text(find(pe, "ProgramName"))
	}
	if npe := find(rec, "NonProgramEvent"); npe != nil {
		ev.Category = models.CategoryNonProgram
		if ev.Description == "" {
			ev.Description = text(find(npe, "NonPrimaryEventName"))
		}
	}

	if sm := text(find(rec, "StartMode")); sm != "" {
		ev.StartMode = sm
		ev.StartModeCategory = string(x.classifier.StartMode(sm))
	}
	if em := text(find(rec, "EndMode")); em != "" {
		ev.EndMode = em
		ev.EndModeCategory = string(x.classifier.EndMode(em))
	}

	// Timing. Absence of the whole subtree is fine (StartTime stays nil),
	// but a present subtree that cannot be resolved fails the record.
	if sdt := find(rec, "AsRunDetail", "StartDateTime", "SmpteDateTime"); sdt != nil {
		date := sdt.SelectAttrValue("broadcastDate", "")
		code := text(find(sdt, "SmpteTimeCode"))
		if date == "" || code == "" {
			return nil, fmt.Errorf("event %q: timing subtree missing broadcastDate or timecode", ev.EventID)
		}
		ts, err := timecode.Resolve(date, code, x.loc)
		if err != nil {
			return nil, fmt.Errorf("event %q: %w", ev.EventID, err)
		}
		ev.StartTime = &ts
	}

	ev.DurationCode = text(find(rec, "AsRunDetail", "Duration", "SmpteDuration", "SmpteTimeCode"))

	return ev, nil
}

// find walks a descendant path by local element name, ignoring namespace
// prefixes: BXF producers disagree on prefix spelling but not on local
// names. Each step matches the first descendant in document order.
func find(el *etree.Element, path ...string) *etree.Element {
	cur := el
	for _, tag := range path {
		cur = firstDescendant(cur, tag)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// findAll resolves all but the last path step with find, then collects
// every matching descendant of the last step in document order.
func findAll(el *etree.Element, path ...string) []*etree.Element {
	cur := el
	for _, tag := range path[:len(path)-1] {
		cur = firstDescendant(cur, tag)
		if cur == nil {
			return nil
		}
	}
	var out []*etree.Element
	collectDescendants(cur, path[len(path)-1], &out)
	return out
}

func firstDescendant(el *etree.Element, tag string) *etree.Element {
	for _, child := range el.ChildElements() {
		if child.Tag == tag {
			return child
		}
		if found := firstDescendant(child, tag); found != nil {
			return found
		}
	}
	return nil
}

func collectDescendants(el *etree.Element, tag string, out *[]*etree.Element) {
	for _, child := range el.ChildElements() {
		if child.Tag == tag {
			*out = append(*out, child)
			continue
		}
		collectDescendants(child, tag, out)
	}
}

func text(el *etree.Element) string {
	if el == nil {
		return ""
	}
	return el.Text()
}
