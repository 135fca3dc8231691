// Package timecode converts broadcast dates and SMPTE timecodes into
// absolute timestamps.
package timecode

import (
	"fmt"
	"strings"
	"time"
)

// ParseError reports a malformed broadcast date or timecode.
type ParseError struct {
	Date     string
	Timecode string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing timecode %q on date %q: %v", e.Timecode, e.Date, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Resolve combines a calendar date (YYYY-MM-DD) and an SMPTE timecode
// (HH:MM:SS, optionally followed by ";FF") into a timestamp in loc.
// The frame component is truncated, not rounded: frames never roll the
// second forward. A nil loc means UTC.
func Resolve(date, code string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}

	// Drop the frame count. Some feeds use ':' as the frame separator
	// instead of ';'; a fourth colon-delimited field is treated the same.
	hms, _, _ := strings.Cut(code, ";")
	if parts := strings.Split(hms, ":"); len(parts) == 4 {
		hms = strings.Join(parts[:3], ":")
	}

	ts, err := time.ParseInLocation("2006-01-02 15:04:05", date+" "+hms, loc)
	if err != nil {
		return time.Time{}, &ParseError{Date: date, Timecode: code, Err: err}
	}
	return ts, nil
}
