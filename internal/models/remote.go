package models

import "time"

// RemoteFileEntry is one row of a remote directory listing. Timestamp is
// parsed from the filename itself, not from the listing's mtime: the
// filename encodes the authoritative broadcast timestamp and is stable
// across FTP and SFTP listings.
type RemoteFileEntry struct {
	Filename  string    `json:"filename"`
	Raw       string    `json:"raw,omitempty"`
	Size      int64     `json:"size"`
	Timestamp time.Time `json:"timestamp"`
}

// GapStatus classifies the outcome of a continuity check.
type GapStatus string

const (
	GapStatusOK           GapStatus = "ok"
	GapStatusBehind       GapStatus = "behind"
	GapStatusNoFilesFound GapStatus = "no_files_found"
)

// GapReport is the output of one continuity check.
type GapReport struct {
	Status          GapStatus        `json:"status"`
	LatestFile      *RemoteFileEntry `json:"latestFile,omitempty"`
	CurrentTime     time.Time        `json:"currentTime"`
	MissingDates    []time.Time      `json:"missingDates"`
	DaysBehind      int              `json:"daysBehind"`
	IsCurrent       bool             `json:"isCurrent"`
	SampleFilenames []string         `json:"sampleFilenames,omitempty"`
}
