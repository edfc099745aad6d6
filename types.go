package clamd

import "strings"

// Status is the per-item scan result reported by the daemon.
type Status string

// Verdict statuses as they appear on the wire.
const (
	StatusOK    Status = "OK"
	StatusFound Status = "FOUND"
	StatusError Status = "ERROR"
)

// Verdict is the scan result for one scanned path or stream.
type Verdict struct {
	// Path is the scanned item as reported by the daemon ("stream" for
	// INSTREAM scans).
	Path string
	// Status is OK (clean), FOUND (infected), or ERROR.
	Status Status
	// Detail holds the signature name when Status is FOUND, or the error
	// text when Status is ERROR. Empty for clean items.
	Detail string
}

// Infected returns true if the verdict reports a matched signature.
func (v Verdict) Infected() bool {
	return v.Status == StatusFound
}

// Clean returns true if the verdict reports a clean item.
func (v Verdict) Clean() bool {
	return v.Status == StatusOK
}

// ScanOutcome is the ordered set of verdicts produced by one scan call.
// It is immutable after construction.
type ScanOutcome struct {
	// Verdicts holds one entry per scanned item, in daemon order.
	Verdicts []Verdict
}

// AnyFound returns true if at least one verdict reports an infection.
func (o *ScanOutcome) AnyFound() bool {
	for _, v := range o.Verdicts {
		if v.Status == StatusFound {
			return true
		}
	}
	return false
}

// AnyError returns true if at least one verdict reports a per-item error.
func (o *ScanOutcome) AnyError() bool {
	for _, v := range o.Verdicts {
		if v.Status == StatusError {
			return true
		}
	}
	return false
}

// ScanMode selects the filesystem scan command issued by ScanPath.
type ScanMode int

const (
	// ScanModeNormal issues SCAN: stop after the first infected file.
	ScanModeNormal ScanMode = iota
	// ScanModeContinue issues CONTSCAN: keep scanning past infections and
	// errors, one verdict per file.
	ScanModeContinue
	// ScanModeMulti issues MULTISCAN: like CONTSCAN but scanned by multiple
	// daemon threads.
	ScanModeMulti
)

// command returns the wire command name for the mode.
func (m ScanMode) command() string {
	switch m {
	case ScanModeContinue:
		return "CONTSCAN"
	case ScanModeMulti:
		return "MULTISCAN"
	default:
		return "SCAN"
	}
}

// String returns the wire command name for the mode.
func (m ScanMode) String() string {
	return m.command()
}

// StatField is one KEY: value pair from the daemon's STATS response.
type StatField struct {
	Key   string
	Value string
}

// Stats is the parsed STATS response: ordered key/value fields up to the
// END sentinel, plus the raw text for fields with no key/value shape.
type Stats struct {
	// Fields holds the KEY: value pairs in daemon order.
	Fields []StatField
	// Raw is the full response text before the END sentinel.
	Raw string
}

// Get returns the value of the first field with the given key.
func (s *Stats) Get(key string) (string, bool) {
	for _, f := range s.Fields {
		if strings.EqualFold(f.Key, key) {
			return f.Value, true
		}
	}
	return "", false
}
