package clamd

import "strings"

// statsEnd is the sentinel line closing a STATS response.
const statsEnd = "END"

// parseVerdictLine turns one scan response line into a Verdict. The terminal
// token is matched from the end of the line backward so paths containing
// colons or spaces survive intact; the detail (signature or error text) is
// whatever sits between the path and the token. A line matching no known
// shape becomes an ERROR verdict carrying the raw line, so a daemon protocol
// violation is reported instead of silently dropped.
func parseVerdictLine(line string) Verdict {
	switch {
	case strings.HasSuffix(line, " OK"):
		return Verdict{
			Path:   trimPath(strings.TrimSuffix(line, " OK")),
			Status: StatusOK,
		}
	case strings.HasSuffix(line, " FOUND"):
		path, detail := splitPathDetail(strings.TrimSuffix(line, " FOUND"))
		return Verdict{Path: path, Status: StatusFound, Detail: detail}
	case strings.HasSuffix(line, " ERROR"):
		path, detail := splitPathDetail(strings.TrimSuffix(line, " ERROR"))
		return Verdict{Path: path, Status: StatusError, Detail: detail}
	default:
		return Verdict{Status: StatusError, Detail: line}
	}
}

// splitPathDetail separates "<path>: <detail>" on the last ": " occurrence.
// The path keeps any embedded ": " sequences; the detail is the shortest
// trailing segment, matching how the daemon composes the line.
func splitPathDetail(s string) (path, detail string) {
	if i := strings.LastIndex(s, ": "); i >= 0 {
		return s[:i], s[i+2:]
	}
	return "", s
}

// trimPath drops the separator the daemon appends between path and status.
func trimPath(s string) string {
	return strings.TrimSuffix(s, ":")
}

// parseScanOutcome converts scan response lines into an ordered ScanOutcome.
// Scan commands always answer with at least one line, so an empty response
// means the connection was cut before the daemon reported anything; a
// partial outcome would be misleading, so that is a protocol error.
func parseScanOutcome(lines []string) (*ScanOutcome, error) {
	if len(lines) == 0 {
		return nil, NewProtocolError("empty scan response", nil)
	}
	verdicts := make([]Verdict, 0, len(lines))
	for _, line := range lines {
		verdicts = append(verdicts, parseVerdictLine(line))
	}
	return &ScanOutcome{Verdicts: verdicts}, nil
}

// parseStats converts STATS response lines into ordered KEY: value fields.
// The response must close with the END sentinel; anything else means it was
// cut off mid-way. Lines without the KEY: value shape (clamd emits a few,
// such as the indented queue detail rows) are kept in Raw only.
func parseStats(lines []string) (*Stats, error) {
	stats := &Stats{}
	var raw strings.Builder
	ended := false
	for _, line := range lines {
		if line == statsEnd {
			ended = true
			break
		}
		if raw.Len() > 0 {
			raw.WriteByte('\n')
		}
		raw.WriteString(line)
		if label, value := splitLabel(line); label != "" {
			stats.Fields = append(stats.Fields, StatField{
				Key:   label,
				Value: strings.TrimSpace(value),
			})
		}
	}
	if !ended {
		return nil, NewProtocolError("stats response missing END sentinel", nil)
	}
	stats.Raw = raw.String()
	return stats, nil
}
