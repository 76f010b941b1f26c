// Package protocol decodes the amake line protocol. Every line the build
// tool emits is classified into exactly one record: a structured log entry,
// a progress update, an embedded diagnostics batch, raw passthrough text,
// or a silent drop.
package protocol

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/acarl005/stripansi"

	"github.com/Garcia6l20/amake-go/internal/diag"
)

// Severity is the level tag of a structured log line.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityDebug
	SeverityWarning
	SeverityStatus
	SeverityProgress
	SeverityError
	SeverityCritical
)

var severityNames = map[string]Severity{
	"DEBUG":    SeverityDebug,
	"INFO":     SeverityInfo,
	"WARNING":  SeverityWarning,
	"STATUS":   SeverityStatus,
	"PROGRESS": SeverityProgress,
	"ERROR":    SeverityError,
	"CRITICAL": SeverityCritical,
}

// String returns the protocol token for the severity.
func (s Severity) String() string {
	for name, sev := range severityNames {
		if sev == s {
			return name
		}
	}
	return "INFO"
}

// RecordKind is the routing decision for one decoded line.
type RecordKind int

const (
	// KindLog is a structured log entry to emit on the log channel.
	KindLog RecordKind = iota
	// KindProgress carries a progress update for one emitter id.
	KindProgress
	// KindDiagnostics carries a file-keyed diagnostics batch.
	KindDiagnostics
	// KindPassthrough is unstructured text forwarded verbatim.
	KindPassthrough
	// KindDrop is a recognized but discarded line (malformed progress
	// payload, invalid diagnostics JSON, or a pure ANSI escape sequence).
	KindDrop
)

// ProgressUpdate is the decoded payload of a PROGRESS line.
type ProgressUpdate struct {
	Label       string
	Numerator   int
	Denominator int
	Done        bool
}

// Percent returns the completion percentage. A "done" marker counts as 100.
func (u ProgressUpdate) Percent() float64 {
	if u.Done {
		return 100
	}
	if u.Denominator <= 0 {
		return 0
	}
	return float64(u.Numerator) / float64(u.Denominator) * 100
}

// Record is the result of classifying one line.
type Record struct {
	Kind      RecordKind
	Timestamp string
	Severity  Severity
	Emitter   string
	Message   string

	// Progress is set when Kind is KindProgress.
	Progress ProgressUpdate
	// Diagnostics is set when Kind is KindDiagnostics.
	Diagnostics diag.Batch
	// Text is the ANSI-stripped line when Kind is KindPassthrough, or the
	// drop reason when Kind is KindDrop.
	Text string
}

const diagnosticsMarker = "DIAGNOSTICS: "

var (
	logLineRe  = regexp.MustCompile(`^\[([^\]]*)\]\[([A-Z]+)\] ([^:]+): (.*)$`)
	progressRe = regexp.MustCompile(`^(.*?) - (?:(\d+)/(\d+|done)|done)$`)
	ansiOnlyRe = regexp.MustCompile(`^(?:\x1b\[[0-9;?]*[ -/]*[@-~])+$`)
)

// Parse classifies a single line. The diagnostics marker is checked before
// the general structured-log grammar; anything matching neither is
// passthrough.
func Parse(line string) Record {
	if payload, ok := strings.CutPrefix(line, diagnosticsMarker); ok {
		return parseDiagnostics(payload)
	}

	if m := logLineRe.FindStringSubmatch(line); m != nil {
		if sev, ok := severityNames[m[2]]; ok {
			rec := Record{
				Timestamp: m[1],
				Severity:  sev,
				Emitter:   strings.TrimSpace(m[3]),
				Message:   m[4],
			}
			if sev == SeverityProgress {
				return parseProgress(rec)
			}
			rec.Kind = KindLog
			return rec
		}
		// Unknown level tag: the line is not part of the protocol.
	}

	if ansiOnlyRe.MatchString(line) {
		return Record{Kind: KindDrop, Text: "ansi escape sequence"}
	}

	return Record{Kind: KindPassthrough, Text: stripansi.Strip(line)}
}

// parseProgress decodes the PROGRESS sub-grammar. The line was already
// recognized as structured, so a mismatch drops the record instead of
// falling back to passthrough.
func parseProgress(rec Record) Record {
	m := progressRe.FindStringSubmatch(rec.Message)
	if m == nil {
		rec.Kind = KindDrop
		rec.Text = "malformed progress payload: " + rec.Message
		return rec
	}

	rec.Kind = KindProgress
	rec.Progress.Label = m[1]
	// The completion marker comes either as "<num>/done" or bare "done".
	if m[2] == "" || m[3] == "done" {
		rec.Progress.Done = true
		rec.Progress.Numerator, _ = strconv.Atoi(m[2])
		return rec
	}

	rec.Progress.Numerator, _ = strconv.Atoi(m[2])
	rec.Progress.Denominator, _ = strconv.Atoi(m[3])
	return rec
}

func parseDiagnostics(payload string) Record {
	var batch diag.Batch
	if err := json.Unmarshal([]byte(payload), &batch); err != nil {
		return Record{Kind: KindDrop, Text: "invalid diagnostics payload: " + err.Error()}
	}
	return Record{Kind: KindDiagnostics, Diagnostics: batch}
}
