// Package testreport ingests the JUnit XML report the test verb writes
// and reduces it to aggregate counts for display.
package testreport

import (
	"fmt"
	"time"

	"github.com/joshdk/go-junit"
)

// Summary aggregates test results across all suites in a report.
type Summary struct {
	Tests    int
	Failures int
	Errors   int
	Skipped  int
	Duration time.Duration
}

// Passed returns the number of test cases that ran and succeeded.
func (s Summary) Passed() int {
	return s.Tests - s.Failures - s.Errors - s.Skipped
}

// Ok reports whether the run had no failing or erroring cases.
func (s Summary) Ok() bool {
	return s.Failures == 0 && s.Errors == 0
}

// String renders the one-line report shown after a test run.
func (s Summary) String() string {
	return fmt.Sprintf("%d tests, %d passed, %d failed, %d errored, %d skipped in %s",
		s.Tests, s.Passed(), s.Failures, s.Errors, s.Skipped, s.Duration.Round(time.Millisecond))
}

// FromFile reads a JUnit XML report. go-junit accepts all the usual
// variants: single testsuite, testsuites wrapper, multiple roots. It also
// tolerates non-XML garbage by yielding no suites, so an empty parse is
// rejected here rather than reported as zero tests.
func FromFile(path string) (Summary, error) {
	suites, err := junit.IngestFile(path)
	if err != nil {
		return Summary{}, fmt.Errorf("reading test report %s: %w", path, err)
	}
	if len(suites) == 0 {
		return Summary{}, fmt.Errorf("test report %s contains no suites", path)
	}
	return summarize(suites), nil
}

func summarize(suites []junit.Suite) Summary {
	var s Summary
	for _, suite := range suites {
		s.Tests += len(suite.Tests)
		for _, test := range suite.Tests {
			switch test.Status {
			case junit.StatusFailed:
				s.Failures++
			case junit.StatusError:
				s.Errors++
			case junit.StatusSkipped:
				s.Skipped++
			}
			s.Duration += test.Duration
		}
	}
	return s
}
