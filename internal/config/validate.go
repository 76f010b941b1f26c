package config

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// ValidationError represents a settings validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationResult holds the results of settings validation
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationError
}

func (r *ValidationResult) addError(field, message string) {
	r.Valid = false
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message})
}

func (r *ValidationResult) addWarning(field, message string) {
	r.Warnings = append(r.Warnings, ValidationError{Field: field, Message: message})
}

var verbosityNames = map[string]bool{
	"quiet": true, "error": true, "warn": true, "warning": true,
	"info": true, "debug": true, "trace": true,
}

// Validate checks an already-loaded settings value.
func Validate(s *Settings) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if s == nil {
		return result
	}

	if s.Verbosity != "" && !verbosityNames[s.Verbosity] {
		result.addError("verbosity", fmt.Sprintf("unknown verbosity %q", s.Verbosity))
	}

	if len(s.Tool) > 0 && s.Tool[0] == "" {
		result.addError("tool", "tool prefix must not start with an empty element")
	}

	for i, pattern := range s.Diagnostics.Include {
		if !doublestar.ValidatePattern(pattern) {
			result.addError(fmt.Sprintf("diagnostics.include[%d]", i),
				fmt.Sprintf("invalid glob pattern %q", pattern))
		}
	}

	for verb := range s.Verbs {
		if !knownVerbs[verb] {
			result.addWarning("verbs."+verb, "not a known build tool verb")
		}
	}

	return result
}

var knownVerbs = map[string]bool{
	"configure":       true,
	"code":            true,
	"run":             true,
	"test":            true,
	"clean":           true,
	"scan-toolchains": true,
}
