package domain

import (
	"fmt"
	"strings"
)

// ValidationError represents invalid user input: malformed flags, durations
// above the cap, empty keywords. It is reported back to the invoking user and
// is never fatal.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// AliasCycleError is returned when alias expansion detects a cycle.
// Chain holds the alias names applied in order, ending with the name that
// closed the cycle.
type AliasCycleError struct {
	Chain []string
}

func (e *AliasCycleError) Error() string {
	return fmt.Sprintf("recursive alias: %s", strings.Join(e.Chain, " -> "))
}
