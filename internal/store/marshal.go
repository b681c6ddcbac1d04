package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/pagecheck/internal/outcome"
)

func marshalOutcome(o outcome.Outcome) (string, error) {
	if o.IsZero() {
		return "{}", nil
	}
	b, err := json.Marshal(o)
	if err != nil {
		return "", fmt.Errorf("marshal outcome: %w", err)
	}
	return string(b), nil
}

func unmarshalOutcome(s string) (outcome.Outcome, error) {
	var o outcome.Outcome
	if err := json.Unmarshal([]byte(s), &o); err != nil {
		return outcome.Outcome{}, fmt.Errorf("unmarshal outcome: %w", err)
	}
	return o, nil
}

func marshalErrors(errs []string) (string, error) {
	if len(errs) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(errs)
	if err != nil {
		return "", fmt.Errorf("marshal errors: %w", err)
	}
	return string(b), nil
}

// unmarshalErrors returns nil for an empty list so round-tripped entries
// compare equal to the ones the report built.
func unmarshalErrors(s string) ([]string, error) {
	var errs []string
	if err := json.Unmarshal([]byte(s), &errs); err != nil {
		return nil, fmt.Errorf("unmarshal errors: %w", err)
	}
	if len(errs) == 0 {
		return nil, nil
	}
	return errs, nil
}
