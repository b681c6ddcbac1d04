// Package outcome defines the classified terminal result of a scenario and
// the pure classifier that maps observed page state onto it.
//
// An Outcome carries exactly one tag. Success carries the path the
// application settled on, ValidationError and AuthDenied carry the message
// the application showed, Timeout carries nothing.
package outcome

import (
	"encoding/json"
	"fmt"
)

// Kind is the tag of an Outcome.
type Kind string

const (
	KindSuccess         Kind = "success"
	KindValidationError Kind = "validation_error"
	KindAuthDenied      Kind = "auth_denied"
	KindTimeout         Kind = "timeout"
)

// ParseKind accepts the snake_case names used in scenario files.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindSuccess, KindValidationError, KindAuthDenied, KindTimeout:
		return k, nil
	}
	return "", fmt.Errorf("unknown outcome %q: must be one of success, validation_error, auth_denied, timeout", s)
}

// Outcome is a tagged result. Use the constructors; the zero value is not a
// valid outcome.
type Outcome struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message,omitempty"`
	Target  string `json:"target,omitempty"`
}

func Success(target string) Outcome {
	return Outcome{Kind: KindSuccess, Target: target}
}

func ValidationError(message string) Outcome {
	return Outcome{Kind: KindValidationError, Message: message}
}

func AuthDenied(message string) Outcome {
	return Outcome{Kind: KindAuthDenied, Message: message}
}

func Timeout() Outcome {
	return Outcome{Kind: KindTimeout}
}

// IsZero reports whether o was never assigned a tag.
func (o Outcome) IsZero() bool {
	return o.Kind == ""
}

// Equal is structural equality: same tag, and for tags that carry a payload
// the same payload.
func (o Outcome) Equal(other Outcome) bool {
	if o.Kind != other.Kind {
		return false
	}
	switch o.Kind {
	case KindSuccess:
		return o.Target == other.Target
	case KindValidationError, KindAuthDenied:
		return o.Message == other.Message
	default:
		return true
	}
}

func (o Outcome) String() string {
	switch o.Kind {
	case KindSuccess:
		return fmt.Sprintf("Success(%s)", o.Target)
	case KindValidationError:
		return fmt.Sprintf("ValidationError(%q)", o.Message)
	case KindAuthDenied:
		return fmt.Sprintf("AuthDenied(%q)", o.Message)
	case KindTimeout:
		return "Timeout"
	default:
		return "<none>"
	}
}

// MarshalJSON drops payload fields that do not belong to the tag.
func (o Outcome) MarshalJSON() ([]byte, error) {
	type wire Outcome
	w := wire(o)
	switch o.Kind {
	case KindSuccess:
		w.Message = ""
	case KindValidationError, KindAuthDenied:
		w.Target = ""
	case KindTimeout:
		w.Message, w.Target = "", ""
	}
	return json.Marshal(w)
}
