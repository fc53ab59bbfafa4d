package event

import (
	"fmt"
	"time"
)

// FieldError is a single field's validation failure.
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"message"`
}

func (e FieldError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Msg) }

const DefaultCurrency = "USD"

// ValidateSubmission performs strict checks before any defaulting. A failure
// rejects the whole submission; there is no partial acceptance.
func ValidateSubmission(sub *Submission) []FieldError {
	var errs []FieldError

	if sub.EventName == "" {
		errs = append(errs, FieldError{"event_name", "required"})
	} else if !Name(sub.EventName).Valid() {
		errs = append(errs, FieldError{"event_name", fmt.Sprintf("must be one of %q, %q, %q", LeadSubmitted, LeadQualified, DealWon)})
	}

	if sub.Lead == nil {
		errs = append(errs, FieldError{"lead", "required"})
	} else if sub.Lead.Value < 0 {
		errs = append(errs, FieldError{"lead.value", "must not be negative"})
	}

	if sub.EventTime != "" {
		if _, err := time.Parse(time.RFC3339, sub.EventTime); err != nil {
			errs = append(errs, FieldError{"event_time", "must be RFC 3339"})
		}
	}

	return errs
}
