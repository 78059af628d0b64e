package services

import (
	"context"
	"sort"
	"strings"

	"github.com/isdelr/pinboard-be/internal/events"
	"github.com/rs/zerolog/log"
)

// Client-facing messages for field errors raised outside input validation.
const (
	msgEmailExists   = "Email address already exists!!! Proceed to Login."
	msgNameTaken     = "This username is already taken. Please choose a different one."
	msgNoAccount     = "The email you entered does not belong to any account."
	msgWrongPassword = "The entered password is incorrect"
	msgPasswordLong  = "Password must be at most 72 bytes"
	msgUserID        = "A valid userId is required"
)

// ValidationError reports client input problems, one message per field.
type ValidationError struct {
	Errors map[string]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for f := range e.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return "invalid input: " + strings.Join(fields, ", ")
}

func fieldError(field, msg string) *ValidationError {
	return &ValidationError{Errors: map[string]string{field: msg}}
}

// publish sends an activity event, logging rather than failing on error.
func publish(ctx context.Context, p events.Publisher, e events.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		log.Warn().Err(err).Str("event", e.Type).Msg("Failed to publish event")
	}
}
