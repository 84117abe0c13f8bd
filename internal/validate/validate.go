// Package validate rejects malformed input before it reaches the lifecycle
// engine. Every failure is a *domain.ValidationError.
package validate

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"planwise/internal/config"
	"planwise/internal/domain"
	"planwise/internal/domain/models/planning"
)

// UUID is an ozzo rule accepting canonical UUID strings. Empty values pass so
// it composes with validation.Required.
var UUID = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := uuid.Parse(s); err != nil {
		return errors.New("must be a valid UUID")
	}
	return nil
})

// StepRules bound a workflow step number.
var StepRules = []validation.Rule{
	validation.Required.Error(fmt.Sprintf("must be between %d and %d", config.MinWorkflowStep, config.MaxWorkflowStep)),
	validation.Min(config.MinWorkflowStep),
	validation.Max(config.MaxWorkflowStep),
}

// Wrap converts an ozzo error into a domain validation error. Nil stays nil.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	var internal validation.InternalError
	if errors.As(err, &internal) {
		return fmt.Errorf("validation rule failed: %w", err)
	}
	return &domain.ValidationError{Message: err.Error()}
}

// ID checks that value is a UUID; name labels the field in the message.
func ID(name, value string) error {
	return Wrap(validation.Errors{
		name: validation.Validate(value, validation.Required, UUID),
	}.Filter())
}

// UserID checks a caller identity. Identity providers issue opaque subjects,
// so only presence and length are enforced.
func UserID(value string) error {
	if strings.TrimSpace(value) == "" {
		return &domain.UnauthorizedError{Message: "authentication required"}
	}
	if len(value) > 255 {
		return &domain.ValidationError{Message: "user_id: the length must be no more than 255."}
	}
	return nil
}

// Step checks a workflow step number.
func Step(step int) error {
	return Wrap(validation.Errors{
		"workflow_step": validation.Validate(step, StepRules...),
	}.Filter())
}

// Version checks a version number.
func Version(name string, v int) error {
	return Wrap(validation.Errors{
		name: validation.Validate(v, validation.Required.Error("must be at least 1"), validation.Min(1)),
	}.Filter())
}

// Title checks a document title.
func Title(title string) error {
	return Wrap(validation.Errors{
		"title": validation.Validate(strings.TrimSpace(title),
			validation.Required,
			validation.RuneLength(1, config.MaxDocumentTitleLength),
		),
	}.Filter())
}

// Content checks document content. Empty content is allowed.
func Content(content string) error {
	return Wrap(validation.Errors{
		"content": validation.Validate(content, validation.RuneLength(0, config.MaxDocumentContentLength)),
	}.Filter())
}

// ChatMessage checks a user chat message.
func ChatMessage(message string) error {
	return Wrap(validation.Errors{
		"message": validation.Validate(strings.TrimSpace(message),
			validation.Required,
			validation.RuneLength(1, config.MaxChatMessageLength),
		),
	}.Filter())
}

// Reason checks an optional rejection reason.
func Reason(reason *string) error {
	if reason == nil {
		return nil
	}
	return Wrap(validation.Errors{
		"reason": validation.Validate(*reason, validation.RuneLength(0, config.MaxRejectReasonLength)),
	}.Filter())
}

// Status parses a status filter value. Only lifecycle statuses are accepted.
func Status(value string) (planning.DocumentStatus, error) {
	for _, s := range planning.PublicStatuses {
		if string(s) == value {
			return s, nil
		}
	}
	return "", &domain.ValidationError{Message: fmt.Sprintf("status: %q is not a valid document status", value)}
}
