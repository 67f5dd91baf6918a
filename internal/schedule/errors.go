package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable marks a source that could not be read during a
	// range build.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrLeadNotFound marks a follow-up whose lead could not be resolved.
	ErrLeadNotFound = errors.New("lead not found")
	// ErrMemberNotInTeam is returned when a member filter names someone the
	// viewer may not drill into.
	ErrMemberNotInTeam = errors.New("member is not on the viewer's team")
	// ErrUnknownRole is returned when no view is registered for a role.
	ErrUnknownRole = errors.New("no schedule view for role")
)

// ValidationError rejects a create request before anything is written.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// PolicyError rejects a mutation the event's source does not allow from the
// schedule.
type PolicyError struct {
	Kind    Kind
	Message string
}

func (e *PolicyError) Error() string {
	return e.Message
}

// SourceError reports a source that degraded a range build. Events from the
// other sources are still returned.
type SourceError struct {
	Kind Kind
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s source: %v", e.Kind, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

func (e *SourceError) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		"source": string(e.Kind),
		"error":  e.Err.Error(),
	})
}
