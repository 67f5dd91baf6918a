package schedule

import "github.com/dukerupert/opsdesk/internal/model"

// FilterSet holds the user-selected facets. A zero FilterSet keeps
// everything the viewer's scope allows.
type FilterSet struct {
	Type     EventType
	MemberID int64
}

func (f FilterSet) allTypes() bool {
	return f.Type == "" || f.Type == TypeAll
}

// Apply returns the events matching the type facet. The input slice is not
// modified.
func Apply(events []CalendarEvent, f FilterSet) []CalendarEvent {
	out := make([]CalendarEvent, 0, len(events))
	for _, ev := range events {
		if f.allTypes() || ev.Type == f.Type {
			out = append(out, ev)
		}
	}
	return out
}

// narrowScope applies the member facet. Drilling into a member re-scopes
// the sources to that member's own calendar instead of post-filtering, so
// the result never includes events the member view would not. Managers may
// drill into their team, admins into anyone, everyone into themselves.
func narrowScope(scope Scope, f FilterSet) (Scope, bool, error) {
	if f.MemberID == 0 || f.MemberID == scope.ActorID {
		return scope, false, nil
	}
	switch {
	case scope.Role == model.RoleAdmin:
	case scope.Role == model.RoleManager && scope.InTeam(f.MemberID):
	default:
		return Scope{}, false, ErrMemberNotInTeam
	}
	return Scope{ActorID: f.MemberID}, true, nil
}
