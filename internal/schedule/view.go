package schedule

import (
	"fmt"
	"slices"

	"github.com/dukerupert/opsdesk/internal/model"
)

// Scope is the acting user as seen by the schedule. TeamIDs lists direct
// reports and is only populated for managers.
type Scope struct {
	ActorID int64
	Role    model.Role
	TeamIDs []int64
}

// InTeam reports whether userID reports to the actor.
func (s Scope) InTeam(userID int64) bool {
	return slices.Contains(s.TeamIDs, userID)
}

// View holds the scoping predicate for each source. A nil predicate hides
// that source entirely and its store is not queried.
type View struct {
	Tasks     func(model.Task) bool
	Entries   func(model.ScheduleEntry) bool
	FollowUps func(model.FollowUp) bool
}

// ViewFunc builds the View for a scope.
type ViewFunc func(Scope) View

// ManualVisibility controls which manual entries the sales calendar shows.
type ManualVisibility string

const (
	// ManualShared shows every manual entry, as a shared team calendar.
	ManualShared ManualVisibility = "shared"
	// ManualOwner shows only entries the viewer created.
	ManualOwner ManualVisibility = "owner"
)

// ParseManualVisibility validates a configured visibility value.
func ParseManualVisibility(s string) (ManualVisibility, error) {
	switch v := ManualVisibility(s); v {
	case ManualShared, ManualOwner:
		return v, nil
	case "":
		return ManualShared, nil
	}
	return "", fmt.Errorf("unknown manual entry visibility %q", s)
}

func isRelevantTask(t model.Task, actorID int64) bool {
	if t.IsAssignedTo(actorID) {
		return true
	}
	if t.DelegatedBy != nil && *t.DelegatedBy == actorID {
		return true
	}
	return t.AssignedToManager != nil && *t.AssignedToManager == actorID
}

func ownedBy(actorID int64) func(model.ScheduleEntry) bool {
	return func(e model.ScheduleEntry) bool { return e.OwnerID == actorID }
}

func always[T any](T) bool { return true }

// ManagerView shows tasks the manager is assigned, delegated or escalated,
// the manager's own manual entries and follow-ups across the team.
func ManagerView(s Scope) View {
	return View{
		Tasks:   func(t model.Task) bool { return isRelevantTask(t, s.ActorID) },
		Entries: ownedBy(s.ActorID),
		FollowUps: func(f model.FollowUp) bool {
			return f.SalesRepID == s.ActorID || s.InTeam(f.SalesRepID)
		},
	}
}

// SalesView shows tasks the rep is assigned or delegated, the rep's own
// follow-ups and manual entries according to vis.
func SalesView(vis ManualVisibility) ViewFunc {
	return func(s Scope) View {
		entries := always[model.ScheduleEntry]
		if vis == ManualOwner {
			entries = ownedBy(s.ActorID)
		}
		return View{
			Tasks: func(t model.Task) bool {
				return t.IsAssignedTo(s.ActorID) || (t.DelegatedBy != nil && *t.DelegatedBy == s.ActorID)
			},
			Entries:   entries,
			FollowUps: func(f model.FollowUp) bool { return f.SalesRepID == s.ActorID },
		}
	}
}

// EmployeeView shows assigned tasks and the employee's own entries. The CRM
// source is hidden.
func EmployeeView(s Scope) View {
	return View{
		Tasks:   func(t model.Task) bool { return t.IsAssignedTo(s.ActorID) },
		Entries: ownedBy(s.ActorID),
	}
}

// AdminView shows everything.
func AdminView(Scope) View {
	return View{
		Tasks:     always[model.Task],
		Entries:   always[model.ScheduleEntry],
		FollowUps: always[model.FollowUp],
	}
}

// PersonalView is one member's own calendar. It backs member drill-down.
func PersonalView(s Scope) View {
	return View{
		Tasks:     func(t model.Task) bool { return isRelevantTask(t, s.ActorID) },
		Entries:   ownedBy(s.ActorID),
		FollowUps: func(f model.FollowUp) bool { return f.SalesRepID == s.ActorID },
	}
}

// DefaultViews maps every role to its built-in view.
func DefaultViews(salesManual ManualVisibility) map[model.Role]ViewFunc {
	return map[model.Role]ViewFunc{
		model.RoleAdmin:    AdminView,
		model.RoleManager:  ManagerView,
		model.RoleSales:    SalesView(salesManual),
		model.RoleEmployee: EmployeeView,
	}
}
