package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/opsdesk/internal/database"
	"github.com/dukerupert/opsdesk/internal/model"
	"github.com/dukerupert/opsdesk/internal/schedule"
	"github.com/dukerupert/opsdesk/internal/server"
	"github.com/dukerupert/opsdesk/internal/store"
)

func newGridCmd() *cobra.Command {
	var (
		userID  int64
		month   string
		typ     string
		member  int64
		day     string
		compact bool
	)

	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Print a user's month grid (or one day with --day) as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := envFrom(cmd.Context())
			if err != nil {
				return err
			}
			if userID <= 0 {
				return fmt.Errorf("--user is required")
			}

			db, err := database.Open(e.cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			scope, err := scopeForUser(store.NewUserStore(db), userID)
			if err != nil {
				return err
			}

			filters := schedule.FilterSet{MemberID: member}
			if typ != "" {
				filters.Type, err = schedule.ParseType(typ)
				if err != nil {
					return err
				}
			}

			engine := server.NewEngine(db, e.cfg, e.logger.With("component", "schedule"))
			loc := engine.Location()

			var out any
			if day != "" {
				d, err := time.ParseInLocation("2006-01-02", day, loc)
				if err != nil {
					return fmt.Errorf("--day must be YYYY-MM-DD")
				}
				out, err = engine.DayDetail(cmd.Context(), d, scope, filters)
				if err != nil {
					return err
				}
			} else {
				anchor := engine.Now()
				if month != "" {
					anchor, err = time.ParseInLocation("2006-01", month, loc)
					if err != nil {
						return fmt.Errorf("--month must be YYYY-MM")
					}
				}
				out, err = engine.MonthGrid(cmd.Context(), anchor, scope, filters)
				if err != nil {
					return err
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(out)
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "User id to view the schedule as")
	cmd.Flags().StringVar(&month, "month", "", "Month to render, YYYY-MM (default: current month)")
	cmd.Flags().StringVar(&day, "day", "", "Render one day's full list instead, YYYY-MM-DD")
	cmd.Flags().StringVar(&typ, "type", "", "Only show events of this type")
	cmd.Flags().Int64Var(&member, "member", 0, "Drill down into one team member (managers and admins)")
	cmd.Flags().BoolVar(&compact, "compact", false, "Print JSON on one line")
	return cmd
}

func scopeForUser(us *store.UserStore, id int64) (schedule.Scope, error) {
	u, err := us.GetByID(id)
	if err != nil {
		return schedule.Scope{}, err
	}
	if u == nil {
		return schedule.Scope{}, fmt.Errorf("user %d not found", id)
	}
	scope := schedule.Scope{ActorID: u.ID, Role: u.Role}
	if u.Role == model.RoleManager {
		scope.TeamIDs, err = us.ListTeamIDs(u.ID)
		if err != nil {
			return schedule.Scope{}, err
		}
	}
	return scope, nil
}
