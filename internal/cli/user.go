package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dukerupert/opsdesk/internal/auth"
	"github.com/dukerupert/opsdesk/internal/database"
	"github.com/dukerupert/opsdesk/internal/model"
	"github.com/dukerupert/opsdesk/internal/store"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(newUserAddCmd())
	cmd.AddCommand(newUserListCmd())
	cmd.AddCommand(newUserDeleteCmd())
	return cmd
}

func newUserAddCmd() *cobra.Command {
	var (
		email     string
		name      string
		role      string
		managerID int64
		password  string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := envFrom(cmd.Context())
			if err != nil {
				return err
			}

			email = strings.ToLower(strings.TrimSpace(email))
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			r := model.Role(role)
			if !r.Valid() {
				return fmt.Errorf("unknown role %q", role)
			}
			if name == "" {
				name = email
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}

			db, err := database.Open(e.cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			us := store.NewUserStore(db)
			var manager *int64
			if managerID > 0 {
				m, err := us.GetByID(managerID)
				if err != nil {
					return err
				}
				if m == nil {
					return fmt.Errorf("manager %d not found", managerID)
				}
				manager = &managerID
			}

			u, err := us.Create(email, name, r, manager, hash)
			if err != nil {
				return err
			}
			e.logger.Info("user created", "user_id", u.ID, "role", u.Role)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created user %d (%s, %s)\n", u.ID, u.Email, u.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Login email")
	cmd.Flags().StringVar(&name, "name", "", "Display name (default: email)")
	cmd.Flags().StringVar(&role, "role", string(model.RoleEmployee), "admin, manager, sales or employee")
	cmd.Flags().Int64Var(&managerID, "manager", 0, "Id of the user's manager")
	cmd.Flags().StringVar(&password, "password", "", "Initial password, at least 8 characters")
	return cmd
}

func newUserListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := envFrom(cmd.Context())
			if err != nil {
				return err
			}
			db, err := database.Open(e.cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			users, err := store.NewUserStore(db).List()
			if err != nil {
				return err
			}
			if len(users) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No users")
				return nil
			}
			for _, u := range users {
				manager := "-"
				if u.ManagerID != nil {
					manager = fmt.Sprint(*u.ManagerID)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d  %s  %q  %s  manager=%s\n", u.ID, u.Email, u.Name, u.Role, manager)
			}
			return nil
		},
	}
}

// newUserDeleteCmd removes an account. Sessions, schedule entries and
// follow-ups owned by the user go with it.
func newUserDeleteCmd() *cobra.Command {
	var id int64

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := envFrom(cmd.Context())
			if err != nil {
				return err
			}
			if id <= 0 {
				return fmt.Errorf("--id is required")
			}

			db, err := database.Open(e.cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			us := store.NewUserStore(db)
			u, err := us.GetByID(id)
			if err != nil {
				return err
			}
			if u == nil {
				return fmt.Errorf("user %d not found", id)
			}
			if err := us.Delete(id); err != nil {
				return err
			}
			e.logger.Info("user deleted", "user_id", id)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted user %d (%s)\n", u.ID, u.Email)
			return nil
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "Id of the user to delete")
	return cmd
}
