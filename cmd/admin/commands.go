package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"grievance/backend/internal/apperrors"
	"grievance/backend/internal/assignment"
	"grievance/backend/internal/auth"
	"grievance/backend/internal/config"
	"grievance/backend/internal/lifecycle"
	"grievance/backend/internal/logger"
	"grievance/backend/internal/models"
	"grievance/backend/internal/notify"
	"grievance/backend/internal/routing"
	"grievance/backend/internal/storage"
)

// app carries what the commands share. The database is opened on first use
// so commands that do not need it run without one.
type app struct {
	cfg     *config.Settings
	log     *slog.Logger
	store   *storage.Service
	adminID uint
}

func (a *app) storage() (*storage.Service, error) {
	if a.store != nil {
		return a.store, nil
	}
	db, err := storage.OpenPostgres(a.cfg.Database, a.log)
	if err != nil {
		return nil, err
	}
	a.store = storage.NewStorageService(db, nil)
	return a.store, nil
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "admin",
		Short:        "Grievance backend administration",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg != nil {
				return nil
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := logger.Init(cfg.Logger, cfg.Server.Mode); err != nil {
				return err
			}
			a.cfg, a.log = cfg, logger.WithComponent("admin")
			return nil
		},
	}
	root.PersistentFlags().UintVar(&a.adminID, "admin-id", 1, "Administrator user id recorded in the audit log")

	root.AddCommand(
		newSeedCommand(a),
		newOfficerCommand(a),
		newTokenCommand(a),
		newAssignCommand(a),
		newReopenCommand(a),
	)
	return root
}

func newSeedCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Migrate the schema and seed the department registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := a.storage()
			if err != nil {
				return err
			}
			if err := s.Migrate(ctx); err != nil {
				return err
			}
			n, err := routing.SeedDepartments(ctx, s, config.Keywords().Registry, a.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d departments created\n", n)
			return nil
		},
	}
}

func newOfficerCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "officer",
		Short: "Manage department officers",
	}

	var (
		in         assignment.OfficerInput
		department string
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Register an officer with a department",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := a.storage()
			if err != nil {
				return err
			}
			d, err := s.FindDepartmentByNameFold(ctx, department)
			if err != nil {
				return err
			}
			if d == nil {
				return apperrors.NewNotFoundError(fmt.Sprintf("department %q not found", department))
			}
			in.DepartmentID = d.ID

			o, err := assignment.NewService(s, notify.Noop{}, a.log).RegisterOfficer(ctx, in, a.adminID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "officer %s registered with id %d in %s\n", o.EmployeeID, o.ID, d.Name)
			return nil
		},
	}
	add.Flags().StringVar(&in.EmployeeID, "employee-id", "", "Municipal employee code")
	add.Flags().StringVar(&in.Name, "name", "", "Full name")
	add.Flags().StringVar(&in.Designation, "designation", "", "Job title")
	add.Flags().StringVar(&department, "department", "", "Department name")
	add.Flags().StringVar(&in.Ward, "ward", "", "Ward served")
	add.Flags().StringVar(&in.Email, "email", "", "Email address")
	add.Flags().Int64Var(&in.TelegramChatID, "telegram-chat-id", 0, "Telegram chat for assignment notices")
	_ = add.MarkFlagRequired("employee-id")
	_ = add.MarkFlagRequired("name")
	_ = add.MarkFlagRequired("department")

	cmd.AddCommand(add)
	return cmd
}

// newTokenCommand mints a development token signed with the configured
// secret.
func newTokenCommand(a *app) *cobra.Command {
	var (
		userID    uint
		role      string
		officerID uint
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id := auth.Identity{UserID: userID, Role: models.Role(role)}
			if officerID != 0 {
				id.OfficerID = &officerID
			}
			token, err := auth.NewManager(a.cfg.Auth).Issue(id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().UintVar(&userID, "user-id", 0, "Subject user id")
	cmd.Flags().StringVar(&role, "role", string(models.RoleUser), "USER, OFFICER or ADMIN")
	cmd.Flags().UintVar(&officerID, "officer-id", 0, "Officer id, required for OFFICER")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}

func newAssignCommand(a *app) *cobra.Command {
	var priority string
	cmd := &cobra.Command{
		Use:   "assign <complaint_id> <officer_id>",
		Short: "Assign an unassigned complaint to an officer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			complaintID, err := parseID(args[0])
			if err != nil {
				return err
			}
			officerID, err := parseID(args[1])
			if err != nil {
				return err
			}
			s, err := a.storage()
			if err != nil {
				return err
			}
			c, err := assignment.NewService(s, notify.Noop{}, a.log).Assign(cmd.Context(), assignment.AssignCommand{
				ComplaintID: complaintID,
				OfficerID:   officerID,
				AdminID:     a.adminID,
				Priority:    models.Priority(priority),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "complaint %d assigned to officer %d, due %s\n",
				c.ID, officerID, c.SLADeadline.Format("2006-01-02 15:04 MST"))
			return nil
		},
	}
	cmd.Flags().StringVar(&priority, "priority", "", "Override priority (Critical, High, Medium, Low)")
	return cmd
}

func newReopenCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reopen <complaint_id>",
		Short: "Reopen an archived complaint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			complaintID, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := a.storage()
			if err != nil {
				return err
			}
			if _, err := lifecycle.NewService(s, a.log).Reopen(cmd.Context(), complaintID, a.adminID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "complaint %d reopened\n", complaintID)
			return nil
		},
	}
}

func parseID(s string) (uint, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil || v == 0 {
		return 0, apperrors.NewValidationError(fmt.Sprintf("invalid id %q", s))
	}
	return uint(v), nil
}
