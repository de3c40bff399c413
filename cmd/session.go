package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hms-project/hmsctl/internal/domain"
)

var errHeadNurseRequiresNurse = errors.New("head-nurse flag requires the nurse role")

type sessionView struct {
	Authenticated bool       `json:"authenticated"`
	SubjectID     string     `json:"subject_id,omitempty"`
	Role          string     `json:"role,omitempty"`
	RoleLabel     string     `json:"role_label"`
	HeadNurse     bool       `json:"head_nurse"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Expired       bool       `json:"expired,omitempty"`
}

func newSessionCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage the stored login session",
	}

	cmd.AddCommand(
		newSessionSetCmd(app),
		newSessionShowCmd(app),
		newSessionRoleCmd(app),
		newSessionHeadNurseCmd(app),
		newSessionLogoutCmd(app),
	)

	return cmd
}

func newSessionSetCmd(app *app) *cobra.Command {
	var subjectID string

	cmd := &cobra.Command{
		Use:   "set <token>",
		Short: "Store a bearer token issued by the backend login",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := strings.TrimSpace(args[0])
			if token == "" {
				return errors.New("token is empty")
			}

			app.session.EstablishSession(cmd.Context(), token, strings.TrimSpace(subjectID))
			snapshot := app.session.Snapshot()

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Session stored for %s (%s)\n", displaySubject(snapshot.SubjectID), snapshot.Role.Label())
			return err
		},
	}

	cmd.Flags().StringVar(&subjectID, "subject", "", "Subject (phone number) to use when the token does not carry one")

	return cmd
}

func newSessionShowCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			view := buildSessionView(app)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}

			out := cmd.OutOrStdout()
			if !view.Authenticated {
				_, err := fmt.Fprintln(out, "Not signed in")
				return err
			}

			_, _ = fmt.Fprintf(out, "subject:\t%s\n", displaySubject(view.SubjectID))
			_, _ = fmt.Fprintf(out, "role:\t%s\n", view.RoleLabel)
			_, _ = fmt.Fprintf(out, "head nurse:\t%t\n", view.HeadNurse)
			if view.ExpiresAt != nil {
				suffix := ""
				if view.Expired {
					suffix = " (expired)"
				}
				_, _ = fmt.Fprintf(out, "expires:\t%s%s\n", view.ExpiresAt.Format(time.RFC3339), suffix)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func newSessionRoleCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "role <role>",
		Short: "Override the role (patient, doctor, nurse, pharmacist, admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := domain.ParseRole(args[0])
			if err != nil {
				return err
			}

			app.session.SetRole(cmd.Context(), role)

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Role set to %s\n", role.Label())
			return err
		},
	}
}

func newSessionHeadNurseCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:       "head-nurse <on|off>",
		Short:     "Mark the signed-in nurse as head nurse",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var flag bool
			switch strings.ToLower(strings.TrimSpace(args[0])) {
			case "on", "true", "1":
				flag = true
			case "off", "false", "0":
				flag = false
			default:
				return fmt.Errorf("invalid head-nurse value %q (want on or off)", args[0])
			}

			if flag && app.session.CurrentRole() != domain.RoleNurse {
				return errHeadNurseRequiresNurse
			}

			app.session.SetHeadNurseFlag(cmd.Context(), flag)

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Head nurse: %t\n", app.session.IsHeadNurse())
			return err
		},
	}
}

func newSessionLogoutCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app.session.TerminateSession(cmd.Context())
			app.engine.Clear()

			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return err
		},
	}
}

func buildSessionView(app *app) sessionView {
	snapshot := app.session.Snapshot()
	view := sessionView{
		Authenticated: snapshot.IsAuthenticated(),
		SubjectID:     snapshot.SubjectID,
		Role:          string(snapshot.Role),
		RoleLabel:     snapshot.Role.Label(),
		HeadNurse:     snapshot.IsHeadNurse(),
	}

	if claims, ok := app.decodeToken(snapshot.Token); ok && !claims.ExpiresAt.IsZero() {
		expiresAt := claims.ExpiresAt
		view.ExpiresAt = &expiresAt
		view.Expired = !app.now().Before(expiresAt)
	}

	return view
}

func displaySubject(subjectID string) string {
	if subjectID == "" {
		return "unknown subject"
	}
	return subjectID
}
