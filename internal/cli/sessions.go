package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/KabriAcid/ScrynCard-sub001/internal/di"
	"github.com/KabriAcid/ScrynCard-sub001/internal/domain"
	"github.com/KabriAcid/ScrynCard-sub001/internal/service"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true)
)

func newSessionsCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{Use: "sessions", Short: "Inspect and revoke sessions"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list <user-id>",
			Short: "Show a user's active sessions",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withToolkit(func(tk *di.Toolkit) error {
					views, err := tk.Sessions.ListActive(cmd.Context(), args[0], "")
					if err != nil {
						return err
					}
					return renderSessions(cmd.OutOrStdout(), args[0], views)
				})
			},
		},
		&cobra.Command{
			Use:   "revoke-all <user-id>",
			Short: "Revoke every active session of a user",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withToolkit(func(tk *di.Toolkit) error {
					n, err := tk.Sessions.RevokeAll(cmd.Context(), args[0], domain.ReasonAdminRevoked)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintf(cmd.OutOrStdout(), "revoked %d session(s)\n", n)
					return err
				})
			},
		},
	)
	return cmd
}

func renderSessions(w io.Writer, userID string, views []service.SessionView) error {
	if len(views) == 0 {
		_, err := fmt.Fprintf(w, "no active sessions for %s\n", userID)
		return err
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("SESSION", "ROLE", "CREATED", "LAST SEEN", "EXPIRES", "IP", "USER AGENT").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, v := range views {
		t.Row(
			v.ID,
			v.Role.String(),
			v.CreatedAt.Format(time.RFC3339),
			v.LastSeenAt.Format(time.RFC3339),
			v.ExpiresAt.Format(time.RFC3339),
			deref(v.IP),
			deref(v.UserAgent),
		)
	}
	_, err := fmt.Fprintf(w, "%s\n%s\n", titleStyle.Render(fmt.Sprintf("%d active session(s) for %s", len(views), userID)), t.Render())
	return err
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
