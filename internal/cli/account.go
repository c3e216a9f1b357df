package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/KabriAcid/ScrynCard-sub001/internal/di"
	"github.com/KabriAcid/ScrynCard-sub001/internal/domain"
)

func newAccountCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{Use: "account", Short: "Manage sign-in accounts"}
	cmd.AddCommand(newAccountCreateCommand(opts))
	return cmd
}

func newAccountCreateCommand(opts *options) *cobra.Command {
	var email, name, role, password string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account with a bcrypt password hash",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := domain.ParseRole(role)
			if err != nil {
				return err
			}
			if password == "" {
				password = os.Getenv("SESSIOND_ACCOUNT_PASSWORD")
			}
			if password == "" {
				return errors.New("--password or SESSIOND_ACCOUNT_PASSWORD is required")
			}
			return opts.withToolkit(func(tk *di.Toolkit) error {
				account, err := tk.Auth.CreateAccount(cmd.Context(), email, name, parsed, password)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", account.Role, account.ID, account.Email)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", domain.RolePolitician.String(), "POLITICIAN or ADMIN")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
