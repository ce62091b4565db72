package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// NewAccountsCmd creates the accounts command group.
func NewAccountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Administer accounts",
	}

	var identifier string
	promote := &cobra.Command{
		Use:   "promote",
		Short: "Grant the admin role to an account",
		Long: `Grant the admin role to the account identified by email or phone.
Admin rights are never granted through self registration.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if identifier == "" {
				return oops.Code("INVALID_ARGUMENT").Errorf("--identifier is required")
			}
			container, cleanup, err := loadContainer(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			acct, err := container.AccountSvc.Elevate(cmd.Context(), identifier)
			if err != nil {
				return err
			}
			cmd.Printf("Account %s (%s) is now %s\n", acct.ID, acct.Email, acct.Role)
			return nil
		},
	}
	promote.Flags().StringVar(&identifier, "identifier", "", "email or phone of the account")
	cmd.AddCommand(promote)
	return cmd
}
