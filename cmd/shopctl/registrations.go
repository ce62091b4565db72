package main

import (
	"github.com/spf13/cobra"
)

// NewRegistrationsCmd creates the registrations command group.
func NewRegistrationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registrations",
		Short: "Maintain pending registrations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Delete pending registrations whose code has expired",
		RunE: func(cmd *cobra.Command, _ []string) error {
			container, cleanup, err := loadContainer(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			n, err := container.Registration.SweepExpired(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("Removed %d expired registration(s)\n", n)
			return nil
		},
	})
	return cmd
}
