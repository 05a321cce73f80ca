package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/regwizard/internal/identity"
	"github.com/xkilldash9x/regwizard/internal/wizard"
)

func newIdentityCmd(st *cliState) *cobra.Command {
	var showPassword bool

	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Prints a freshly generated registrant and the profile the wizard would submit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := identity.New(st.cfg.Wizard().EmailDomain).Generate()
			if err != nil {
				return fmt.Errorf("generating identity: %w", err)
			}
			p := wizard.ProfileFor(id)

			password := fmt.Sprintf("<%d chars>", len(id.Password))
			if showPassword {
				password = id.Password
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:         %s\n", id.FullName())
			fmt.Fprintf(out, "Email:        %s\n", id.Email())
			fmt.Fprintf(out, "Phone:        %s (alt %s)\n", id.Phone, id.AltPhone)
			fmt.Fprintf(out, "Password:     %s\n", password)
			fmt.Fprintf(out, "Agency:       %s\n", p.AgencyName)
			fmt.Fprintf(out, "Website:      %s\n", p.Website)
			fmt.Fprintf(out, "Registration: %s\n", p.RegistrationNo)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showPassword, "show-password", false, "print the generated password")
	return cmd
}
