package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/manabi/core"
	"github.com/trezcool/manabi/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errEmptyPassword = errors.New("password cannot be empty")
)

// addUserCmd updates or creates a user; the password is prompted.
func (cli *commandLine) addUserCmd() *cobra.Command {
	var name, email, role string

	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create or update a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.Print("Enter password:")
			pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
			cmd.Println()
			if err != nil {
				return errors.Wrap(err, "reading password")
			}
			if len(pwd) == 0 {
				return errEmptyPassword
			}

			usr, err := cli.usrSvc.Save(cmd.Context(), user.NewUser{
				Name:     name,
				Email:    email,
				Role:     core.Role(role),
				Password: string(pwd),
			})
			if err != nil {
				return err
			}
			cmd.Printf("user %d <%s> saved as %s\n", usr.ID, usr.Email, usr.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "the user's email (required)")
	cmd.Flags().StringVar(&name, "name", "", "the user's name (required)")
	cmd.Flags().StringVar(&role, "role", string(core.RoleStudent), "student, teacher or admin")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
