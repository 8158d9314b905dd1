package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/meetsched/internal/auth"
	"github.com/example/meetsched/internal/domain/scheduling"
)

func newOwnerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "owner",
		Short: "Manage owners (hosts who publish meeting types)",
	}
	cmd.AddCommand(newOwnerAddCmd())
	return cmd
}

func newOwnerAddCmd() *cobra.Command {
	var email, name, password string

	c := &cobra.Command{
		Use:   "add",
		Short: "Add an owner with an email/password login",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("MEETSCHED_OWNER_PASSWORD")
			}
			if password == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if len(password) < 8 {
				return fmt.Errorf("password must be at least 8 characters")
			}

			ctx := context.Background()
			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			o, err := a.store.Owners.Create(ctx, scheduling.Owner{Email: email, Name: name, PasswordHash: hash})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created owner %s (%s)\n", o.ID, o.Email)
			return nil
		},
	}

	c.Flags().StringVar(&email, "email", "", "login email")
	c.Flags().StringVar(&name, "name", "", "display name used in invitations")
	c.Flags().StringVar(&password, "password", "", "password (or MEETSCHED_OWNER_PASSWORD, or prompt)")
	_ = c.MarkFlagRequired("email")
	_ = c.MarkFlagRequired("name")
	return c
}
