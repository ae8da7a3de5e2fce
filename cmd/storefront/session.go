package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jrsteele09/storefront-session/auth"
	"github.com/jrsteele09/storefront-session/internal/config"
	"github.com/jrsteele09/storefront-session/internal/errors"
	"github.com/jrsteele09/storefront-session/profile"
	"github.com/jrsteele09/storefront-session/token"
	"github.com/spf13/cobra"
)

func loginCmd(cfg config.Config, flags *globalFlags) *cobra.Command {
	var roleName, email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in as admin or customer",
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := profile.ParseRole(roleName)
			if err != nil {
				return err
			}
			if password == "" {
				password = os.Getenv("STOREFRONT_PASSWORD")
			}

			a, err := newApp(cmd.Context(), cfg, flags)
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.controller.Login(cmd.Context(), email, password, role)
			if err != nil {
				var rejected *errors.LoginRejectedError
				if errors.As(err, &rejected) {
					return fmt.Errorf("login rejected: %s", rejected.Message)
				}
				return err
			}

			fmt.Printf("Logged in as %s (%s)\n", displayName(result.User), role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&roleName, "role", "r", string(profile.RoleCustomer), "admin or customer")
	cmd.Flags().StringVarP(&email, "email", "e", "", "login email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (defaults to $STOREFRONT_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func logoutCmd(cfg config.Config, flags *globalFlags) *cobra.Command {
	var roleName string
	var all bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "End one role's session, or both with --all",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && roleName == "" {
				return fmt.Errorf("either --role or --all is required")
			}

			a, err := newApp(cmd.Context(), cfg, flags)
			if err != nil {
				return err
			}
			defer a.close()

			if all {
				a.controller.LogoutAll(cmd.Context())
				fmt.Println("Logged out of all sessions")
				return nil
			}

			role, err := profile.ParseRole(roleName)
			if err != nil {
				return err
			}
			if err := a.controller.Logout(cmd.Context(), role); err != nil {
				return err
			}
			fmt.Printf("Logged out of %s session\n", role)
			printState(os.Stdout, a.controller.State(), token.NewCodec())
			return nil
		},
	}
	cmd.Flags().StringVarP(&roleName, "role", "r", "", "admin or customer")
	cmd.Flags().BoolVar(&all, "all", false, "log out of both roles")
	return cmd
}

func statusCmd(cfg config.Config, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show both sessions and the primary identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cfg, flags)
			if err != nil {
				return err
			}
			defer a.close()

			printState(os.Stdout, a.controller.State(), token.NewCodec())
			return nil
		},
	}
}

func refreshProfileCmd(cfg config.Config, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-profile",
		Short: "Re-fetch the primary identity's profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cfg, flags)
			if err != nil {
				return err
			}
			defer a.close()

			a.controller.RefreshUser(cmd.Context())
			printState(os.Stdout, a.controller.State(), token.NewCodec())
			return nil
		},
	}
}

func printState(out io.Writer, state auth.State, codec *token.Codec) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ROLE\tUSER\tEMAIL\tACCESS EXPIRES\tPRIMARY")
	for _, role := range profile.Roles {
		sess := state.Session(role)
		primary := ""
		if state.PrimaryRole == role {
			primary = "*"
		}
		if !sess.Present() {
			fmt.Fprintf(w, "%s\t-\t-\t-\t%s\n", role, primary)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", role, displayName(sess.Profile), sess.Profile.EmailAddress(), expiry(codec, sess.Tokens), primary)
	}
	_ = w.Flush()
}

func displayName(p profile.Profile) string {
	if profile.IsNil(p) {
		return "-"
	}
	if name := p.DisplayName(); name != "" {
		return name
	}
	return p.EmailAddress()
}

func expiry(codec *token.Codec, pair *token.Pair) string {
	if pair == nil {
		return "-"
	}
	exp, err := codec.Expiry(pair.AccessToken)
	if err != nil {
		return "unreadable"
	}
	if remaining := time.Until(exp); remaining > 0 {
		return fmt.Sprintf("in %s", remaining.Round(time.Second))
	}
	return "expired"
}
