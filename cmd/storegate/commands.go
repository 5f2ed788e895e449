package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/storegate"
)

// secret returns flagValue, then $envKey, then a line read from stdin.
func secret(flagValue, envKey, prompt string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if v := os.Getenv(envKey); v != "" {
		return v, nil
	}
	fmt.Fprint(os.Stderr, prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(prompt, ": "), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (a *app) print(v any, text string) {
	if a.output == "json" {
		p, _ := json.MarshalIndent(v, "", "  ")
		fmt.Println(string(p))
		return
	}
	fmt.Println(text)
}

func (a *app) loginCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in and store the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := secret(password, "STOREGATE_PASSWORD", "Password: ")
			if err != nil {
				return err
			}
			u, err := a.manager.Login(cmd.Context(), args[0], pw)
			if err != nil {
				return err
			}
			a.print(u, fmt.Sprintf("signed in as %s (%s)", u.Email, u.Role))
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password (env STOREGATE_PASSWORD, else prompted)")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				if err := a.manager.LogoutAllSessions(cmd.Context()); err != nil {
					return err
				}
				fmt.Println("signed out everywhere")
				return nil
			}
			if err := a.manager.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("signed out")
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "end every session of the account")
	return cmd
}

func (a *app) registerCmd() *cobra.Command {
	var in storegate.RegisterInput
	cmd := &cobra.Command{
		Use:   "register <email>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Email = args[0]
			pw, err := secret(in.Password, "STOREGATE_PASSWORD", "Password: ")
			if err != nil {
				return err
			}
			in.Password = pw
			res, err := a.manager.Register(cmd.Context(), in)
			if err != nil {
				return err
			}
			if res.SignedIn {
				a.print(res, "account created and signed in")
				return nil
			}
			a.print(res, res.Message)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Password, "password", "", "password (env STOREGATE_PASSWORD, else prompted)")
	f.StringVar(&in.FirstName, "first-name", "", "first name")
	f.StringVar(&in.LastName, "last-name", "", "last name")
	f.StringVar(&in.Phone, "phone", "", "phone number")
	f.StringVar(&in.Role, "role", "", "requested role: ADMIN, MANAGER, CASHIER or INVENTORY_CLERK")
	f.StringVar(&in.StoreID, "store-id", "", "store the account belongs to")
	return cmd
}

func (a *app) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <email> <code>",
		Short: "Confirm an account with the emailed code",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.manager.VerifyAccount(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if res.SignedIn {
				a.print(res, "account verified and signed in")
				return nil
			}
			a.print(res, res.Message)
			return nil
		},
	}
}

type whoami struct {
	Authenticated bool            `json:"authenticated"`
	User          *storegate.User `json:"user,omitempty"`
	Location      string          `json:"location,omitempty"`
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.manager.Session()
			out := whoami{Authenticated: s.IsAuthenticated, User: s.User, Location: a.manager.Location()}
			if !s.IsAuthenticated {
				a.print(out, "not signed in")
				return nil
			}
			a.print(out, fmt.Sprintf("%s <%s>\nrole:  %s\nstore: %s", s.User.FullName(), s.User.Email, s.User.Role, s.User.StoreID))
			return nil
		},
	}
}

func (a *app) refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.manager.RefreshAccessToken(cmd.Context()); err != nil {
				return err
			}
			if !a.manager.Session().IsAuthenticated {
				return errors.New("no session to refresh")
			}
			fmt.Println("access token refreshed")
			return nil
		},
	}
}

func (a *app) openCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <path>",
		Short: "Check whether the session may visit a route",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := a.manager.Visit(args[0])
			a.print(map[string]string{"action": d.Action.String(), "target": d.Target}, fmt.Sprintf("%s %s", d.Action, d.Target))
			return nil
		},
	}
}

func (a *app) passwordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Reset or change the account password",
	}

	forgot := &cobra.Command{
		Use:   "forgot <email>",
		Short: "Request a password reset email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := a.manager.RequestPasswordReset(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		},
	}

	var next string
	reset := &cobra.Command{
		Use:   "reset <email> <reset-token>",
		Short: "Set a new password with a reset token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := secret(next, "STOREGATE_NEW_PASSWORD", "New password: ")
			if err != nil {
				return err
			}
			msg, err := a.manager.ResetPassword(cmd.Context(), args[0], args[1], pw)
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		},
	}
	reset.Flags().StringVar(&next, "new-password", "", "new password (env STOREGATE_NEW_PASSWORD, else prompted)")

	var current, changed string
	change := &cobra.Command{
		Use:   "change",
		Short: "Change the signed-in account's password",
		RunE: func(cmd *cobra.Command, args []string) error {
			cur, err := secret(current, "STOREGATE_PASSWORD", "Current password: ")
			if err != nil {
				return err
			}
			pw, err := secret(changed, "STOREGATE_NEW_PASSWORD", "New password: ")
			if err != nil {
				return err
			}
			msg, err := a.manager.ChangePassword(cmd.Context(), cur, pw)
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		},
	}
	change.Flags().StringVar(&current, "current-password", "", "current password (env STOREGATE_PASSWORD)")
	change.Flags().StringVar(&changed, "new-password", "", "new password (env STOREGATE_NEW_PASSWORD)")

	cmd.AddCommand(forgot, reset, change)
	return cmd
}

func (a *app) profileCmd() *cobra.Command {
	var firstName, lastName, phone, email string
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update profile fields of the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			var in storegate.ProfileUpdate
			f := cmd.Flags()
			if f.Changed("first-name") {
				in.FirstName = &firstName
			}
			if f.Changed("last-name") {
				in.LastName = &lastName
			}
			if f.Changed("phone") {
				in.Phone = &phone
			}
			if f.Changed("email") {
				in.Email = &email
			}
			u, err := a.manager.UpdateProfile(cmd.Context(), in)
			if err != nil {
				return err
			}
			a.print(u, fmt.Sprintf("profile updated: %s <%s>", u.FullName(), u.Email))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&firstName, "first-name", "", "first name")
	f.StringVar(&lastName, "last-name", "", "last name")
	f.StringVar(&phone, "phone", "", "phone number")
	f.StringVar(&email, "email", "", "email address")
	return cmd
}

func (a *app) sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List the account's sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.manager.ListSessions(cmd.Context())
			if err != nil {
				return err
			}
			if a.output == "json" {
				a.print(list, "")
				return nil
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDEVICE\tIP\tLAST SEEN\tCURRENT")
			for _, s := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%v\n", s.ID, s.Device, s.IP, s.LastSeenAt.Format(time.RFC3339), s.Current)
			}
			return tw.Flush()
		},
	}

	revoke := &cobra.Command{
		Use:   "revoke <id>",
		Short: "End one session; ending the current one signs out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.manager.ListSessions(cmd.Context())
			if err != nil {
				return err
			}
			current := false
			for _, s := range list {
				if s.ID == args[0] {
					current = s.Current
				}
			}
			if err := a.manager.RevokeSession(cmd.Context(), args[0], current); err != nil {
				return err
			}
			fmt.Println("session revoked")
			return nil
		},
	}
	cmd.AddCommand(revoke)
	return cmd
}
