package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/you/storefront/domain"
)

var (
	loginUsername string
	loginPassword string
	loginRemember bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and persist the session",
	Long: `Sign in with username and password.

With --remember (the default) the session is written to the durable store and
survives restarts. Without it the session lives in process memory only.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if loginUsername == "" || loginPassword == "" {
			return errors.New("--username and --password are required")
		}
		user, err := container.Session.Authenticate(cmd.Context(), domain.Credentials{
			Username: loginUsername,
			Password: loginPassword,
		}, loginRemember)
		if err != nil {
			return errors.New(domain.UserMessage(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s). Cart: %d item(s).\n",
			user.Username, user.Role, container.Cart.TotalItems())
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		container.Session.Logout(cmd.Context())
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the restored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		snapshot := container.Session.Snapshot()
		if !snapshot.IsAuthenticated {
			fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
			return nil
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "User:  %s <%s>\n", snapshot.User.Username, snapshot.User.Email)
		fmt.Fprintf(out, "Role:  %s\n", snapshot.User.Role)
		if phone := snapshot.User.Phone(); phone != "" {
			fmt.Fprintf(out, "Phone: %s\n", phone)
		}
		if container.Session.AccessTokenExpired(time.Now()) {
			fmt.Fprintln(out, "Access token expired; run `storefront refresh`.")
		}
		return nil
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Exchange the refresh token for a new access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := container.Session.RefreshTokens(cmd.Context()); err != nil {
			return errors.New(domain.UserMessage(err))
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Tokens refreshed.")
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "account username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "account password")
	loginCmd.Flags().BoolVar(&loginRemember, "remember", true, "keep the session across restarts")
}
