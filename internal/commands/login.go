package commands

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/skemmarize/skemmarize-cli/internal/api"
	"github.com/skemmarize/skemmarize-cli/internal/auth"
)

func newLoginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authenticate with the Skemmarize backend and store a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if existing := sessionStore.Load(); existing != nil {
				fmt.Printf("Already logged in as %s. Continuing will replace the session.\n", existing.Email)
			}

			scanner := bufio.NewScanner(os.Stdin)

			// Prompt for endpoint if not already set.
			endpoint := cfg.Endpoint
			fmt.Printf("Endpoint [%s]: ", endpoint)
			scanner.Scan()
			if input := strings.TrimSpace(scanner.Text()); input != "" {
				endpoint = input
			}
			cfg.Endpoint = endpoint
			rebuildAPIClient(endpoint)

			fmt.Print("Email: ")
			scanner.Scan()
			email := strings.TrimSpace(scanner.Text())

			fmt.Print("Password: ")
			scanner.Scan()
			password := strings.TrimSpace(scanner.Text())

			if email == "" || password == "" {
				return fmt.Errorf("email and password are required")
			}

			login, err := apiClient.Login(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			session := &auth.Session{
				AccessToken:  login.AccessToken,
				RefreshToken: login.RefreshToken,
				TokenType:    login.TokenType,
				ExpiresAt:    login.ExpiresAt,
				Email:        login.User.Email,
				DisplayName:  login.User.DisplayName,
				Endpoint:     endpoint,
			}

			if err := sessionStore.Save(session); err != nil {
				return fmt.Errorf("failed to store session: %w", err)
			}

			name := session.DisplayName
			if name == "" {
				name = session.Email
			}
			fmt.Printf("Logged in as %s.\n", name)
			return nil
		},
	}
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sessionStore.Load() == nil {
				fmt.Println("Not logged in.")
				return nil
			}

			// Best-effort server-side revocation; local teardown always runs.
			if err := apiClient.Logout(cmd.Context()); err != nil {
				fmt.Fprintf(os.Stderr, "warning: could not revoke session server-side: %v\n", err)
			}

			if err := sessionStore.Clear(); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}

			fmt.Println("Logged out.")
			return nil
		},
	}
}

func newWhoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			session := mustLoadSession()

			email := session.Email
			displayName := session.DisplayName
			expiresAt := session.ExpiresAt

			// Confirm the session server-side when reachable; the call goes
			// through the refreshing transport, so an expired access token
			// is renewed on the way.
			profile, err := apiClient.Me(cmd.Context())
			switch {
			case err == nil:
				if profile.Email != "" {
					email = profile.Email
				}
				if profile.DisplayName != "" {
					displayName = profile.DisplayName
				}
			case errors.Is(err, api.ErrUnauthorized):
				return err
			case api.IsNetworkError(err):
				fmt.Fprintln(os.Stderr, "warning: offline, showing the stored session")
			default:
				fmt.Fprintf(os.Stderr, "warning: could not verify session: %v\n", err)
			}
			// The call may have rotated the tokens; show the stored state.
			if refreshed := sessionStore.Load(); refreshed != nil {
				session = refreshed
				expiresAt = session.ExpiresAt
			}

			// Prefer claims from the token itself when present.
			if claims, err := auth.DecodeClaims(session.AccessToken); err == nil {
				if claims.Email != "" {
					email = claims.Email
				}
				if !claims.ExpiresAt.IsZero() {
					expiresAt = claims.ExpiresAt
				}
			}

			fmt.Printf("Logged in\n")
			fmt.Printf("  Email:    %s\n", email)
			if displayName != "" {
				fmt.Printf("  Name:     %s\n", displayName)
			}
			fmt.Printf("  Endpoint: %s\n", session.Endpoint)

			if !expiresAt.IsZero() {
				timeUntil := time.Until(expiresAt)
				hoursLeft := int(timeUntil.Hours())
				minutesLeft := int(timeUntil.Minutes()) % 60
				fmt.Printf("  Expires:  %s (in %dh %dm)\n",
					expiresAt.UTC().Format("2006-01-02 15:04:05 UTC"),
					hoursLeft, minutesLeft)
				if auth.ExpiringSoon(session.AccessToken, 5*time.Minute) {
					fmt.Println("  Note: access token expires soon; it will refresh on the next request.")
				}
			}

			return nil
		},
	}
}
