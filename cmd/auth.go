package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"kigurumi-cli/auth"
	"kigurumi-cli/session"
	"kigurumi-cli/storage"
)

const maxLoginAttempts = 3

type AuthStatus struct {
	State      string `json:"state"`
	Email      string `json:"email,omitempty"`
	Provider   string `json:"provider,omitempty"`
	LoggedInAt string `json:"logged_in_at,omitempty"`
	ExpiresIn  string `json:"expires_in,omitempty"`
}

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the desk login",
	}

	cmd.AddCommand(authLoginCmd())
	cmd.AddCommand(authStatusCmd())
	cmd.AddCommand(authLogoutCmd())
	return cmd
}

func authLoginCmd() *cobra.Command {
	var email string
	var authFile string
	authFileDefault := os.Getenv("KIGURUMI_AUTH_FILE")

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with the shared desk password",
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if authFile != "" {
				fileEmail, filePassword, err := readAuthFile(authFile)
				if err != nil {
					return err
				}
				if email == "" {
					email = fileEmail
				}
				password = filePassword
			}
			if email != "" {
				cfg.Auth.Email = email
			}
			interactive := password == ""

			return withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				var identity auth.Identity
				var err error
				for attempt := 1; attempt <= maxLoginAttempts; attempt++ {
					if interactive {
						if password, err = promptPassword(); err != nil {
							return err
						}
					}
					if password == "" {
						return fmt.Errorf("password is required")
					}

					identity, err = app.Provider.SignIn(ctx, password)
					if err == nil {
						break
					}
					app.Logger.Debug("sign-in failed",
						zap.String("provider", app.Provider.Name()),
						zap.Stringer("kind", auth.KindOf(err)),
						zap.Error(err))
					if !interactive || auth.KindOf(err) != auth.KindInvalidCredential || attempt == maxLoginAttempts {
						return errors.New(auth.Message(err))
					}
					fmt.Fprintln(os.Stderr, auth.Message(err))
				}

				creds := storage.Credentials{
					Provider:     app.Provider.Name(),
					Email:        identity.Email,
					IDToken:      identity.IDToken,
					RefreshToken: identity.RefreshToken,
					LoggedInAt:   identity.IssuedAt.UTC().Format(time.RFC3339),
				}
				if err := storage.SaveCredentials(&creds); err != nil {
					return err
				}
				if err := app.Tokens.Clear(); err != nil {
					return err
				}
				if _, err := app.Tokens.Token(); err != nil {
					return err
				}
				if state := app.Gate.Signal(ctx, true); state != session.Admitted {
					return fmt.Errorf("login was not admitted (%s); check the system clock", state)
				}

				if identity.Email != "" {
					fmt.Printf("Logged in as %s.\n", identity.Email)
				} else {
					fmt.Println("Logged in.")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (default: auth.email from config)")
	cmd.Flags().StringVar(&authFile, "auth-file", authFileDefault, "Load credentials from file (default: $KIGURUMI_AUTH_FILE)")
	return cmd
}

func promptPassword() (string, error) {
	fmt.Print("Password: ")
	bytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(bytes)), nil
}

func authStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check the login and its remaining lifetime",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				creds, _ := storage.LoadCredentials()
				age, hasAge := app.Gate.Age()
				checkErr := app.Gate.Check(ctx)

				status := AuthStatus{State: app.Gate.State().String()}
				if checkErr == nil && creds != nil {
					status.Email = creds.Email
					status.Provider = creds.Provider
					status.LoggedInAt = creds.LoggedInAt
					if hasAge {
						status.ExpiresIn = (app.Config.Session.MaxAge - age).Truncate(time.Minute).String()
					}
				}

				if outputJSON {
					return writeJSON(status)
				}

				switch {
				case errors.Is(checkErr, session.ErrSessionExpired):
					fmt.Println("Session expired. Run 'kigurumi auth login' to log in again.")
				case checkErr != nil:
					fmt.Println("Not logged in.")
				default:
					fmt.Printf("Logged in as %s (%s).\n", status.Email, status.Provider)
					fmt.Printf("Logged in at: %s\n", status.LoggedInAt)
					if status.ExpiresIn != "" {
						fmt.Printf("Session expires in: %s\n", status.ExpiresIn)
					}
				}
				return nil
			})
		},
	}

	return cmd
}

func authLogoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Log out and clear the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				if err := app.Gate.End(ctx); err != nil {
					return err
				}
				fmt.Println("Logged out.")
				return nil
			})
		},
	}

	return cmd
}

// readAuthFile reads a file with optional [username] and [password] sections.
func readAuthFile(path string) (string, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var email string
	var password string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "[username]":
			if scanner.Scan() {
				email = strings.TrimSpace(scanner.Text())
			}
		case "[password]":
			if scanner.Scan() {
				password = strings.TrimSpace(scanner.Text())
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", "", err
	}
	return email, password, nil
}
