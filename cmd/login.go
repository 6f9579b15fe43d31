package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ragis-group/ragis-cli/internal"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginPassword string

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Authenticate against the RAGIS service",
	Long: `Exchange credentials for a bearer token and store the session
locally. The password is prompted unless --password is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := args[0]

		password := loginPassword
		if password == "" {
			var err error
			password, err = promptPassword("Password: ")
			if err != nil {
				return err
			}
		}

		client, _, dir, err := newClient()
		if err != nil {
			return err
		}

		result, err := client.Login(username, password)
		if err != nil {
			var apiErr *internal.APIError
			if errors.As(err, &apiErr) && apiErr.IsAuthFailure() {
				// An existing session stays valid on a failed attempt.
				return fmt.Errorf("credenziali non valide")
			}
			return fmt.Errorf("login failed: %w", err)
		}

		session := internal.NewAuthSession(result)
		sessionPath := filepath.Join(dir, internal.SessionFileName)
		if err := internal.SaveAuthSession(sessionPath, session); err != nil {
			return fmt.Errorf("failed to store session: %w", err)
		}

		fmt.Printf("Logged in as %s (%s)\n", session.Username, session.Ruolo)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Discard the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := resolveDataDir()
		if err != nil {
			return err
		}
		if err := internal.ClearAuthSession(filepath.Join(dir, internal.SessionFileName)); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
		fmt.Println("Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := resolveDataDir()
		if err != nil {
			return err
		}
		session := internal.LoadAuthSession(filepath.Join(dir, internal.SessionFileName))
		if session == nil {
			fmt.Println("Not logged in")
			return nil
		}
		fmt.Printf("%s (%s)\n", session.Username, session.Ruolo)
		return nil
	},
}

// promptPassword reads a password without echo when stdin is a
// terminal, falling back to a plain line read otherwise (pipes, tests).
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	if term.IsTerminal(int(syscall.Stdin)) {
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(raw), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Password (prompted when omitted)")
}
