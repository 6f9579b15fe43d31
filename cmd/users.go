package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/ragis-group/ragis-cli/internal"
	"github.com/spf13/cobra"
)

var (
	addRole        string
	addPassword    string
	updateUsername string
	updatePassword string
	updateRole     string
	deleteYes      bool
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage service accounts",
	Long:  `Create, list, update, and delete accounts on the service. Requires an admin account.`,
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, _, err := requireLogin()
		if err != nil {
			return err
		}

		users, err := client.ListUsers()
		if err != nil {
			return fmt.Errorf("failed to fetch users: %w", err)
		}

		w := tabwriter.NewWriter(lipgloss.DefaultRenderer().Output(), 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Username")+"\t"+titleStyle.Render("Ruolo")+"\t")
		for _, u := range users {
			_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t\n", u.ID, u.Username, u.Ruolo)
		}
		return w.Flush()
	},
}

var usersAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, _, err := requireLogin()
		if err != nil {
			return err
		}

		password := addPassword
		if password == "" {
			password, err = promptPassword("Password: ")
			if err != nil {
				return err
			}
		}

		if err := client.Register(args[0], password, addRole); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		fmt.Printf("User %s created\n", args[0])
		return nil
	},
}

var usersUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update an account",
	Long:  `Apply a sparse update: only the flags you pass are changed.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid user id: %s", args[0])
		}

		update := internal.UserUpdate{
			Username: updateUsername,
			Password: updatePassword,
			Ruolo:    updateRole,
		}
		if update == (internal.UserUpdate{}) {
			return fmt.Errorf("nothing to update (pass --username, --password, or --role)")
		}

		client, _, _, err := requireLogin()
		if err != nil {
			return err
		}
		if err := client.UpdateUser(id, update); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		fmt.Println("User updated")
		return nil
	},
}

var usersDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid user id: %s", args[0])
		}

		if !deleteYes && !confirm(fmt.Sprintf("Delete user %d? [y/N] ", id)) {
			fmt.Println("Aborted")
			return nil
		}

		client, _, _, err := requireLogin()
		if err != nil {
			return err
		}
		if err := client.DeleteUser(id); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		fmt.Println("User deleted")
		return nil
	},
}

func confirm(prompt string) bool {
	fmt.Fprint(os.Stderr, lipgloss.NewStyle().Bold(true).Render(prompt))
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersAddCmd)
	usersCmd.AddCommand(usersUpdateCmd)
	usersCmd.AddCommand(usersDeleteCmd)

	usersAddCmd.Flags().StringVar(&addRole, "role", "user", "Account role (admin or user)")
	usersAddCmd.Flags().StringVar(&addPassword, "password", "", "Password (prompted when omitted)")
	usersUpdateCmd.Flags().StringVar(&updateUsername, "username", "", "New username")
	usersUpdateCmd.Flags().StringVar(&updatePassword, "password", "", "New password")
	usersUpdateCmd.Flags().StringVar(&updateRole, "role", "", "New role")
	usersDeleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Skip the confirmation prompt")
}
