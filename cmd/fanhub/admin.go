package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"fanhub/internal/store"
)

// minPasswordLength is the shortest password accepted for an admin account.
const minPasswordLength = 8

var (
	adminPassword    string
	adminDisplayName string
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create <email>",
	Short: "Create an admin account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(cmd.InOrStdin())
		if err != nil {
			return err
		}
		return withUsers(func(users *store.UserStore) error {
			ctx := cmd.Context()
			existing, err := users.FindByEmail(ctx, args[0])
			if err != nil {
				return err
			}
			if existing != nil {
				return fmt.Errorf("an account for %s already exists", existing.Email)
			}

			u, err := users.Create(ctx, args[0], password, adminDisplayName)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", u.Email, u.ID)
			return nil
		})
	},
}

var adminListCmd = &cobra.Command{
	Use:   "list",
	Short: "List admin accounts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUsers(func(users *store.UserStore) error {
			all, err := users.List(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tCREATED")
			for _, u := range all {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.ID, u.Email, u.DisplayName, u.CreatedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		})
	},
}

var adminPasswdCmd = &cobra.Command{
	Use:   "passwd <email>",
	Short: "Replace an admin's password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(cmd.InOrStdin())
		if err != nil {
			return err
		}
		return withUsers(func(users *store.UserStore) error {
			ctx := cmd.Context()
			u, err := users.FindByEmail(ctx, args[0])
			if err != nil {
				return err
			}
			if u == nil {
				return fmt.Errorf("no admin found with email %s", args[0])
			}
			if err := users.SetPassword(ctx, u.ID, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s\n", u.Email)
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{adminCreateCmd, adminPasswdCmd} {
		c.Flags().StringVar(&adminPassword, "password", "", "new password (read from stdin when empty)")
	}
	adminCreateCmd.Flags().StringVar(&adminDisplayName, "name", "Admin", "display name")

	adminCmd.AddCommand(adminCreateCmd, adminListCmd, adminPasswdCmd)
}

// withUsers opens the database for the duration of fn.
func withUsers(fn func(*store.UserStore) error) error {
	db, driver, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(store.NewUserStore(db, driver))
}

// readPassword returns the --password flag, or the first line of in.
func readPassword(in io.Reader) (string, error) {
	password := adminPassword
	if password == "" {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if err := validatePassword(password); err != nil {
		return "", err
	}
	return password, nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	if strings.TrimSpace(password) != password {
		return errors.New("password must not start or end with whitespace")
	}
	return nil
}
