package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tOgg1/anyrun/internal/console"
)

var (
	loginUsername      string
	loginPasswordStdin bool
	passwdStdin        bool
)

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(passwdCmd)

	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "user name (default from session.username)")
	loginCmd.Flags().BoolVar(&loginPasswordStdin, "password-stdin", false, "read the password from stdin")

	passwdCmd.Flags().BoolVar(&passwdStdin, "stdin", false, "read old, new and confirmation passwords from stdin, one per line")
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the supervisor",
	Long: `Log in to the supervisor and cache the session locally.

The password is prompted for without echo. Use --password-stdin in scripts.`,
	Example: `  anyctl login
  anyctl login -u admin
  echo "$PASS" | anyctl login --password-stdin`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		username := loginUsername
		if username == "" {
			if cfg := GetConfig(); cfg != nil {
				username = cfg.Session.Username
			}
		}

		var password string
		var err error
		if loginPasswordStdin {
			password, err = readLine(bufio.NewReader(cmd.InOrStdin()))
		} else {
			password, err = promptSecret(cmd, fmt.Sprintf("Password for %s: ", username))
		}
		if err != nil {
			return err
		}

		c, err := openConsole(cmd, console.Options{})
		if err != nil {
			return err
		}
		defer c.Close()

		sess, err := c.Guard.Login(cmd.Context(), username, password)
		if err != nil {
			return err
		}

		if IsStructuredOutput() {
			return WriteOutput(cmd.OutOrStdout(), sess)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in to %s as %s\n", c.Config.Supervisor.URL, sess.Username)
		PrintNextSteps(cmd.OutOrStdout(), HintContext{Action: "login", FirstLogin: sess.FirstLogin})
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the cached session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openConsole(cmd, console.Options{})
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.Guard.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change the password of the logged-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var oldPassword, newPassword, confirm string
		if passwdStdin {
			r := bufio.NewReader(cmd.InOrStdin())
			for _, dst := range []*string{&oldPassword, &newPassword, &confirm} {
				line, err := readLine(r)
				if err != nil {
					return err
				}
				*dst = line
			}
		} else {
			prompts := []struct {
				label string
				dst   *string
			}{
				{"Current password: ", &oldPassword},
				{"New password: ", &newPassword},
				{"Confirm new password: ", &confirm},
			}
			for _, p := range prompts {
				value, err := promptSecret(cmd, p.label)
				if err != nil {
					return err
				}
				*p.dst = value
			}
		}

		c, err := openSession(cmd, console.Options{})
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.Guard.ChangePassword(cmd.Context(), oldPassword, newPassword, confirm); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Password changed")
		return nil
	},
}

// promptSecret reads a line from the terminal without echo.
func promptSecret(cmd *cobra.Command, label string) (string, error) {
	if IsNonInteractive() {
		return "", &PreflightError{
			Message: "a password is required but prompting is disabled",
			Hint:    "Pipe the password and pass --password-stdin (login) or --stdin (passwd)",
			Code:    ExitUsage,
		}
	}
	fmt.Fprint(cmd.ErrOrStderr(), label)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		if err == io.EOF {
			return "", &PreflightError{Message: "unexpected end of input", Code: ExitUsage}
		}
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
