package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with email and password",
	Long: `Log in with email and password.

The password is read from the terminal without echo, or as one line from
stdin when stdin is not a terminal. With --remember (the default) the
token is saved so later commands and the TUI start logged in.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in account",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

var (
	loginEmail    string
	loginRemember bool
)

func init() {
	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "account email (prompted when empty)")
	loginCmd.Flags().BoolVar(&loginRemember, "remember", true, "save the token for later commands")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	in := bufio.NewReader(cmd.InOrStdin())

	email := loginEmail
	if email == "" {
		fmt.Fprint(cmd.ErrOrStderr(), "Email: ")
		line, err := readLine(in)
		if err != nil {
			return fmt.Errorf("failed to read email: %w", err)
		}
		email = line
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	password, err := readPassword(cmd, in)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if err := a.d.Login(ctx, email, password, loginRemember); err != nil {
		return present(err)
	}
	self, err := a.d.Whoami(ctx)
	if err != nil {
		return present(err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Logged in as %s\n", self.Tag())
	if !loginRemember {
		fmt.Fprintln(out, "Token not saved; later commands will need a new login.")
	}
	return nil
}

// readPassword reads without echo from a terminal, else one line of in.
func readPassword(cmd *cobra.Command, in *bufio.Reader) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		return string(b), err
	}
	return readLine(in)
}

// readLine returns the next line without its line ending. A last line
// without a newline is accepted.
func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.d.Logout(cmd.Context()); err != nil {
		return present(err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if err := a.restore(ctx); err != nil {
		return present(err)
	}
	self, err := a.d.Whoami(ctx)
	if err != nil {
		return present(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (id %s)\n", self.Tag(), self.ID)
	return nil
}
