package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gurkanbulca/barakaflow/pkg/client"
)

var (
	authEmail    string
	authPassword string
	authName     string
)

// registerCmd creates an account
var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sign in",
	Args:  cobra.NoArgs,
	RunE:  runRegister,
}

// loginCmd signs in
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session token",
	Long: `Sign in with email and password.

The password is read from --password, then BARAKAFLOW_PASSWORD, then stdin.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session token",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

func init() {
	for _, cmd := range []*cobra.Command{registerCmd, loginCmd} {
		cmd.Flags().StringVarP(&authEmail, "email", "e", "", "Account email (required)")
		cmd.Flags().StringVarP(&authPassword, "password", "p", "", "Account password")
		cmd.MarkFlagRequired("email")
	}
	registerCmd.Flags().StringVarP(&authName, "name", "n", "", "Display name (required)")
	registerCmd.MarkFlagRequired("name")
}

func runRegister(cmd *cobra.Command, args []string) error {
	store, s, c := session()
	password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(cmd)
	defer cancel()
	res, err := c.Register(ctx, authEmail, password, authName)
	if err != nil {
		return err
	}
	if err := remember(store, s, res); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s. Welcome, %s!\n", res.Message, res.User.Name)
	return nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	store, s, c := session()
	password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(cmd)
	defer cancel()
	res, err := c.Login(ctx, authEmail, password)
	if err != nil {
		return err
	}
	if err := remember(store, s, res); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s. Signed in as %s <%s>\n", res.Message, res.User.Name, res.User.Email)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	store := client.NewFileStore(sessionPath, logger)
	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	store, _, c, err := signedIn()
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(cmd)
	defer cancel()
	user, err := c.Verify(ctx)
	if err != nil {
		return dropStaleToken(store, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> (%s)\n", user.Name, user.Email, user.ID)
	return nil
}

func remember(store *client.FileStore, s *client.Session, res *client.AuthResponse) error {
	s.Token = res.Token
	user := res.User
	s.User = &user
	if err := store.Save(s); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// dropStaleToken clears the stored token when the server rejected it.
func dropStaleToken(store *client.FileStore, err error) error {
	if client.IsUnauthenticated(err) {
		if clearErr := store.Clear(); clearErr != nil {
			logger.Warn("failed to clear session", zap.Error(clearErr))
		}
	}
	return err
}

func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if authPassword != "" {
		return authPassword, nil
	}
	if p := os.Getenv("BARAKAFLOW_PASSWORD"); p != "" {
		return p, nil
	}
	fmt.Fprint(prompt, "Password: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("password is required")
	}
	return password, nil
}
