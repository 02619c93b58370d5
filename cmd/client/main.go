// cmd/client/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gurkanbulca/barakaflow/pkg/client"
)

const defaultServerURL = "http://localhost:5000/api"

var (
	// Global flags
	serverURL   string
	sessionPath string
	verbose     bool
	timeout     time.Duration

	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "barakaflow",
	Short: "BarakaFlow task manager client",
	Long: `barakaflow talks to a BarakaFlow server.

Sign in once with 'barakaflow login'; the token is kept in a session file
and reused by every other command until 'barakaflow logout'.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		if serverURL == "" {
			serverURL = os.Getenv("BARAKAFLOW_URL")
		}
		if serverURL == "" {
			serverURL = defaultServerURL
		}
		if sessionPath == "" {
			sessionPath = client.DefaultSessionPath()
		}

		config := zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "API base URL (or set BARAKAFLOW_URL env)")
	rootCmd.PersistentFlags().StringVar(&sessionPath, "session", "", "Session file (default: ~/.barakaflow/session.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 90*time.Second, "Request timeout")

	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(dayCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(optimizeCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(membersCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, friendlyError(err))
		os.Exit(1)
	}
}

// session loads the stored session and a client carrying its token.
func session() (*client.FileStore, *client.Session, *client.Client) {
	store := client.NewFileStore(sessionPath, logger)
	s := store.Load()
	c := client.New(serverURL, client.WithLogger(logger), client.WithToken(s.Token))
	return store, s, c
}

// signedIn is session for commands that need a token.
func signedIn() (*client.FileStore, *client.Session, *client.Client, error) {
	store, s, c := session()
	if s.Token == "" {
		return nil, nil, nil, errors.New("not signed in; run 'barakaflow login' first")
	}
	return store, s, c, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(commandContext(cmd), timeout)
}

// friendlyError turns client errors into one-line messages.
func friendlyError(err error) string {
	var apiErr *client.APIError
	switch {
	case errors.Is(err, client.ErrCannotConnect):
		return fmt.Sprintf("Cannot connect to server at %s. Is it running?", serverURL)
	case client.IsUnauthenticated(err):
		return "Session expired or invalid; run 'barakaflow login' again."
	case errors.As(err, &apiErr):
		msg := "Error: " + apiErr.Message
		for field, problem := range apiErr.Fields {
			msg += fmt.Sprintf("\n  %s: %s", field, problem)
		}
		return msg
	default:
		return "Error: " + err.Error()
	}
}
