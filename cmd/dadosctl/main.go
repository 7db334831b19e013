// Command dadosctl runs dados operations from the shell: load a CSV, render
// an export, mail it, or provision the table.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dados/internal/access"
	"github.com/JonMunkholm/dados/internal/config"
	"github.com/JonMunkholm/dados/internal/logging"
	"github.com/JonMunkholm/dados/internal/mail"
	"github.com/JonMunkholm/dados/internal/service"
	"github.com/JonMunkholm/dados/internal/store"
)

var (
	user     string
	envFile  string
	logLevel string

	cfg     *config.Config
	svc     *service.Service
	session access.Session
)

var rootCmd = &cobra.Command{
	Use:           "dadosctl",
	Short:         "Ingest, export and mail the dados table",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
		} else {
			_ = godotenv.Load()
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		level := cfg.Logging.Level
		if logLevel != "" {
			level = logLevel
		}
		logging.SetupWriter(os.Stderr, level, cfg.Logging.Format)

		gate, err := access.FromConfig(cfg.Access)
		if err != nil {
			return err
		}
		fromEnv := os.Getenv(secretEnv)
		if fromEnv == "" && readsStdin(cmd, args) {
			return fmt.Errorf("ingesting from stdin needs the secret in %s", secretEnv)
		}
		secret, err := readSecret(fromEnv, os.Stdin, os.Stderr)
		if err != nil {
			return err
		}
		session, err = gate.Authorize(user, secret)
		if err != nil {
			return err
		}
		slog.Debug("authenticated", "identity", session.Identity, "role", session.Role)

		st := store.New(cfg.Database, cfg.Upload.BatchSize)
		svc = service.New(st, mail.NewDispatcher(cfg.Mail), cfg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&user, "user", "u", defaultUser(), "identity to authenticate as")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load environment from this file instead of .env")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(schemaCmd)
}

func defaultUser() string {
	if u := os.Getenv("DADOS_USER"); u != "" {
		return u
	}
	return "admin"
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}
