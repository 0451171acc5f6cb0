// doc-translator extracts translatable text from structured documents,
// translates it through a language model and merges the results back.
package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/doc-translator/internal/config"
	"github.com/MimeLyc/doc-translator/internal/persistence"
	"github.com/MimeLyc/doc-translator/internal/service"
	"github.com/MimeLyc/doc-translator/pkg/log"
)

var envFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "doc-translator",
		Short: "Translate JSON, CSV, text and subtitle documents with a cached LLM pipeline",
		Long: `doc-translator extracts translatable text from structured documents,
translates it with an LLM provider and writes it back without touching the
surrounding structure. Every distinct source text is cached in SQLite.

Commands:
  serve       Run the HTTP API, job workers and scheduled backups
  parse       List the translatable units of a document
  apply       Merge translated units into a document
  translate   Parse, translate and apply in one step
  cache       Export, import, list or delete cached translations`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(envFile); err != nil {
				return err
			}
			// stdout carries command output, logs go to stderr
			log.SetDefault(log.NewLoggerTo(os.Stderr, log.ParseLevel(os.Getenv("LOG_LEVEL"))))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env", ".env", "Environment file loaded before reading configuration")

	root.AddCommand(
		newServeCmd(),
		newParseCmd(),
		newApplyCmd(),
		newTranslateCmd(),
		newCacheCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and overlays the runtime settings file.
func loadConfig() (*config.Config, error) {
	base, err := config.NewFromEnv()
	if err != nil {
		return nil, err
	}
	settings, err := config.LoadRuntimeSettingsFile(base.System.SettingsFile)
	if errors.Is(err, os.ErrNotExist) {
		return base, nil
	}
	if err != nil {
		return nil, err
	}
	log.Info("Loaded runtime settings from %s", base.System.SettingsFile)
	return config.NewFromEnv(config.WithRuntimeSettings(settings))
}

// openService opens the cache database and builds a service on top of it.
// The caller closes the returned store.
func openService(cfg *config.Config, opts ...service.Option) (*service.Service, *persistence.SQLiteStore, error) {
	store, err := persistence.NewSQLiteStore(cfg.DBPath())
	if err != nil {
		return nil, nil, err
	}
	return service.New(store, cfg.DefaultTranslation(), opts...), store, nil
}
