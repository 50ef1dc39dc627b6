// Package cli implements the ragctl command line tool.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"knowledge-rag/internal/infra/httpclient"
)

// app carries state shared by subcommands after the root pre-run.
type app struct {
	cfgFile string
	verbose bool
	cfg     *Config
	logger  *slog.Logger
	api     *APIClient
}

// NewRootCommand builds the ragctl command tree.
func NewRootCommand(version string) *cobra.Command {
	a := &app{}
	v := viper.New()

	root := &cobra.Command{
		Use:   "ragctl",
		Short: "Operate a knowledge-rag deployment",
		Long: `ragctl asks questions, inspects document quality scores and ratings,
indexes pre-chunked documents and submits document ratings.

Example usage:
  ragctl ask "How often do API keys rotate?"
  ragctl scores
  ragctl ratings --by u-42 --limit 10
  ragctl index guide --file guide.json
  ragctl vote guide down --relevance 0.72`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(v)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is .ragctl.yaml)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	flags.String("server", "", "knowledge-rag API base URL")
	flags.String("user", "", "user id sent as X-User-ID")

	_ = v.BindPFlag("server.url", flags.Lookup("server"))
	_ = v.BindPFlag("user_id", flags.Lookup("user"))

	root.AddCommand(
		newAskCommand(a),
		newScoresCommand(a),
		newRatingsCommand(a),
		newIndexCommand(a),
		newVoteCommand(a),
	)
	return root
}

// Execute runs ragctl with os.Args.
func Execute(version string) error {
	return NewRootCommand(version).Execute()
}

func (a *app) init(v *viper.Viper) error {
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := LoadConfig(v, a.cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg
	a.api = NewAPIClient(cfg.Server.URL, cfg.UserID,
		httpclient.NewPooledClient(time.Duration(cfg.Server.Timeout)*time.Second))

	a.logger.Debug("configuration loaded",
		"server", cfg.Server.URL,
		"user_id", cfg.UserID)
	return nil
}
