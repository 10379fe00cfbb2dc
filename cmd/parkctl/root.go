package main

import (
	"github.com/spf13/cobra"

	"github.com/accessmaps/parks-api/internal/config"
	"github.com/accessmaps/parks-api/internal/db"
	"github.com/accessmaps/parks-api/internal/logger"
	"github.com/accessmaps/parks-api/internal/store"
)

// app carries what every subcommand shares once flags are parsed.
type app struct {
	configDirs []string
	settings   *config.Settings
	store      *store.Store
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "parkctl",
		Short:        "Maintain the parks, playgrounds and walking routes database",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringSliceVar(&a.configDirs, "config-dir", nil, "directories searched for config.yaml (default . and ./configs)")

	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		s, err := config.Load(a.configDirs...)
		if err != nil {
			return err
		}
		a.settings = s
		logger.Setup(logger.Options{Level: s.Log.Level, Format: s.Log.Format, Output: cmd.ErrOrStderr()})
		return nil
	}

	root.AddCommand(
		migrateCommand(a),
		importCommand(a),
		routesCommand(a),
		countsCommand(a),
	)
	return root
}

// open connects to the database on first use.
func (a *app) open() (*store.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	conn, err := db.Connect(a.settings.Database)
	if err != nil {
		return nil, err
	}
	a.store = store.New(conn)
	return a.store, nil
}
