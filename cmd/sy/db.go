package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/scriptyard/internal/config"
	"github.com/zulandar/scriptyard/internal/db"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the SQL storage backend",
		Long:  "Connects to the sqlite or mysql database named in the config and migrates the script tables.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	fmt.Fprintf(out, "Loaded config from %s (backend %s)\n", configPath, cfg.Storage.Backend)

	switch cfg.Storage.Backend {
	case config.BackendSQLite, config.BackendMySQL:
	default:
		fmt.Fprintf(out, "Backend %s needs no initialization.\n", cfg.Storage.Backend)
		return nil
	}

	gormDB, err := db.Connect(cfg.Storage)
	if err != nil {
		return err
	}
	defer db.Close(gormDB)
	fmt.Fprintln(out, "Connected to database")

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))

	fmt.Fprintln(out, "\nScriptyard database initialized successfully.")
	return nil
}
