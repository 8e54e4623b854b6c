// Command ezfinctl runs administrative tasks against the ezfin store:
// schema migrations, category bootstrap, month summaries, demo data and the
// Google Sheets OAuth token bootstrap.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ezfin/internal/backend"
	"ezfin/internal/cli"
	"ezfin/internal/config"
	"ezfin/internal/log"
)

// app carries the state shared by every subcommand.
type app struct {
	v       *viper.Viper
	cfgFile string
	logger  *log.Logger
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "ezfinctl",
		Short:         "Administrative tools for the ezfin finance tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentPreRunE = func(*cobra.Command, []string) error {
		return a.initConfig()
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default: ./ezfinctl.yaml or $HOME/.config/ezfin/ezfinctl.yaml)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "text", "log format (text, json)")
	pf.String("backend", "", "storage backend ("+strings.Join(backend.GetBackendTypeStrings(), ", ")+")")
	pf.String("sqlite-path", "", "SQLite database file")
	pf.String("database-url", "", "PostgreSQL connection string")

	_ = a.v.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = a.v.BindPFlag("log.format", pf.Lookup("log-format"))
	_ = a.v.BindPFlag("storage.backend", pf.Lookup("backend"))
	_ = a.v.BindPFlag("storage.sqlite_path", pf.Lookup("sqlite-path"))
	_ = a.v.BindPFlag("storage.database_url", pf.Lookup("database-url"))

	root.AddCommand(migrateCmd(a))
	root.AddCommand(bootstrapCmd(a))
	root.AddCommand(summaryCmd(a))
	root.AddCommand(seedCmd(a))
	root.AddCommand(sheetsAuthCmd(a))

	return root, a
}

func main() {
	cli.LoadEnvFile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root, _ := newRootCmd()
	err := root.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// initConfig reads the optional config file and EZFIN_* variables, then
// builds the logger.
func (a *app) initConfig() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.SetConfigName("ezfinctl")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(home + "/.config/ezfin")
		}
	}
	bindEnv(a.v)

	if err := a.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config: %w", err)
		}
	}

	level, err := log.ParseLevel(a.v.GetString("log.level"))
	if err != nil {
		return err
	}
	format, err := log.ParseFormat(a.v.GetString("log.format"))
	if err != nil {
		return err
	}
	lc := log.DefaultConfig()
	lc.Level = level
	lc.Format = format
	lc.Output = os.Stderr
	lc.Component = "ezfinctl"
	a.logger = log.New(lc)
	log.SetDefault(a.logger)

	if used := a.v.ConfigFileUsed(); used != "" {
		a.logger.Debug("Loaded config file", "path", used)
	}
	return nil
}

// storeConfig overlays the storage settings from flags, the config file and
// EZFIN_* variables onto the process environment config.
func (a *app) storeConfig() (*config.Config, error) {
	cfg := buildConfig(a.v)
	if err := cfg.ValidateStorage(); err != nil {
		return nil, err
	}
	return cfg, nil
}
