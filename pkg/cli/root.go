// Package cli wires the dbseed commands.
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/supporttools/dbseed/pkg/config"
	"github.com/supporttools/dbseed/pkg/database/common"
	_ "github.com/supporttools/dbseed/pkg/database/providers/memory"
	_ "github.com/supporttools/dbseed/pkg/database/providers/mongodb"
	_ "github.com/supporttools/dbseed/pkg/database/providers/mysql"
	_ "github.com/supporttools/dbseed/pkg/database/providers/postgresql"
	"github.com/supporttools/dbseed/pkg/fixtures"
	"github.com/supporttools/dbseed/pkg/logging"
	"github.com/supporttools/dbseed/pkg/seeder"
)

// globalFlags are bound to the root command's persistent flags
type globalFlags struct {
	configFile string
	target     string
	uri        string
	host       string
	port       string
	database   string
	collection string
	debug      bool
}

// app is the state shared by subcommands once the root pre-run has loaded configuration
type app struct {
	flags  globalFlags
	cfg    config.AppConfig
	logger *log.Logger
}

// NewRootCmd builds the dbseed command tree
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "dbseed",
		Short: "Load sample customer data into a database",
		Long: `dbseed inserts a fixed set of customer records into a database for
development and testing.

Configuration is read from an optional YAML file, then environment variables,
then CLI flags:
  SEED_CONFIG_FILE   - YAML configuration file
  SEED_TARGET_TYPE   - mongodb, mysql, postgresql or memory (default: mongodb)
  SEED_TARGET_URI    - full connection string
  SEED_DB_HOST       - database host (default: localhost)
  SEED_DATABASE      - database name (default: testdb)
  SEED_COLLECTION    - collection or table name (default: customers)`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&a.flags.configFile, "config", "c", "", "Configuration file (or SEED_CONFIG_FILE env)")
	pf.StringVarP(&a.flags.target, "target", "t", "", "Target type: mongodb, mysql, postgresql or memory (or SEED_TARGET_TYPE env)")
	pf.StringVar(&a.flags.uri, "uri", "", "Connection URI; a database named in it overrides --database (or SEED_TARGET_URI env)")
	pf.StringVar(&a.flags.host, "host", "", "Database host (or SEED_DB_HOST env)")
	pf.StringVar(&a.flags.port, "port", "", "Database port (or SEED_DB_PORT env)")
	pf.StringVar(&a.flags.database, "database", "", "Database name (or SEED_DATABASE env)")
	pf.StringVar(&a.flags.collection, "collection", "", "Collection or table name (or SEED_COLLECTION env)")
	pf.BoolVarP(&a.flags.debug, "debug", "v", false, "Debug logging (or DEBUG env)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.load(pf.Changed)
	}

	rootCmd.AddCommand(newSeedCmd(a))
	rootCmd.AddCommand(newVerifyCmd(a))
	rootCmd.AddCommand(newPingCmd(a))
	rootCmd.AddCommand(newFixturesCmd(a))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// load reads configuration, applying only the flags that were set on the command line
func (a *app) load(changed func(string) bool) error {
	f := a.flags
	override := func(c *config.AppConfig) {
		if changed("target") {
			c.Target.Type = strings.ToLower(f.target)
		}
		if changed("uri") {
			c.Target.URI = f.uri
		}
		if changed("host") {
			c.Target.Host = f.host
		}
		if changed("port") {
			c.Target.Port = f.port
		}
		if changed("database") {
			c.Target.Database = f.database
		}
		if changed("collection") {
			c.Target.Collection = f.collection
		}
		if changed("debug") {
			c.Debug = f.debug
		}
	}

	if err := config.LoadConfiguration(f.configFile, override); err != nil {
		return err
	}
	if err := config.ValidateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	a.cfg = config.CFG
	a.logger = logging.New(a.cfg.Debug, a.cfg.LogFormat)
	config.DisplayConfiguration(a.logger, a.cfg)
	return nil
}

// newSeeder builds a seeder for target using the registered providers
func (a *app) newSeeder(target config.TargetConfig, opts ...seeder.Option) (*seeder.Seeder, error) {
	provider, err := common.NewProvider(target)
	if err != nil {
		return nil, err
	}
	opts = append([]seeder.Option{seeder.WithLogger(a.logger)}, opts...)
	return seeder.New(provider, opts...), nil
}

// records returns the fixture from file, the configured fixture file, or the embedded sample
func (a *app) records(file string) ([]fixtures.CustomerRecord, error) {
	if file == "" {
		file = a.cfg.FixtureFile
	}
	if file == "" {
		return fixtures.Customers(), nil
	}
	return fixtures.LoadFile(file)
}

// withTimeout bounds the whole command by the connect timeout plus slack for the insert itself
func (a *app) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 3*a.cfg.Target.Timeout())
}
