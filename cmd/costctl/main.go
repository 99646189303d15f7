// Command costctl queries and exports the reference tables without starting
// the web service.
//
// Usage:
//
//	costctl lookup --table cost CA
//	costctl compare --state CA --nationality Germany
//	costctl export --table salary --out salaries_clean.csv
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"costcompare/internal/comparison"
	"costcompare/internal/config"
	apierrors "costcompare/internal/errors"
	"costcompare/internal/infrastructure"
	"costcompare/internal/validation"
)

// Table names accepted by --table.
const (
	tableSalary = "salary"
	tableCost   = "cost"
	tableDetail = "detail"
)

type rootOptions struct {
	configFile string
	dataDir    string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "costctl",
		Short:         "Query salary and cost of living reference data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file (overrides "+config.ConfigFileEnv+")")
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "directory holding the reference CSV files")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")

	root.AddCommand(newLookupCmd(opts))
	root.AddCommand(newCompareCmd(opts))
	root.AddCommand(newExportCmd(opts))

	return root
}

// loadConfig applies the command line overrides on top of config.Load.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	if o.configFile != "" {
		if err := os.Setenv(config.ConfigFileEnv, o.configFile); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if o.dataDir != "" {
		cfg.Data.Dir = o.dataDir
	}
	cfg.Logging.Level = o.logLevel
	return cfg, nil
}

// loadDataset reads every table. Logs go to the command's stderr so stdout
// carries only results.
func (o *rootOptions) loadDataset(cmd *cobra.Command) (*config.Config, *comparison.Dataset, *slog.Logger, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, nil, apierrors.NewConfigError("failed to load configuration", err)
	}

	logger := infrastructure.NewLogger(cfg.Logging, cmd.ErrOrStderr())

	if err := validation.NewFileValidator(logger).ValidateDataFiles(cfg.Data); err != nil {
		return nil, nil, nil, err
	}

	settings := comparison.SettingsFrom(cfg.Data)
	settings.Logger = logger

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	ds, err := comparison.LoadDataset(ctx, cfg.Data, settings)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, ds, logger, nil
}

func validateTable(table string) error {
	switch table {
	case tableSalary, tableCost, tableDetail:
		return nil
	}
	return apierrors.NewAppValidationError(fmt.Sprintf("unknown table %q: want one of %s", table,
		strings.Join([]string{tableSalary, tableCost, tableDetail}, ", ")))
}
