package comparison

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"costcompare/internal/config"
	"costcompare/internal/dataprocessing"
)

// Table names used in logs, metrics and the load history.
const (
	TableSalaries    = "salaries"
	TableCosts       = "costs"
	TableCostDetails = "cost_details"
)

// LoadRecorder receives the outcome of every table load.
type LoadRecorder interface {
	RecordLoad(ctx context.Context, stats dataprocessing.LoadStats, loadErr error) error
}

// Dataset holds the three finalized tables. It is built once and only read
// afterwards.
type Dataset struct {
	Salaries    *dataprocessing.LookupTable[float64]
	Costs       *dataprocessing.LookupTable[float64]
	CostDetails *dataprocessing.LookupTable[[]float64]

	// Labels name the columns of a CostDetails vector.
	Labels   []string
	Stats    []dataprocessing.LoadStats
	LoadedAt time.Time
}

// Sources are the three inputs of a Dataset.
type Sources struct {
	Salaries    dataprocessing.RowSource
	Costs       dataprocessing.RowSource
	CostDetails dataprocessing.RowSource
}

// SourcesFrom opens the configured files. Nothing is read until Load.
func SourcesFrom(cfg config.DataConfig) Sources {
	delim := cfg.DelimiterRune()
	return Sources{
		Salaries:    dataprocessing.OpenSource(cfg.SalaryPath(), delim),
		Costs:       dataprocessing.OpenSource(cfg.CostPath(), delim),
		CostDetails: dataprocessing.OpenSource(cfg.DetailPath(), delim),
	}
}

// Settings control how the tables are built.
type Settings struct {
	Workers             int
	Normalize           dataprocessing.KeyNormalizer
	SalaryMonthly       bool
	CostSchema          dataprocessing.Schema
	DetailSchema        dataprocessing.Schema
	Labels              []string
	MaxLoggedRejections int

	Logger   *slog.Logger
	Tracer   *dataprocessing.LoadTracer
	Recorder LoadRecorder
}

// SettingsFrom maps the data section of the configuration.
func SettingsFrom(cfg config.DataConfig) Settings {
	schema := dataprocessing.RangeSchema(
		cfg.DetailKeyColumn, cfg.DetailFirstColumn, cfg.DetailLastColumn, cfg.DetailMinColumns)
	return Settings{
		Workers:       cfg.Workers,
		Normalize:     dataprocessing.NormalizerFor(cfg.KeyCase),
		SalaryMonthly: cfg.SalaryMonthly,
		CostSchema: dataprocessing.RangeSchema(
			cfg.CostKeyColumn, cfg.CostValueColumn, cfg.CostValueColumn, cfg.CostMinColumns),
		DetailSchema:        schema,
		Labels:              append([]string(nil), cfg.CategoryLabels...),
		MaxLoggedRejections: cfg.MaxLoggedRejections,
	}
}

// LoadDataset reads the configured files into a Dataset.
func LoadDataset(ctx context.Context, cfg config.DataConfig, settings Settings) (*Dataset, error) {
	return Load(ctx, SourcesFrom(cfg), settings)
}

// Load builds the three tables concurrently. Any load-level failure cancels
// the others and no Dataset is returned.
func Load(ctx context.Context, src Sources, s Settings) (*Dataset, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "dataset"))

	base := dataprocessing.LoadOptions{
		Workers:             s.Workers,
		Normalize:           s.Normalize,
		MaxLoggedRejections: s.MaxLoggedRejections,
		Logger:              s.Logger,
		Tracer:              s.Tracer,
	}

	ds := &Dataset{Labels: s.Labels}
	stats := make([]dataprocessing.LoadStats, 3)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		opts := dataprocessing.ScalarOptions{LoadOptions: base}
		opts.Table = TableSalaries
		if s.SalaryMonthly {
			opts.Convert = dataprocessing.MonthlyToYearly
		}
		table, st, err := dataprocessing.LoadScalarTable(gctx, src.Salaries, opts)
		stats[0] = st
		s.record(ctx, logger, st, err)
		if err != nil {
			return fmt.Errorf("load %s: %w", TableSalaries, err)
		}
		ds.Salaries = table
		return nil
	})

	g.Go(func() error {
		opts := dataprocessing.ScalarOptions{LoadOptions: base, Schema: s.CostSchema}
		opts.Table = TableCosts
		table, st, err := dataprocessing.LoadScalarTable(gctx, src.Costs, opts)
		stats[1] = st
		s.record(ctx, logger, st, err)
		if err != nil {
			return fmt.Errorf("load %s: %w", TableCosts, err)
		}
		ds.Costs = table
		return nil
	})

	g.Go(func() error {
		opts := dataprocessing.VectorOptions{LoadOptions: base, Schema: s.DetailSchema}
		opts.Table = TableCostDetails
		table, st, err := dataprocessing.LoadVectorTable(gctx, src.CostDetails, opts)
		stats[2] = st
		s.record(ctx, logger, st, err)
		if err != nil {
			return fmt.Errorf("load %s: %w", TableCostDetails, err)
		}
		ds.CostDetails = table
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.ErrorContext(ctx, "Dataset load failed", slog.String("error", err.Error()))
		return nil, err
	}

	ds.Stats = stats
	ds.LoadedAt = time.Now().UTC()

	logger.InfoContext(ctx, "Dataset loaded",
		slog.Int("countries", ds.Salaries.Len()),
		slog.Int("states", ds.Costs.Len()),
		slog.Int("detailed_states", ds.CostDetails.Len()))

	return ds, nil
}

// record forwards stats to the recorder. History is best effort.
func (s Settings) record(ctx context.Context, logger *slog.Logger, stats dataprocessing.LoadStats, loadErr error) {
	if s.Recorder == nil {
		return
	}
	if err := s.Recorder.RecordLoad(context.WithoutCancel(ctx), stats, loadErr); err != nil {
		logger.WarnContext(ctx, "Failed to record table load",
			slog.String("table", stats.Table),
			slog.String("error", err.Error()))
	}
}
