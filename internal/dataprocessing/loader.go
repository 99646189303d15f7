package dataprocessing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultMaxLoggedRejections is how many rejected rows a load logs individually.
const DefaultMaxLoggedRejections = 10

// LoadOptions are shared by scalar and vector loads.
type LoadOptions struct {
	// Table names the table in logs, spans, and metrics.
	Table string
	// Workers > 1 validates rows on that many goroutines.
	Workers int
	// Normalize overrides the schema's key normalizer.
	Normalize KeyNormalizer
	// MaxLoggedRejections caps per-row WARN logs. Negative disables them.
	MaxLoggedRejections int
	Logger              *slog.Logger
	Tracer              *LoadTracer
}

// ScalarOptions configure LoadScalarTable.
type ScalarOptions struct {
	LoadOptions
	// Schema defaults to ScalarSchema and must select exactly one value column.
	Schema Schema
	// Convert, when set, is applied to the value before aggregation.
	Convert Transform
}

// VectorOptions configure LoadVectorTable.
type VectorOptions struct {
	LoadOptions
	// Schema defaults to ReferenceVectorSchema.
	Schema Schema
}

// ReferenceVectorSchema is the layout of the reference cost-of-living dataset:
// state code in column 1, seven cost columns 6..12, thirteen columns in all.
func ReferenceVectorSchema() Schema {
	return RangeSchema(1, 6, 12, 13)
}

// LoadStats summarizes one table load.
type LoadStats struct {
	Table        string         `json:"table"`
	Source       string         `json:"source"`
	RowsRead     int            `json:"rows_read"`
	RowsAccepted int            `json:"rows_accepted"`
	RowsRejected int            `json:"rows_rejected"`
	Rejections   map[string]int `json:"rejections,omitempty"`
	Groups       int            `json:"groups"`
	Duration     time.Duration  `json:"duration"`
}

// LoadScalarTable builds a key to mean-value table from a key,value source.
// The header row is skipped and bad rows are counted, never fatal.
func LoadScalarTable(ctx context.Context, src RowSource, opts ScalarOptions) (*LookupTable[float64], LoadStats, error) {
	schema := opts.Schema
	if len(schema.ValueColumns) == 0 {
		schema = ScalarSchema()
	}
	if len(schema.ValueColumns) != 1 {
		return nil, LoadStats{}, fmt.Errorf("%w: scalar table needs one value column, schema has %d", ErrSchemaMismatch, len(schema.ValueColumns))
	}

	agg := NewScalarAggregator()
	l := newTableLoader(opts.LoadOptions, "scalar", schema, opts.Convert, agg)
	stats, err := l.run(ctx, src)
	if err != nil {
		return nil, stats, err
	}

	results, err := agg.Finalize()
	if err != nil {
		return nil, stats, err
	}
	return NewLookupTable(l.table, results, l.schema.Normalize), stats, nil
}

// LoadVectorTable builds a key to mean-vector table from a wide source.
// Rows shorter than the schema requires are skipped.
func LoadVectorTable(ctx context.Context, src RowSource, opts VectorOptions) (*LookupTable[[]float64], LoadStats, error) {
	schema := opts.Schema
	if len(schema.ValueColumns) == 0 {
		schema = ReferenceVectorSchema()
	}

	agg := NewVectorAggregator(len(schema.ValueColumns))
	l := newTableLoader(opts.LoadOptions, "vector", schema, nil, agg)
	stats, err := l.run(ctx, src)
	if err != nil {
		return nil, stats, err
	}

	results, err := agg.Finalize()
	if err != nil {
		return nil, stats, err
	}
	return NewLookupTable(l.table, results, l.schema.Normalize), stats, nil
}

type recordSink interface {
	Add(Record) error
	Groups() int
}

type numberedRow struct {
	line   int
	fields []string
}

// tableLoader drives one pass: source, validate, convert, aggregate.
type tableLoader struct {
	table     string
	schema    Schema
	convert   Transform
	sink      recordSink
	workers   int
	maxLogged int
	logger    *slog.Logger
	tracer    *LoadTracer

	mu     sync.Mutex
	stats  LoadStats
	logged int
}

func newTableLoader(opts LoadOptions, kind string, schema Schema, convert Transform, sink recordSink) *tableLoader {
	if opts.Table == "" {
		opts.Table = kind
	}
	if opts.Normalize != nil {
		schema.Normalize = opts.Normalize
	}
	if schema.Normalize == nil {
		schema.Normalize = NormalizeKey
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Tracer == nil {
		opts.Tracer = globalLoadTracer()
	}
	maxLogged := opts.MaxLoggedRejections
	if maxLogged == 0 {
		maxLogged = DefaultMaxLoggedRejections
	}

	return &tableLoader{
		table:     opts.Table,
		schema:    schema,
		convert:   convert,
		sink:      sink,
		workers:   opts.Workers,
		maxLogged: maxLogged,
		logger:    opts.Logger.With(slog.String("component", "dataprocessing"), slog.String("table", opts.Table)),
		tracer:    opts.Tracer,
		stats:     LoadStats{Table: opts.Table, Rejections: make(map[string]int)},
	}
}

func (l *tableLoader) run(ctx context.Context, src RowSource) (stats LoadStats, err error) {
	start := time.Now()
	l.stats.Source = src.Name()

	ctx, span := l.tracer.startLoad(ctx, l.table, src.Name())
	defer func() {
		l.stats.Groups = l.sink.Groups()
		l.stats.Duration = since(start)
		stats = l.stats
		l.tracer.endLoad(ctx, span, l.table, stats, err)
	}()

	if err := l.schema.Check(); err != nil {
		return LoadStats{}, fmt.Errorf("invalid schema for table %s: %w", l.table, err)
	}

	l.logger.InfoContext(ctx, "Loading table",
		slog.String("source", src.Name()),
		slog.Int("workers", max(l.workers, 1)))

	it, err := src.Rows(ctx)
	if err != nil {
		l.logger.ErrorContext(ctx, "Failed to open source",
			slog.String("source", src.Name()),
			slog.String("error", err.Error()))
		return l.stats, err
	}
	defer it.Close()

	// The first row is always a header, even one too malformed to read.
	if _, _, err := it.Next(); err != nil && !IsRowError(err) {
		if errors.Is(err, io.EOF) {
			l.logger.WarnContext(ctx, "Source is empty, table will be empty",
				slog.String("source", src.Name()))
			return l.stats, nil
		}
		return l.stats, err
	}

	if l.workers > 1 {
		err = l.runSharded(ctx, it)
	} else {
		err = l.runSequential(ctx, it)
	}
	if err != nil {
		l.logger.ErrorContext(ctx, "Table load aborted",
			slog.String("source", src.Name()),
			slog.Int("rows_read", l.stats.RowsRead),
			slog.String("error", err.Error()))
		return l.stats, err
	}

	l.logger.InfoContext(ctx, "Table loaded",
		slog.String("source", src.Name()),
		slog.Int("rows_read", l.stats.RowsRead),
		slog.Int("rows_accepted", l.stats.RowsAccepted),
		slog.Int("rows_rejected", l.stats.RowsRejected),
		slog.Int("groups", l.sink.Groups()))
	return l.stats, nil
}

func (l *tableLoader) runSequential(ctx context.Context, it RowIterator) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, fields, err := it.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if IsRowError(err) {
			l.reject(ctx, line, err)
			continue
		}
		if err != nil {
			return err
		}
		if err := l.process(ctx, line, fields); err != nil {
			return err
		}
	}
}

// runSharded reads on one goroutine and validates on l.workers goroutines.
func (l *tableLoader) runSharded(ctx context.Context, it RowIterator) error {
	rows := make(chan numberedRow, l.workers*4)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(rows)
		for {
			if err := gctx.Err(); err != nil {
				return err
			}
			line, fields, err := it.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if IsRowError(err) {
				l.reject(gctx, line, err)
				continue
			}
			if err != nil {
				return err
			}
			select {
			case rows <- numberedRow{line: line, fields: fields}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	for i := 0; i < l.workers; i++ {
		g.Go(func() error {
			for row := range rows {
				if gctx.Err() != nil {
					continue
				}
				if err := l.process(gctx, row.line, row.fields); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return ctx.Err()
}

// process handles one data row. Row-level failures are counted and swallowed;
// anything else aborts the load.
func (l *tableLoader) process(ctx context.Context, line int, fields []string) error {
	rec, err := l.schema.Validate(fields)
	if err == nil && l.convert != nil {
		rec, err = Convert(rec, 0, l.convert)
	}
	if err != nil {
		if IsRowError(err) {
			l.reject(ctx, line, err)
			return nil
		}
		return err
	}

	if err := l.sink.Add(rec); err != nil {
		return fmt.Errorf("line %d: %w", line, err)
	}

	l.mu.Lock()
	l.stats.RowsRead++
	l.stats.RowsAccepted++
	l.mu.Unlock()
	return nil
}

func (l *tableLoader) reject(ctx context.Context, line int, err error) {
	var rowErr *RowError
	if errors.As(err, &rowErr) {
		rowErr.Line = line
	}
	reason := RejectReason(err)

	l.mu.Lock()
	l.stats.RowsRead++
	l.stats.RowsRejected++
	l.stats.Rejections[reason]++
	shouldLog := l.maxLogged > 0 && l.logged < l.maxLogged
	if shouldLog {
		l.logged++
	}
	l.mu.Unlock()

	if shouldLog {
		l.logger.WarnContext(ctx, "Rejected row",
			slog.Int("line", line),
			slog.String("reason", reason),
			slog.String("error", err.Error()))
	}
}
