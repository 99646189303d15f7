package comparison

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// OutcomeRecorder counts comparison outcomes.
type OutcomeRecorder interface {
	RecordComparison(ctx context.Context, result string)
}

// CostCategory is one labelled column of a state's cost breakdown.
type CostCategory struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// Comparison is the full answer for a state and a nationality.
type Comparison struct {
	State       string         `json:"state"`
	Nationality string         `json:"nationality"`
	Breakdown   []CostCategory `json:"cost_breakdown,omitempty"`
	Result
}

// Summary is a one-line, human readable verdict.
func (c Comparison) Summary() string {
	if c.Affordable {
		return fmt.Sprintf("Your salary (%.2f) covers the cost of living (%.2f) in %s (ratio %s)",
			c.Salary, c.Cost, c.State, displayRatio(c.Ratio))
	}
	return fmt.Sprintf("Your salary (%.2f) does not cover the cost of living (%.2f) in %s, you need %.2f more (ratio %s)",
		c.Salary, c.Cost, c.State, c.Shortfall, displayRatio(c.Ratio))
}

// Service answers comparison queries against a loaded Dataset.
// It is safe for concurrent use.
type Service struct {
	data    *Dataset
	metrics OutcomeRecorder
	logger  *slog.Logger
}

// NewService wraps a Dataset. metrics may be nil.
func NewService(data *Dataset, metrics OutcomeRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		data:    data,
		metrics: metrics,
		logger:  logger.With(slog.String("component", "comparison")),
	}
}

// Dataset returns the tables behind the service.
func (s *Service) Dataset() *Dataset {
	return s.data
}

// Compare looks up the state's cost and the nationality's salary and
// compares them. When both keys are unknown the returned error matches
// both ErrStateNotFound and ErrNationalityNotFound.
func (s *Service) Compare(ctx context.Context, state, nationality string) (Comparison, error) {
	if s.data == nil || s.data.Costs == nil || s.data.Salaries == nil {
		return Comparison{}, ErrDatasetNotLoaded
	}

	var missing []error
	if strings.TrimSpace(state) == "" {
		missing = append(missing, fmt.Errorf("%w: state", ErrMissingKey))
	}
	if strings.TrimSpace(nationality) == "" {
		missing = append(missing, fmt.Errorf("%w: nationality", ErrMissingKey))
	}
	if len(missing) > 0 {
		s.record(ctx, "invalid")
		return Comparison{}, errors.Join(missing...)
	}

	cost, costOK := s.data.Costs.Get(state)
	salary, salaryOK := s.data.Salaries.Get(nationality)

	var notFound []error
	if !costOK {
		notFound = append(notFound, fmt.Errorf("%w: %q", ErrStateNotFound, state))
	}
	if !salaryOK {
		notFound = append(notFound, fmt.Errorf("%w: %q", ErrNationalityNotFound, nationality))
	}
	if len(notFound) > 0 {
		s.record(ctx, "not_found")
		s.logger.InfoContext(ctx, "Comparison key not found",
			slog.String("state", state),
			slog.String("nationality", nationality),
			slog.Bool("state_found", costOK),
			slog.Bool("nationality_found", salaryOK))
		return Comparison{}, errors.Join(notFound...)
	}

	result, err := Compare(salary, cost)
	if err != nil {
		s.record(ctx, "invalid")
		return Comparison{}, fmt.Errorf("compare %s: %w", state, err)
	}

	breakdown, _ := s.breakdown(state)

	s.record(ctx, result.Outcome())
	s.logger.DebugContext(ctx, "Comparison computed",
		slog.String("state", state),
		slog.String("nationality", nationality),
		slog.Float64("ratio", result.Ratio),
		slog.Bool("affordable", result.Affordable))

	return Comparison{
		State:       strings.TrimSpace(state),
		Nationality: strings.TrimSpace(nationality),
		Breakdown:   breakdown,
		Result:      result,
	}, nil
}

// CostBreakdown returns the labelled category means for a state.
func (s *Service) CostBreakdown(state string) ([]CostCategory, error) {
	if s.data == nil || s.data.CostDetails == nil {
		return nil, ErrDatasetNotLoaded
	}
	breakdown, ok := s.breakdown(state)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrStateNotFound, state)
	}
	return breakdown, nil
}

func (s *Service) breakdown(state string) ([]CostCategory, bool) {
	if s.data.CostDetails == nil {
		return nil, false
	}
	values, ok := s.data.CostDetails.Get(state)
	if !ok {
		return nil, false
	}
	out := make([]CostCategory, len(values))
	for i, v := range values {
		out[i] = CostCategory{Label: s.label(i), Amount: roundCents(v)}
	}
	return out, true
}

func (s *Service) label(i int) string {
	if i < len(s.data.Labels) {
		return s.data.Labels[i]
	}
	return fmt.Sprintf("category_%d", i+1)
}

// States lists the states with a known cost, sorted.
func (s *Service) States() []string {
	if s.data == nil {
		return nil
	}
	return s.data.Costs.Keys()
}

// Countries lists the nationalities with a known salary, sorted.
func (s *Service) Countries() []string {
	if s.data == nil {
		return nil
	}
	return s.data.Salaries.Keys()
}

func (s *Service) record(ctx context.Context, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordComparison(ctx, outcome)
	}
}
