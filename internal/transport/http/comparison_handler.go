package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"costcompare/internal/comparison"
	apierrors "costcompare/internal/errors"
	"costcompare/internal/middleware"
)

// maxKeyLength bounds a state code or country name taken from the URL.
const maxKeyLength = 64

// CompareRequest is the body of POST /api/compare
type CompareRequest struct {
	State       string `json:"state" validate:"required,max=64,lookupkey"`
	Nationality string `json:"nationality" validate:"required,max=64,lookupkey"`
}

// CompareResponse is a comparison with its human readable verdict
type CompareResponse struct {
	comparison.Comparison
	Summary string `json:"summary"`
}

// ComparisonHandler serves salary to cost comparisons and the key listings
// used to populate forms.
type ComparisonHandler struct {
	service      ComparisonService
	validator    *middleware.Validator
	query        *middleware.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewComparisonHandler creates a new comparison handler
func NewComparisonHandler(service ComparisonService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ComparisonHandler {
	return &ComparisonHandler{
		service:      service,
		validator:    middleware.NewValidator(logger),
		query:        middleware.NewQueryParamValidator(errorHandler),
		logger:       logger.With(slog.String("component", "comparison_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the comparison routes
func (h *ComparisonHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/compare", h.GetCompare)
	r.With(middleware.ContentTypeValidator(h.errorHandler, "application/json")).
		Post("/compare", h.PostCompare)

	r.Get("/states", h.ListStates)
	r.Get("/countries", h.ListCountries)

	r.Route("/states/{state}", func(r chi.Router) {
		r.Use(h.StateCtx)
		r.Get("/costs", h.GetCostBreakdown)
	})

	return r
}

// StateCtx validates the state URL parameter
func (h *ComparisonHandler) StateCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := chi.URLParam(r, "state")
		if len(state) > maxKeyLength {
			h.errorHandler.HandleError(w, r, apierrors.NewValidationErrors([]apierrors.ValidationError{
				{Field: "state", Message: "state must be at most 64 characters"},
			}))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetCompare handles GET /api/compare?state=&nationality=
func (h *ComparisonHandler) GetCompare(w http.ResponseWriter, r *http.Request) {
	values, ok := h.query.RequireQuery(w, r, "state", "nationality")
	if !ok {
		return
	}
	h.compare(w, r, values[0], values[1])
}

// PostCompare handles POST /api/compare
func (h *ComparisonHandler) PostCompare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.compare(w, r, req.State, req.Nationality)
}

func (h *ComparisonHandler) compare(w http.ResponseWriter, r *http.Request, state, nationality string) {
	result, err := h.service.Compare(r.Context(), state, nationality)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.DebugContext(r.Context(), "comparison served",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("state", result.State),
		slog.String("nationality", result.Nationality),
		slog.Bool("affordable", result.Affordable),
	)

	render.JSON(w, r, CompareResponse{
		Comparison: result,
		Summary:    result.Summary(),
	})
}

// ListStates handles GET /api/states
func (h *ComparisonHandler) ListStates(w http.ResponseWriter, r *http.Request) {
	states := h.service.States()
	render.JSON(w, r, map[string]interface{}{
		"data":  nonNil(states),
		"count": len(states),
	})
}

// ListCountries handles GET /api/countries
func (h *ComparisonHandler) ListCountries(w http.ResponseWriter, r *http.Request) {
	countries := h.service.Countries()
	render.JSON(w, r, map[string]interface{}{
		"data":  nonNil(countries),
		"count": len(countries),
	})
}

// GetCostBreakdown handles GET /api/states/{state}/costs
func (h *ComparisonHandler) GetCostBreakdown(w http.ResponseWriter, r *http.Request) {
	state := chi.URLParam(r, "state")

	breakdown, err := h.service.CostBreakdown(state)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"state":      state,
		"categories": breakdown,
	})
}

// nonNil keeps empty listings encoded as [] rather than null.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
