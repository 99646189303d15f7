// Package http implements the HTTP handlers of the cost comparison service.
// Handlers are thin: they parse and validate the request, call the
// comparison service and render the result as JSON.
//
// # Routes
//
//	GET  /api/compare?state=CA&nationality=Germany
//	POST /api/compare              {"state":"CA","nationality":"Germany"}
//	GET  /api/states
//	GET  /api/countries
//	GET  /api/states/{state}/costs
//	GET  /api/health
//	GET  /api/health/live
//	GET  /api/loads?limit=50
//	GET  /metrics
//
// # Error Handling
//
// Every failure is rendered by the shared ErrorHandler as RFC 7807 Problem
// Details. Unknown keys produce a 404 whose "missing" member names the
// state, the nationality, or both:
//
//	{
//	    "type": "/errors/comparison/state-not-found",
//	    "title": "State Not Found",
//	    "status": 404,
//	    "detail": "state not found: \"ZZ\"",
//	    "instance": "/api/compare",
//	    "missing": ["state"]
//	}
//
// # Testing
//
// Handlers are tested with httptest against testify mocks of
// ComparisonService and LoadLister.
package http
