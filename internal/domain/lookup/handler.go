package lookup

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ehr/refdata/internal/platform/cache"
	"github.com/ehr/refdata/internal/platform/ratelimit"
	"github.com/ehr/refdata/pkg/pagination"
)

// Handler provides REST endpoints for reference-data lookups.
type Handler struct {
	svc *Service
}

// NewHandler creates a new lookup handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers lookup routes on the API group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/lookup")
	g.GET("/diagnosis-codes", h.SearchDiagnosisCodes)
	g.GET("/procedure-codes", h.SearchProcedureCodes)
	g.GET("/terminology", h.SearchTerminology)
	g.GET("/providers", h.SearchProviders)
	g.GET("/providers/:npi", h.GetProvider)

	g.GET("/cache/stats", h.CacheStats)
	g.DELETE("/cache", h.ClearCache)
}

// StatsResponse is the body of GET /lookup/cache/stats.
type StatsResponse struct {
	cache.Stats
	RateLimits map[string]ratelimit.WindowState `json:"rate_limits"`
}

func statusFor(success bool, cause error) int {
	switch {
	case success:
		return http.StatusOK
	case errors.Is(cause, ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(cause, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(cause, ErrProviderUnverified):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondList pages a list result with _count/offset and writes it.
func respondList[T any](c echo.Context, r Result[[]T]) error {
	if r.Success {
		p := pagination.FromContext(c)
		total := len(r.Data)
		c.Response().Header().Set("X-Total-Count", strconv.Itoa(total))
		if p.HasNext(total) {
			c.Response().Header().Set("X-Next-Offset", strconv.Itoa(p.NextOffset()))
		}
		r.Data = pagination.Page(r.Data, p)
	}
	return c.JSON(statusFor(r.Success, r.Cause()), r)
}

// SearchDiagnosisCodes handles GET /api/v1/lookup/diagnosis-codes?q=...
func (h *Handler) SearchDiagnosisCodes(c echo.Context) error {
	return respondList(c, h.svc.SearchDiagnosisCodes(c.Request().Context(), c.QueryParam("q")))
}

// SearchProcedureCodes handles GET /api/v1/lookup/procedure-codes?q=...
func (h *Handler) SearchProcedureCodes(c echo.Context) error {
	return respondList(c, h.svc.SearchProcedureCodes(c.Request().Context(), c.QueryParam("q")))
}

// SearchTerminology handles GET /api/v1/lookup/terminology?q=...
func (h *Handler) SearchTerminology(c echo.Context) error {
	return respondList(c, h.svc.SearchTerminology(c.Request().Context(), c.QueryParam("q")))
}

// SearchProviders handles GET /api/v1/lookup/providers?q=...
func (h *Handler) SearchProviders(c echo.Context) error {
	return respondList(c, h.svc.SearchProviders(c.Request().Context(), c.QueryParam("q")))
}

// GetProvider handles GET /api/v1/lookup/providers/:npi
func (h *Handler) GetProvider(c echo.Context) error {
	r := h.svc.LookupProviderByNPI(c.Request().Context(), c.Param("npi"))
	return c.JSON(statusFor(r.Success, r.Cause()), r)
}

// CacheStats handles GET /api/v1/lookup/cache/stats
func (h *Handler) CacheStats(c echo.Context) error {
	return c.JSON(http.StatusOK, StatsResponse{
		Stats:      h.svc.CacheStats(),
		RateLimits: h.svc.RateLimits(),
	})
}

// ClearCache handles DELETE /api/v1/lookup/cache
func (h *Handler) ClearCache(c echo.Context) error {
	h.svc.ClearCache()
	return c.NoContent(http.StatusNoContent)
}
