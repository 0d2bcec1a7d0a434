package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"exchangerates/internal/metrics"
	"exchangerates/internal/provider"
)

// RateService answers consensus rate queries. *aggregate.Aggregator
// satisfies it.
type RateService interface {
	GetRates(ctx context.Context, base string, symbols []string) (provider.RateMap, error)
}

// MetricsSource reports provider usage counters.
type MetricsSource interface {
	Snapshot() metrics.GlobalMetrics
}

type ratesResponse struct {
	Base  string           `json:"base"`
	Rates provider.RateMap `json:"rates"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves the rate and metrics endpoints.
type Handler struct {
	rates          RateService
	metrics        MetricsSource
	log            *zap.Logger
	requestTimeout time.Duration
}

func NewHandler(rates RateService, m MetricsSource, log *zap.Logger, requestTimeout time.Duration) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{rates: rates, metrics: m, log: log, requestTimeout: requestTimeout}
}

// GetRates handles GET /exchangeRates/:base?symbols=USD,NZD. Symbols may also
// be repeated: ?symbols=USD&symbols=NZD.
func (h *Handler) GetRates(c *gin.Context) {
	base := strings.TrimSpace(c.Param("base"))
	var symbols []string
	for _, v := range c.QueryArray("symbols") {
		symbols = append(symbols, provider.SplitCSV(v)...)
	}
	if len(symbols) == 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "symbols query parameter is required"})
		return
	}
	if len(symbols) > 500 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "too many symbols (max 500)"})
		return
	}

	ctx := c.Request.Context()
	if h.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.requestTimeout)
		defer cancel()
	}

	rates, err := h.rates.GetRates(ctx, base, symbols)
	switch {
	case errors.Is(err, provider.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, errorResponse{Error: "timed out waiting for exchange rates"})
		return
	case err != nil:
		h.log.Error("get rates failed", zap.String("base", base), zap.Strings("symbols", symbols), zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to retrieve exchange rates: " + err.Error()})
		return
	}
	if len(rates) == 0 {
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "No exchange rates available"})
		return
	}
	c.JSON(http.StatusOK, ratesResponse{Base: strings.ToUpper(base), Rates: rates})
}

// GetMetrics handles GET /metrics.
func (h *Handler) GetMetrics(c *gin.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			h.log.Error("metrics snapshot failed", zap.Any("panic", rec))
			c.JSON(http.StatusInternalServerError, errorResponse{Error: fmt.Sprintf("Failed to retrieve metrics: %v", rec)})
		}
	}()
	c.JSON(http.StatusOK, h.metrics.Snapshot())
}

// Healthz replies with a plain text ok over the middleware's JSON default.
func (h *Handler) Healthz(c *gin.Context) {
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.String(http.StatusOK, "ok")
}
