package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Options struct {
	Rates          RateService
	Metrics        MetricsSource
	Gatherer       prometheus.Gatherer // nil hides /prometheus
	Logger         *zap.Logger
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// SetupRoutes registers every endpoint on engine.
func SetupRoutes(engine *gin.Engine, h *Handler, gatherer prometheus.Gatherer) {
	engine.GET("/healthz", h.Healthz)
	engine.GET("/exchangeRates/:base", h.GetRates)
	engine.GET("/metrics", h.GetMetrics)
	if gatherer != nil {
		engine.GET("/prometheus", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{DisableCompression: true})))
	}
}

// New returns the full HTTP handler: the gin engine behind the JSON, gzip and
// body limit middleware.
func New(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	engine := gin.New()
	engine.Use(requestLogger(log.Named("http")), recoverPanic(log))
	SetupRoutes(engine, NewHandler(opts.Rates, opts.Metrics, log, opts.RequestTimeout), opts.Gatherer)
	return withJSONHeaders(withGzip(limitBody(opts.MaxBodyBytes, engine)))
}
