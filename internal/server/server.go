package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ChannelSentinel/internal/calculator"
	"ChannelSentinel/internal/flow"
	"ChannelSentinel/internal/logging"
	"ChannelSentinel/internal/metrics"
	"ChannelSentinel/internal/model"
	"ChannelSentinel/internal/scanner"
	"ChannelSentinel/internal/strategy"
)

// Server is the diagnostics HTTP API.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	addr       string
	scanner    *scanner.Scanner
	metrics    *metrics.Metrics
	watchlist  func() []string
	logger     zerolog.Logger
}

// NewServer creates the server and registers its routes. watchlist supplies the symbols of
// a scan request that names none.
func NewServer(addr string, sc *scanner.Scanner, m *metrics.Metrics, watchlist func() []string, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router:    gin.New(),
		addr:      addr,
		scanner:   sc,
		metrics:   m,
		watchlist: watchlist,
		logger:    logging.Component(logger, "server"),
	}
	s.router.Use(s.requestLogger(), gin.Recovery())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := s.router.Group("/api/v1")
	{
		api.GET("/presets", s.handlePresets)
		api.GET("/channel/:symbol", s.handleChannel)
		api.GET("/signal/:symbol", s.handleSignal)
		api.GET("/signals/recent", s.handleRecentSignals)
		api.POST("/scan", s.handleScan)
		api.POST("/analyze", s.handleAnalyze)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info().Str("addr", s.addr).Msg("starting HTTP server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		ev := s.logger.Debug()
		if c.Writer.Status() >= http.StatusInternalServerError {
			ev = s.logger.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handlePresets(c *gin.Context) {
	successResponse(c, flow.Presets())
}

func (s *Server) handleChannel(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	ch, err := s.scanner.DetectChannel(c.Request.Context(), symbol)
	if err != nil {
		errorResponse(c, statusFor(err), err.Error())
		return
	}
	successResponse(c, ch)
}

func (s *Server) handleSignal(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	res := s.scanner.Scan(c.Request.Context(), uuid.NewString(), symbol)
	if res.Err != nil {
		errorResponse(c, statusFor(res.Err), res.Error)
		return
	}
	successResponse(c, res)
}

func (s *Server) handleRecentSignals(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 500 {
		errorResponse(c, http.StatusBadRequest, "limit must be within 1..500")
		return
	}
	recs, err := s.scanner.Recorder().RecentSignals(limit)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	successResponse(c, recs)
}

type scanRequest struct {
	Symbols []string `json:"symbols"`
}

func (s *Server) handleScan(c *gin.Context) {
	var req scanRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			errorResponse(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}
	}
	requested := req.Symbols
	if len(requested) == 0 {
		requested = s.watchlist()
	}
	symbols := make([]string, len(requested))
	for i, sym := range requested {
		symbols[i] = strings.ToUpper(sym)
	}
	cycle := s.scanner.RunCycle(c.Request.Context(), scanner.TriggerHTTP, symbols)
	successResponse(c, cycle)
}

// analyzeRequest runs the engine on caller-supplied closes, bypassing every data source.
type analyzeRequest struct {
	Symbol  string                `json:"symbol"`
	Closes  []float64             `json:"closes" binding:"required"`
	Context model.ExternalContext `json:"context"`
}

type analyzeResponse struct {
	Channel  *model.Channel     `json:"channel"`
	Decision *strategy.Decision `json:"decision"`
	Signal   *model.Signal      `json:"signal"`
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	opts := s.scanner.Options()
	ch, err := calculator.DetectChannel(req.Closes, opts.PivotLookback, opts.Params.Channel)
	if err != nil {
		errorResponse(c, statusFor(err), err.Error())
		return
	}
	d := strategy.Evaluate(strings.ToUpper(req.Symbol), ch, req.Context, opts.Params.Rules)
	successResponse(c, analyzeResponse{Channel: ch, Decision: d, Signal: d.Signal})
}

// statusFor maps an engine or data error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, calculator.ErrInsufficientData), errors.Is(err, calculator.ErrDegenerateFit):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":   true,
		"message": message,
	})
}

func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}
