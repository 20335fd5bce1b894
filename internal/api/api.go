package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"dividend_tracker/internal/chart"
	"dividend_tracker/internal/models"
	"dividend_tracker/internal/quotes"
	"dividend_tracker/internal/tracker"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// Portfolio is the tracker surface the HTTP layer drives.
type Portfolio interface {
	AddPosition(ctx context.Context, symbol string) (models.Position, error)
	RemovePosition(ctx context.Context, index int) error
	SetShares(ctx context.Context, index int, raw string) error
	Positions() []models.Position
	Income() []models.IncomeRow
	Summary() models.Summary
	Subscribe(l tracker.Listener) (cancel func())
}

type ApiHandler struct {
	Portfolio Portfolio
	Fetcher   quotes.Fetcher
	Gatherer  prometheus.Gatherer
	ChartOpts chart.Options
	Log       *zap.SugaredLogger
}

// Router builds the gin engine with every route mounted.
func (m ApiHandler) Router() *gin.Engine {
	if m.Log == nil {
		m.Log = zap.S()
	}
	if m.ChartOpts.Format == "" {
		m.ChartOpts = chart.DefaultOptions()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())
	router.Use(m.logRequestMiddleware)

	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(200, map[string]string{"message": "welcome to dividend tracker"})
	})
	router.GET("/dividend", m.getDividend)

	router.GET("/positions", m.listPositions)
	router.POST("/positions", m.addPosition)
	router.DELETE("/positions/:index", m.removePosition)
	router.PUT("/positions/:index/shares", m.setShares)

	router.GET("/income", m.getIncome)
	router.GET("/income/chart.png", m.getIncomeChart)
	router.GET("/summary", m.getSummary)
	router.GET("/ws", m.liveFeed)

	if m.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Gatherer, promhttp.HandlerOpts{})))
	}
	return router
}

// StartApi serves until ctx is cancelled, then shuts down gracefully.
func (m ApiHandler) StartApi(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           m.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func returnErrorJson(err error, c *gin.Context) {
	returnErrorJsonCode(err, c, http.StatusInternalServerError)
}

func returnErrorJsonCode(err error, c *gin.Context, code int) {
	c.AbortWithStatusJSON(code, gin.H{
		"error": err.Error(),
	})
}

// statusFor maps tracker errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, tracker.ErrEmptySymbol):
		return http.StatusBadRequest
	case errors.Is(err, tracker.ErrDuplicateSymbol):
		return http.StatusConflict
	case errors.Is(err, tracker.ErrQuoteUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, tracker.ErrIndexOutOfRange):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (m ApiHandler) logRequestMiddleware(ctx *gin.Context) {
	requestID := ctx.GetHeader(requestIDHeader)
	if _, err := uuid.Parse(requestID); err != nil {
		requestID = uuid.NewString()
	}
	ctx.Set("requestID", requestID)
	ctx.Header(requestIDHeader, requestID)

	start := time.Now().UTC()
	ctx.Next()

	m.Log.Infow("request",
		"request_id", requestID,
		"method", ctx.Request.Method,
		"route", ctx.Request.URL.Path,
		"status", ctx.Writer.Status(),
		"duration_ms", time.Since(start).Milliseconds(),
		"ip", ctx.ClientIP(),
	)
}
