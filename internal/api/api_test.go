package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dividend_tracker/internal/metrics"
	"dividend_tracker/internal/models"
	"dividend_tracker/internal/quotes"
	"dividend_tracker/internal/storage"
	"dividend_tracker/internal/tracker"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func testFetcher() quotes.Fetcher {
	return quotes.FetcherFunc(func(_ context.Context, symbol string) (*models.DividendInfo, error) {
		switch symbol {
		case "KO":
			return &models.DividendInfo{Symbol: symbol, DividendRate: models.Float(1.84), DividendYield: models.Float(0.031), ForwardEps: models.Float(2.9)}, nil
		case "AMZN":
			return &models.DividendInfo{Symbol: symbol}, nil
		}
		return nil, errors.New("unknown symbol")
	})
}

func newTestServer(t *testing.T) (*gin.Engine, *tracker.Tracker) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := prometheus.NewRegistry()
	rec, err := metrics.New(reg)
	require.NoError(t, err)

	tr := tracker.New(testFetcher(), storage.NewMemoryStore(), tracker.WithMetrics(rec))
	require.NoError(t, tr.Initialize(context.Background()))

	h := ApiHandler{Portfolio: tr, Fetcher: testFetcher(), Gatherer: reg}
	return h.Router(), tr
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetDividend(t *testing.T) {
	r, _ := newTestServer(t)

	w := do(r, http.MethodGet, "/dividend?symbol=ko", "")
	require.Equal(t, 200, w.Code)
	require.JSONEq(t, `{"symbol":"KO","dividendYield":0.031,"dividendRate":1.84,"forwardEps":2.9}`, w.Body.String())

	w = do(r, http.MethodGet, "/dividend?symbol=AMZN", "")
	require.Equal(t, 200, w.Code)
	require.JSONEq(t, `{"symbol":"AMZN","dividendYield":0,"dividendRate":"N/A","forwardEps":"N/A"}`, w.Body.String())

	w = do(r, http.MethodGet, "/dividend", "")
	require.Equal(t, 400, w.Code)
	require.JSONEq(t, `{"error":"Missing symbol"}`, w.Body.String())

	w = do(r, http.MethodGet, "/dividend?symbol=XYZ", "")
	require.Equal(t, 500, w.Code)
	require.Contains(t, w.Body.String(), "unknown symbol")
}

func TestPositionsLifecycle(t *testing.T) {
	r, tr := newTestServer(t)

	w := do(r, http.MethodPost, "/positions", `{"symbol":" ko "}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(r, http.MethodPost, "/positions", `{"symbol":"KO"}`)
	require.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodPost, "/positions", `{"symbol":"XYZ"}`)
	require.Equal(t, http.StatusBadGateway, w.Code)

	w = do(r, http.MethodPost, "/positions", `{"symbol":"  "}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/positions", `{"symbol":"AMZN"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(r, http.MethodPut, "/positions/0/shares", `{"shares":"10"}`)
	require.Equal(t, 200, w.Code)
	var got []positionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	require.Equal(t, "KO", got[0].Symbol)
	require.Equal(t, models.Shares(10), got[0].Shares)
	require.Equal(t, "18.40", got[0].EstimatedAnnualIncome)
	require.Equal(t, "0.00", got[1].EstimatedAnnualIncome)

	w = do(r, http.MethodPut, "/positions/1/shares", `{"shares":2.5}`)
	require.Equal(t, 200, w.Code)
	require.Equal(t, models.Shares(2.5), tr.Positions()[1].Shares)

	w = do(r, http.MethodPut, "/positions/7/shares", `{"shares":"1"}`)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodDelete, "/positions/abc", "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodDelete, "/positions/-1", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodDelete, "/positions/0", "")
	require.Equal(t, 200, w.Code)
	require.Len(t, tr.Positions(), 1)
	require.Equal(t, "AMZN", tr.Positions()[0].Symbol)
}

func TestIncomeSummaryAndChart(t *testing.T) {
	r, _ := newTestServer(t)

	w := do(r, http.MethodGet, "/income/chart.png", "")
	require.Equal(t, http.StatusNoContent, w.Code)

	do(r, http.MethodPost, "/positions", `{"symbol":"KO"}`)
	do(r, http.MethodPut, "/positions/0/shares", `{"shares":"3"}`)

	w = do(r, http.MethodGet, "/income", "")
	require.Equal(t, 200, w.Code)
	require.JSONEq(t, `{"rows":[{"symbol":"KO","estimatedAnnualIncome":"5.52"}],"total":"5.52"}`, w.Body.String())

	w = do(r, http.MethodGet, "/summary", "")
	require.Equal(t, 200, w.Code)
	var s models.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	require.Equal(t, 1, s.Positions)
	require.Equal(t, "5.52", s.TotalIncome.StringFixed(2))

	w = do(r, http.MethodGet, "/income/chart.png", "")
	require.Equal(t, 200, w.Code)
	require.Equal(t, "image/png", w.Header().Get("Content-Type"))
	require.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))
}

func TestMetricsAndRequestID(t *testing.T) {
	r, _ := newTestServer(t)
	do(r, http.MethodPost, "/positions", `{"symbol":"KO"}`)

	w := do(r, http.MethodGet, "/metrics", "")
	require.Equal(t, 200, w.Code)
	require.Contains(t, w.Body.String(), `tracker_operations_total{op="add",result="ok"} 1`)

	_, err := uuid.Parse(w.Header().Get(requestIDHeader))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	id := uuid.NewString()
	req.Header.Set(requestIDHeader, id)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, id, rec.Header().Get(requestIDHeader))
}

func TestLiveFeed(t *testing.T) {
	r, tr := newTestServer(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var msg snapshotMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "snapshot", msg.Type)
	require.Empty(t, msg.Positions)

	_, err = tr.AddPosition(context.Background(), "KO")
	require.NoError(t, err)

	require.NoError(t, conn.ReadJSON(&msg))
	require.Len(t, msg.Positions, 1)
	require.Equal(t, "KO", msg.Positions[0].Symbol)
	require.Len(t, msg.Income, 1)
	require.Equal(t, "1.84", msg.Income[0].EstimatedAnnualIncome.StringFixed(2))
}

// staleIncome answers Income from an older portfolio state.
type staleIncome struct {
	*tracker.Tracker
	rows []models.IncomeRow
}

func (s staleIncome) Income() []models.IncomeRow { return s.rows }

func TestListPositions_IncomeFromSameSnapshot(t *testing.T) {
	_, tr := newTestServer(t)
	ctx := context.Background()
	_, err := tr.AddPosition(ctx, "AMZN")
	require.NoError(t, err)
	_, err = tr.AddPosition(ctx, "KO")
	require.NoError(t, err)

	// rows as they were before AMZN was added in front of KO
	stale := []models.IncomeRow{{Symbol: "KO", EstimatedAnnualIncome: decimal.RequireFromString("1.84")}}
	h := ApiHandler{Portfolio: staleIncome{Tracker: tr, rows: stale}, Fetcher: testFetcher()}

	w := do(h.Router(), http.MethodGet, "/positions", "")
	require.Equal(t, 200, w.Code)
	var got []positionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	require.Equal(t, "AMZN", got[0].Symbol)
	require.Equal(t, "0.00", got[0].EstimatedAnnualIncome)
	require.Equal(t, "KO", got[1].Symbol)
	require.Equal(t, "1.84", got[1].EstimatedAnnualIncome)
}
