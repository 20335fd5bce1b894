package api

import (
	"net/http"

	"dividend_tracker/internal/quotes"
	"dividend_tracker/internal/tracker"

	"github.com/gin-gonic/gin"
)

const notAvailable = "N/A"

// getDividend serves the standalone quote lookup used by the browser client:
// yield defaults to 0, rate and forward EPS to "N/A".
func (m ApiHandler) getDividend(c *gin.Context) {
	symbol := tracker.NormalizeSymbol(c.Query("symbol"))
	if symbol == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Missing symbol"})
		return
	}

	info, err := m.Fetcher.FetchDividendInfo(c.Request.Context(), symbol)
	if err == nil && info == nil {
		err = quotes.ErrNoData
	}
	if err != nil {
		returnErrorJson(err, c)
		return
	}

	out := gin.H{
		"symbol":        symbol,
		"dividendYield": 0.0,
		"forwardEps":    notAvailable,
		"dividendRate":  notAvailable,
	}
	if info.DividendYield != nil {
		out["dividendYield"] = *info.DividendYield
	}
	if info.ForwardEps != nil {
		out["forwardEps"] = *info.ForwardEps
	}
	if info.DividendRate != nil {
		out["dividendRate"] = *info.DividendRate
	}
	c.JSON(200, out)
}
