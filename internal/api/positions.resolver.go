package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"dividend_tracker/internal/chart"
	"dividend_tracker/internal/models"
	"dividend_tracker/internal/tracker"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type addPositionRequest struct {
	Symbol string `json:"symbol"`
}

// setSharesRequest accepts the share count as a JSON string or number so that
// the raw text typed by the user reaches the tracker's coercion unchanged.
type setSharesRequest struct {
	Shares jsonRaw `json:"shares"`
}

type jsonRaw string

func (j *jsonRaw) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil {
			return err
		}
		*j = jsonRaw(s)
		return nil
	}
	if string(b) == "null" {
		*j = ""
		return nil
	}
	*j = jsonRaw(b)
	return nil
}

type positionResponse struct {
	Index int `json:"index"`
	models.Position
	EstimatedAnnualIncome string `json:"estimatedAnnualIncome"`
}

func (m ApiHandler) positionsResponse() []positionResponse {
	// income is derived from the same snapshot so rows cannot be mismatched
	positions := m.Portfolio.Positions()
	income := tracker.IncomeRows(positions)
	out := make([]positionResponse, len(positions))
	for i, p := range positions {
		out[i] = positionResponse{Index: i, Position: p, EstimatedAnnualIncome: income[i].EstimatedAnnualIncome.StringFixed(2)}
	}
	return out
}

func (m ApiHandler) listPositions(c *gin.Context) {
	c.JSON(200, m.positionsResponse())
}

func (m ApiHandler) addPosition(c *gin.Context) {
	var req addPositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		returnErrorJsonCode(fmt.Errorf("invalid request body: %w", err), c, http.StatusBadRequest)
		return
	}

	pos, err := m.Portfolio.AddPosition(c.Request.Context(), req.Symbol)
	if err != nil {
		returnErrorJsonCode(err, c, statusFor(err))
		return
	}
	c.JSON(http.StatusCreated, pos)
}

func (m ApiHandler) removePosition(c *gin.Context) {
	idx, err := indexParam(c)
	if err != nil {
		returnErrorJsonCode(err, c, http.StatusBadRequest)
		return
	}
	if err := m.Portfolio.RemovePosition(c.Request.Context(), idx); err != nil {
		returnErrorJsonCode(err, c, statusFor(err))
		return
	}
	c.JSON(200, m.positionsResponse())
}

func (m ApiHandler) setShares(c *gin.Context) {
	idx, err := indexParam(c)
	if err != nil {
		returnErrorJsonCode(err, c, http.StatusBadRequest)
		return
	}
	var req setSharesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		returnErrorJsonCode(fmt.Errorf("invalid request body: %w", err), c, http.StatusBadRequest)
		return
	}
	if err := m.Portfolio.SetShares(c.Request.Context(), idx, string(req.Shares)); err != nil {
		returnErrorJsonCode(err, c, statusFor(err))
		return
	}
	c.JSON(200, m.positionsResponse())
}

func indexParam(c *gin.Context) (int, error) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return 0, fmt.Errorf("index must be an integer: %q", c.Param("index"))
	}
	return idx, nil
}

type incomeResponse struct {
	Rows  []models.IncomeRow `json:"rows"`
	Total string             `json:"total"`
}

func (m ApiHandler) getIncome(c *gin.Context) {
	rows := m.Portfolio.Income()
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.EstimatedAnnualIncome)
	}
	c.JSON(200, incomeResponse{Rows: rows, Total: total.StringFixed(2)})
}

func (m ApiHandler) getSummary(c *gin.Context) {
	c.JSON(200, m.Portfolio.Summary())
}

func (m ApiHandler) getIncomeChart(c *gin.Context) {
	var buf bytes.Buffer
	opts := m.ChartOpts
	opts.Format = "png"
	if err := chart.Render(&buf, m.Portfolio.Income(), opts); err != nil {
		if errors.Is(err, chart.ErrNoRows) {
			c.Status(http.StatusNoContent)
			return
		}
		returnErrorJson(err, c)
		return
	}
	c.Data(200, "image/png", buf.Bytes())
}
