package api

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	models "StockCast/internal/domain/models"
	"StockCast/internal/presenter"
	apimetrics "StockCast/internal/service/metrics"
	"StockCast/internal/service/ratelimit"
	"StockCast/internal/usecase"
	xhttp "StockCast/pkg/http"
	xlogger "StockCast/pkg/logger"
	"StockCast/pkg/util"

	"github.com/labstack/echo/v4"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

var dashboardTmpl = template.Must(template.ParseFS(templateFS, "templates/dashboard.html"))

// RateLimit configures the per-client token bucket on forecast endpoints.
type RateLimit struct {
	Capacity     float64
	RefillPerSec float64
}

// DashboardHandler serves the HTML dashboard and its JSON API.
type DashboardHandler struct {
	logger  *xlogger.Logger
	dash    *usecase.Dashboard
	limiter *ratelimit.Limiter
	rate    RateLimit

	livePath string
}

func NewDashboardHandler(logger *xlogger.Logger, dash *usecase.Dashboard, limiter *ratelimit.Limiter, rate RateLimit) *DashboardHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	if limiter == nil {
		limiter = ratelimit.New()
	}
	apimetrics.Register()
	return &DashboardHandler{logger: logger, dash: dash, limiter: limiter, rate: rate}
}

// SetLiveFeedPath makes the page subscribe to forecast events at path.
func (h *DashboardHandler) SetLiveFeedPath(path string) { h.livePath = path }

func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Index)
	g := e.Group("/api")
	g.GET("/models", h.Models)
	g.GET("/history", h.History)
	g.GET("/forecast", h.Forecast)
	g.GET("/forecast/chart", h.Chart)
	g.POST("/reload", h.Reload)
}

type forecastPointDTO struct {
	Date  string   `json:"date"`
	Value float64  `json:"value"`
	Lower *float64 `json:"lower,omitempty"`
	Upper *float64 `json:"upper,omitempty"`
}

type forecastDTO struct {
	Model      string             `json:"model"`
	Horizon    int                `json:"horizon"`
	LastDate   string             `json:"last_date"`
	Title      string             `json:"title"`
	Confidence float64            `json:"confidence,omitempty"`
	Points     []forecastPointDTO `json:"points"`
	Table      presenter.Table    `json:"table"`
	Warnings   []string           `json:"warnings,omitempty"`
}

type historyDTO struct {
	Symbol string          `json:"symbol"`
	Points int             `json:"points"`
	Table  presenter.Table `json:"table"`
	Error  string          `json:"error,omitempty"`
}

func (h *DashboardHandler) Models(c echo.Context) error {
	ov := h.dash.Overview(c.Request().Context())
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"models":      ov.Models,
		"load_errors": ov.LoadErrors,
		"horizon": map[string]int{
			"min":     ov.MinHorizon,
			"max":     ov.MaxHorizon,
			"default": ov.DefaultHorizon,
		},
	})
}

func (h *DashboardHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	s, err := h.dash.History(c.Request().Context())
	out := historyDTO{Symbol: s.Symbol, Points: s.Len(), Table: presenter.HistoryTable(s, req.Tail)}
	if err != nil {
		out.Error = err.Error()
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *DashboardHandler) Forecast(c echo.Context) error {
	start := time.Now()
	defer func() { apimetrics.APILatency.WithLabelValues("forecast").Observe(time.Since(start).Seconds()) }()

	res, err := h.forecast(c)
	if err != nil {
		return h.fail(c, "forecast", err)
	}
	return xhttp.SuccessResponse(c, toForecastDTO(res))
}

// Chart returns the forecast chart as a standalone HTML page.
func (h *DashboardHandler) Chart(c echo.Context) error {
	start := time.Now()
	defer func() { apimetrics.APILatency.WithLabelValues("chart").Observe(time.Since(start).Seconds()) }()

	res, err := h.forecast(c)
	if err != nil {
		return h.fail(c, "chart", err)
	}
	page, err := h.dash.Chart(res)
	if err != nil {
		h.logger.Error("chart render error", xlogger.Error(err))
		return h.fail(c, "chart", err)
	}
	return c.HTMLBlob(http.StatusOK, page)
}

func (h *DashboardHandler) Reload(c echo.Context) error {
	res := h.dash.Reload(c.Request().Context())
	return xhttp.SuccessResponse(c, res)
}

type indexView struct {
	Models      []usecase.ModelInfo
	Selected    string
	Horizon     int
	MinHorizon  int
	MaxHorizon  int
	ShowHistory bool
	Warnings    []string
	Error       string
	Forecast    *usecase.ForecastResult
	ChartDoc    string
	History     presenter.Table
	LiveFeed    string
}

// Index renders the dashboard. A forecast runs only when the form is submitted.
func (h *DashboardHandler) Index(c echo.Context) error {
	ctx := c.Request().Context()
	ov := h.dash.Overview(ctx)

	view := indexView{
		Models:      ov.Models,
		Horizon:     ov.DefaultHorizon,
		MinHorizon:  ov.MinHorizon,
		MaxHorizon:  ov.MaxHorizon,
		ShowHistory: c.QueryParam("show_history") != "",
		Warnings:    ov.Warnings,
		History:     ov.HistoryTable,
		LiveFeed:    h.livePath,
	}
	if len(ov.Models) > 0 {
		view.Selected = ov.Models[0].Name
	}
	if m := c.QueryParam("model"); m != "" {
		view.Selected = m
	}
	view.Horizon = util.ClampInt(util.ParseIntDefault(c.QueryParam("horizon"), ov.DefaultHorizon), ov.MinHorizon, ov.MaxHorizon)

	if c.QueryParam("run") != "" && len(ov.Models) > 0 {
		res, err := h.forecast(c)
		if err != nil {
			view.Error = errorMessage(err)
		} else {
			view.Forecast = res
			// rendered from this result; an iframe src would run the forecast again
			if page, err := h.dash.Chart(res); err != nil {
				h.logger.Error("chart render error", xlogger.Error(err))
			} else {
				view.ChartDoc = string(page)
			}
		}
	}

	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, view); err != nil {
		h.logger.Error("dashboard render error", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

// forecast binds the request, applies the rate limit and runs the use case.
func (h *DashboardHandler) forecast(c echo.Context) (*usecase.ForecastResult, error) {
	if h.rate.Capacity > 0 && !h.limiter.Allow(c.RealIP(), h.rate.Capacity, h.rate.RefillPerSec) {
		apimetrics.RateLimited.Inc()
		return nil, xhttp.TooManyRequestsError("too many forecast requests")
	}

	cfg := h.dash.Config()
	req := &models.ForecastRequest{Horizon: cfg.DefaultHorizon}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return nil, validationErrors(verr)
	}
	if verr := horizonBounds(req.Horizon, cfg.MinHorizon, cfg.MaxHorizon); verr != nil {
		return nil, verr
	}
	return h.dash.GenerateForecast(c.Request().Context(), req.Model, req.Horizon)
}

type validationErrors []xhttp.ValidationError

// horizonBounds checks horizon against the configured range.
func horizonBounds(horizon, lo, hi int) validationErrors {
	switch {
	case horizon < lo:
		return validationErrors{{
			Code:    "ERR_GTE",
			Field:   "horizon",
			Message: fmt.Sprintf("horizon must be greater than or equal to %d", lo),
			Params:  map[string]interface{}{"min": strconv.Itoa(lo)},
		}}
	case horizon > hi:
		return validationErrors{{
			Code:    "ERR_LTE",
			Field:   "horizon",
			Message: fmt.Sprintf("horizon must be less than or equal to %d", hi),
			Params:  map[string]interface{}{"max": strconv.Itoa(hi)},
		}}
	}
	return nil
}

func (v validationErrors) Error() string {
	if len(v) == 0 {
		return "invalid request"
	}
	return v[0].Message
}

func (h *DashboardHandler) fail(c echo.Context, endpoint string, err error) error {
	var verr validationErrors
	if errors.As(err, &verr) {
		apimetrics.APIErrors.WithLabelValues(endpoint, "ERR_VALIDATION").Inc()
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError(verr))
	}
	appErr := toAppError(err)
	apimetrics.APIErrors.WithLabelValues(endpoint, appErr.Code).Inc()
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error("dashboard usecase error", xlogger.String("endpoint", endpoint), xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

// toAppError maps domain errors onto transport errors.
func toAppError(err error) *xhttp.AppError {
	var (
		appErr   *xhttp.AppError
		notFound *models.ModelNotFoundError
		fe       *models.ForecastError
	)
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, models.ErrNoModels):
		return xhttp.ConflictError("ERR_NO_MODELS", "no models available").WithError(err)
	case errors.As(err, &notFound):
		return xhttp.NotFoundErrorf("model %q not found", notFound.Name).WithParam("model", notFound.Name)
	case errors.As(err, &fe):
		return xhttp.UnprocessableError("ERR_FORECAST", fe.Error()).
			WithParam("model", fe.Model).
			WithParam("horizon", fe.Horizon).
			WithError(err)
	default:
		return xhttp.InternalErrorf("unexpected error").WithError(err)
	}
}

func errorMessage(err error) string {
	var verr validationErrors
	if errors.As(err, &verr) {
		return "Invalid request: " + verr.Error()
	}
	return toAppError(err).Message
}

func toForecastDTO(res *usecase.ForecastResult) forecastDTO {
	f := res.Forecast
	out := forecastDTO{
		Model:    f.Model,
		Horizon:  f.Len(),
		LastDate: f.LastDate.Format("2006-01-02"),
		Title:    res.Title,
		Points:   make([]forecastPointDTO, len(f.Points)),
		Table:    res.ForecastTable,
		Warnings: res.Warnings,
	}
	if f.HasIntervals {
		out.Confidence = f.Confidence
	}
	for i, p := range f.Points {
		dto := forecastPointDTO{Date: p.Date.Format("2006-01-02"), Value: p.Value}
		if f.HasIntervals {
			lo, hi := p.Lower, p.Upper
			dto.Lower, dto.Upper = &lo, &hi
		}
		out.Points[i] = dto
	}
	return out
}
