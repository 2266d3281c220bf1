package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"kitchen-board/board"
	"kitchen-board/domain"
)

const postBodyMaxSize = 64 << 10

// Config collects the collaborators the handlers act on.
type Config struct {
	Board      Board
	Alerts     Alerts
	Sync       SyncStats
	Stream     Streamer
	Auth       Authenticator
	Thresholds domain.UrgencyThresholds
	Logger     *log.Logger
}

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, cfg Config) {
	e.GET("/api/board", getBoard(cfg))
	e.POST("/api/board/drag", postDrag(cfg))
	e.DELETE("/api/board/drag", deleteDrag(cfg))
	e.POST("/api/board/move", postMove(cfg))
	e.POST("/api/board/advance", postAdvance(cfg))
	e.POST("/api/board/cancel", postCancel(cfg))
	e.GET("/api/board/mute", getMute(cfg))
	e.PUT("/api/board/mute", putMute(cfg))
	e.GET("/api/board/sync", getSync(cfg))
	e.GET("/api/board/stream", streamBoard(cfg))
	e.GET("/healthz", healthz())
}

type orderView struct {
	domain.Order
	Urgency domain.UrgencyLevel    `json:"urgency"`
	Elapsed domain.ElapsedTimeData `json:"elapsed"`
}

type columnView struct {
	Column domain.Column `json:"column"`
	Orders []orderView   `json:"orders"`
}

type boardResponse struct {
	Columns          []columnView `json:"columns"`
	Muted            bool         `json:"muted"`
	PendingMutations int          `json:"pendingMutations"`
}

type dragRequest struct {
	OrderID string `json:"orderId"`
}

type dragResponse struct {
	ValidTargets []domain.Column `json:"validTargets"`
}

type moveRequest struct {
	OrderID string        `json:"orderId"`
	Target  domain.Column `json:"target"`
}

type advanceRequest struct {
	OrderID string `json:"orderId"`
}

type cancelRequest struct {
	OrderID string `json:"orderId"`
	Reason  string `json:"reason"`
}

type muteRequest struct {
	Muted bool `json:"muted"`
}

type muteResponse struct {
	Muted bool `json:"muted"`
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func getBoard(cfg Config) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newBoardRequestMetrics(ctx, cfg.Logger)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		_, authErr := cfg.Auth.StaffIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		buildStart := time.Now()
		resp := buildBoardResponse(cfg, time.Now())
		metrics.ObserveBuild(time.Since(buildStart))
		total := 0
		for i := range resp.Columns {
			total += len(resp.Columns[i].Orders)
		}
		metrics.SetOrdersReturned(total)

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, resp)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func buildBoardResponse(cfg Config, now time.Time) boardResponse {
	state := cfg.Board.State()
	resp := boardResponse{
		Columns: make([]columnView, 0, len(domain.Columns)),
		Muted:   cfg.Alerts.Muted(),
	}
	if cfg.Sync != nil {
		resp.PendingMutations = cfg.Sync.Stats().Pending
	}
	for _, col := range domain.Columns {
		orders := state[col]
		views := make([]orderView, 0, len(orders))
		for _, o := range orders {
			views = append(views, orderView{
				Order:   o,
				Urgency: domain.Urgency(o.ConfirmedAt, now, cfg.Thresholds),
				Elapsed: domain.ElapsedTime(o.ConfirmedAt, now),
			})
		}
		resp.Columns = append(resp.Columns, columnView{Column: col, Orders: views})
	}
	return resp
}

func postDrag(cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := authorize(c, cfg.Auth); err != nil {
			return err
		}
		var req dragRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if req.OrderID == "" {
			return c.String(http.StatusBadRequest, "missing order id")
		}
		targets, err := cfg.Board.BeginDrag(req.OrderID)
		if err != nil {
			return boardError(c, err)
		}
		return c.JSON(http.StatusOK, dragResponse{ValidTargets: targets})
	}
}

func deleteDrag(cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := authorize(c, cfg.Auth); err != nil {
			return err
		}
		cfg.Board.CancelDrag()
		return c.NoContent(http.StatusNoContent)
	}
}

func postMove(cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := authorize(c, cfg.Auth); err != nil {
			return err
		}
		var req moveRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if req.OrderID == "" || req.Target == "" {
			return c.String(http.StatusBadRequest, "missing order id or target")
		}
		if err := cfg.Board.MoveCard(req.OrderID, req.Target); err != nil {
			return boardError(c, err)
		}
		return c.NoContent(http.StatusAccepted)
	}
}

func postAdvance(cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := authorize(c, cfg.Auth); err != nil {
			return err
		}
		var req advanceRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if req.OrderID == "" {
			return c.String(http.StatusBadRequest, "missing order id")
		}
		if err := cfg.Board.MoveToNext(req.OrderID); err != nil {
			return boardError(c, err)
		}
		return c.NoContent(http.StatusAccepted)
	}
}

func postCancel(cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := authorize(c, cfg.Auth); err != nil {
			return err
		}
		var req cancelRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if req.OrderID == "" {
			return c.String(http.StatusBadRequest, "missing order id")
		}
		if err := cfg.Board.Cancel(req.OrderID, req.Reason); err != nil {
			return boardError(c, err)
		}
		return c.NoContent(http.StatusAccepted)
	}
}

func getMute(cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := authorize(c, cfg.Auth); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, muteResponse{Muted: cfg.Alerts.Muted()})
	}
}

func putMute(cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := authorize(c, cfg.Auth); err != nil {
			return err
		}
		var req muteRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if err := cfg.Alerts.SetMuted(c.Request().Context(), req.Muted); err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "failed to persist preference")
		}
		return c.JSON(http.StatusOK, muteResponse{Muted: req.Muted})
	}
}

func getSync(cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := authorize(c, cfg.Auth); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, cfg.Sync.Stats())
	}
}

// streamBoard pushes live board, toast and chime events over SSE. The first
// subscription arms the alert trigger, mirroring a user-gesture gate on the
// consuming display.
func streamBoard(cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := c.QueryParam("token")
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" && token != "" {
			authHeader = "Bearer " + token
		}
		if _, err := cfg.Auth.StaffIDFromAuthHeader(authHeader); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
		c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
		c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
		c.Response().Header().Set("X-Accel-Buffering", "no")
		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}

		ch, cancel := cfg.Stream.Subscribe()
		defer cancel()
		cfg.Alerts.Activate()

		ctx := c.Request().Context()
		snapshot := buildBoardResponse(cfg, time.Now())
		if err := writeSSE(c, flusher, "board", snapshot); err != nil {
			return err
		}
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, open := <-ch:
				if !open {
					return nil
				}
				if err := writeSSE(c, flusher, ev.Kind, ev); err != nil {
					return err
				}
			}
		}
	}
}

func writeSSE(c echo.Context, flusher http.Flusher, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		c.Logger().Error(err)
		return err
	}
	if _, err := c.Response().Write([]byte("event: " + event + "\ndata: ")); err != nil {
		return err
	}
	if _, err := c.Response().Write(data); err != nil {
		return err
	}
	if _, err := c.Response().Write([]byte("\n\n")); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func authorize(c echo.Context, auth Authenticator) error {
	_, err := auth.StaffIDFromAuthHeader(c.Request().Header.Get("Authorization"))
	if err != nil {
		return c.String(http.StatusUnauthorized, err.Error())
	}
	return nil
}

func decodeBody(c echo.Context, dst any) error {
	lr := io.LimitReader(c.Request().Body, postBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func boardError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, board.ErrUnknownOrder):
		return c.String(http.StatusNotFound, err.Error())
	case errors.Is(err, board.ErrInvalidTransition),
		errors.Is(err, board.ErrNoNextColumn),
		errors.Is(err, board.ErrTerminalOrder):
		return c.String(http.StatusConflict, err.Error())
	default:
		c.Logger().Error(err)
		return c.String(http.StatusInternalServerError, err.Error())
	}
}
