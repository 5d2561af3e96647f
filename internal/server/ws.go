package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/scribechat/scribechat/internal/reassembly"
	"github.com/scribechat/scribechat/models"
)

// ChatHandler owns the websocket endpoint. Frames are handled synchronously
// in the read loop; during a turn only the dispatcher worker writes to the
// socket, guarded by the deliverer's write lock.
type ChatHandler struct {
	Manager  *reassembly.Manager
	Pipeline *Pipeline
	upgrader websocket.Upgrader
	logger   *log.Logger
}

func NewChatHandler(manager *reassembly.Manager, pipeline *Pipeline) *ChatHandler {
	return &ChatHandler{
		Manager:  manager,
		Pipeline: pipeline,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: log.New(log.Writer(), "[WS] ", log.LstdFlags),
	}
}

func (h *ChatHandler) Register(e *echo.Echo) {
	e.GET("/ws/chat", h.serve)
}

// wsDeliverer writes snapshots to the peer. A failed write means the peer is
// unreachable; it reports ErrPeerGone so the dispatcher drains silently.
type wsDeliverer struct {
	mu   *sync.Mutex
	conn *websocket.Conn
}

func (d *wsDeliverer) Deliver(snapshot models.AnswerSnapshot) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.conn.WriteJSON(snapshot); err != nil {
		deliveryFailures.Inc()
		return models.ErrPeerGone
	}
	snapshotsDelivered.Inc()
	return nil
}

func (h *ChatHandler) serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	var writeMu sync.Mutex
	deliverer := &wsDeliverer{mu: &writeMu, conn: conn}
	ctx := c.Request().Context()

	var connID string
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Printf("read: %v", err)
			}
			return nil
		}

		var frame models.Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			h.writeError(&writeMu, conn, &models.ValidationError{Reason: "malformed frame"})
			continue
		}
		framesTotal.WithLabelValues(stepLabel(frame.Step)).Inc()

		switch frame.Step {
		case models.StepStart:
			id, err := h.Manager.Start(ctx, frame.Token)
			if err != nil {
				h.writeError(&writeMu, conn, err)
				continue
			}
			connID = id

		case models.StepBody:
			if frame.Index == nil {
				h.writeError(&writeMu, conn, &models.ValidationError{Reason: "body frame without index"})
				continue
			}
			if err := h.Manager.Append(ctx, connID, *frame.Index, frame.Part); err != nil {
				h.writeError(&writeMu, conn, err)
				continue
			}

		case models.StepEnd:
			req, principal, err := h.Manager.Complete(ctx, connID, frame.Token)
			if err != nil {
				h.writeError(&writeMu, conn, err)
				continue
			}
			h.Pipeline.Run(ctx, principal, req, deliverer)

		default:
			h.writeError(&writeMu, conn, &models.ValidationError{Reason: "unknown step"})
		}
	}
}

// stepLabel bounds the metric label set: peers choose the step string, so
// anything outside the protocol collapses to one label value.
func stepLabel(step string) string {
	switch step {
	case models.StepStart, models.StepBody, models.StepEnd:
		return step
	default:
		return "unknown"
	}
}

// writeError maps an error to the outbound error frame. Internal failures
// keep their detail in the log, not on the wire.
func (h *ChatHandler) writeError(mu *sync.Mutex, conn *websocket.Conn, err error) {
	var reason string
	var kind string
	var authErr *models.AuthenticationError
	var valErr *models.ValidationError
	switch {
	case errors.As(err, &authErr):
		kind, reason = "authentication", authErr.Reason
	case errors.As(err, &valErr):
		kind, reason = "validation", valErr.Reason
	default:
		kind, reason = "internal", "internal error"
		h.logger.Printf("frame failed: %v", err)
	}
	frameErrorsTotal.WithLabelValues(kind).Inc()

	mu.Lock()
	defer mu.Unlock()
	if err := conn.WriteJSON(models.ErrorFrame{Status: "ERROR", Reason: reason}); err != nil {
		h.logger.Printf("write error frame: %v", err)
	}
}
