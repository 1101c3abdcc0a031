package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"saa-question-importer/internal/app"
	"saa-question-importer/internal/domain"
)

// ImportRunner starts one import and reports progress as it goes.
type ImportRunner interface {
	Run(ctx context.Context, progress app.ProgressFunc) (domain.ImportReport, error)
}

// WSHandler runs an import per connection and streams its progress to the client.
type WSHandler struct {
	runner   ImportRunner
	upgrader websocket.Upgrader
}

func NewWSHandler(runner ImportRunner) *WSHandler {
	return &WSHandler{
		runner: runner,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request, runs an import and sends "progress" messages followed by
// one "report" or "error". Closing the socket cancels the import.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	send := make(chan outboundMessage[any], 64)
	writerDone := make(chan struct{})

	// single writer: gorilla connections allow one concurrent writer
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				slog.Warn("ws write error", "error", err)
				cancel()
				// keep draining so producers never block
				for range send {
				}
				return
			}
		}
	}()

	// the client only ever closes; any read error ends the import
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	report, err := h.runner.Run(ctx, func(ev domain.ProgressEvent) {
		select {
		case send <- outboundMessage[any]{Type: "progress", Payload: ev}:
		case <-ctx.Done():
		}
	})
	if err != nil {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
	} else {
		send <- outboundMessage[any]{Type: "report", Payload: report}
	}
	close(send)
	<-writerDone

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "import complete"),
		time.Now().Add(time.Second))
}
