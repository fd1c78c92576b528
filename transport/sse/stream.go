package sse

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/wricardo/chessbroker/game/session"
)

// ErrStreamingUnsupported is returned when the response writer cannot flush
var ErrStreamingUnsupported = errors.New("streaming not supported")

// Stream writes conn's frames to w as server-sent events until the
// connection is closed or ctx ends. Events become "data:" messages and
// probes become ": ping" comments, acknowledged once flushed. The
// connection is closed on return.
func Stream(ctx context.Context, w http.ResponseWriter, conn *session.Conn, logger *zap.Logger) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		conn.Close()
		return ErrStreamingUnsupported
	}
	defer conn.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-conn.Done():
			// deliver whatever was queued before the close
			for {
				select {
				case frame := <-conn.Frames():
					if err := writeFrame(w, flusher, frame); err != nil {
						return err
					}
				default:
					return nil
				}
			}
		case frame := <-conn.Frames():
			if err := writeFrame(w, flusher, frame); err != nil {
				logger.Debug("sse write failed", zap.String("player_id", conn.PlayerID()), zap.Error(err))
				return err
			}
		}
	}
}

func writeFrame(w http.ResponseWriter, flusher http.Flusher, frame session.Frame) error {
	if frame.IsProbe() {
		if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
			return err
		}
		flusher.Flush()
		frame.Ack()
		return nil
	}

	data, err := session.MarshalEvent(frame.Event())
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
