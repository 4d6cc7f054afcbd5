package handler

import (
	"bufio"
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"appstore/internal/completion"
)

// keepAliveInterval is how long the stream may stay silent before a comment frame is sent.
var keepAliveInterval = time.Second

// startFunc begins a generation flow bound to ctx.
type startFunc func(ctx context.Context) <-chan completion.Event

// writeFrame renders one event. Token and usage frames are named; status, done and
// error frames use the default event type.
func writeFrame(w *bufio.Writer, ev completion.Event) error {
	switch ev.Kind {
	case completion.EventToken, completion.EventUsage:
		if _, err := w.WriteString("event: " + string(ev.Kind) + "\n"); err != nil {
			return err
		}
	}
	for _, line := range strings.Split(ev.Data, "\n") {
		if _, err := w.WriteString("data: " + line + "\n"); err != nil {
			return err
		}
	}
	if _, err := w.WriteString("\n"); err != nil {
		return err
	}
	return w.Flush()
}

// streamEvents answers with text/event-stream and relays events until the flow ends.
// A failed write cancels the flow, which closes the provider connection.
func streamEvents(c *fiber.Ctx, start startFunc) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	// The fiber.Ctx is recycled once the handler returns; capture what the writer needs.
	base := c.UserContext()
	rid := requestIDFromCtx(c)
	logger := zerolog.Ctx(base).With().Str("component", "sse").Str("request_id", rid).Logger()

	c.Status(fiber.StatusOK).Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(base)
		defer cancel()

		events := start(ctx)
		ticker := time.NewTicker(keepAliveInterval)
		defer ticker.Stop()

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				if err := writeFrame(w, ev); err != nil {
					logger.Debug().Err(err).Str("event", "client_gone").Msg("stream write failed")
					return
				}
				ticker.Reset(keepAliveInterval)
			case <-ticker.C:
				if _, err := w.WriteString(": keep-alive\n\n"); err != nil {
					logger.Debug().Err(err).Str("event", "client_gone").Msg("keep-alive write failed")
					return
				}
				if err := w.Flush(); err != nil {
					logger.Debug().Err(err).Str("event", "client_gone").Msg("keep-alive flush failed")
					return
				}
			}
		}
	})
	return nil
}
