package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

type EventKind string

const (
	EventStatus EventKind = "status"
	EventToken  EventKind = "token"
	EventUsage  EventKind = "usage"
	EventDone   EventKind = "done"
	EventError  EventKind = "error"
)

// Event is one client-facing item. Data is plain text for status/done/error and JSON
// for token/usage.
type Event struct {
	Kind EventKind
	Data string
}

type State int

const (
	StateIdle State = iota
	StateRequestSent
	StateStreaming
	StateCompleted
	StateErrored
)

func (s State) Terminal() bool { return s == StateCompleted || s == StateErrored }

const msgStreamEnded = "Stream ended"

// Phrases are the flow-specific status texts a relay and its generator emit.
type Phrases struct {
	Starting     string
	MessageStart string
	Complete     string
}

var (
	GeneratePhrases = Phrases{
		Starting:     "Starting generation...",
		MessageStart: "Starting message generation...",
		Complete:     "Generation complete!",
	}
	ModifyPhrases = Phrases{
		Starting:     "Starting code modification...",
		MessageStart: "Starting code modification...",
		Complete:     "Code modification complete!",
	}
)

// Usage is the latest token accounting seen on the stream.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Relay translates one provider event stream into client events. A Relay is single-use.
type Relay struct {
	prefill    string
	phrases    Phrases
	logger     zerolog.Logger
	metrics    *Metrics
	emit       func(Event) error
	state      State
	firstToken bool
	usage      *Usage
}

// NewRelay creates a relay that prepends prefill to the first token and speaks with
// GeneratePhrases. metrics may be nil.
func NewRelay(prefill string, emit func(Event) error, metrics *Metrics, logger zerolog.Logger) *Relay {
	return &Relay{
		prefill:    prefill,
		phrases:    GeneratePhrases,
		emit:       emit,
		metrics:    metrics,
		logger:     logger,
		state:      StateIdle,
		firstToken: true,
	}
}

// WithPhrases switches the status texts. Call it before the first event.
func (r *Relay) WithPhrases(p Phrases) *Relay {
	r.phrases = p
	return r
}

func (r *Relay) State() State { return r.state }

// Send emits an event unless the relay has already terminated.
func (r *Relay) Send(kind EventKind, data string) error {
	if r.state.Terminal() {
		return nil
	}
	r.metrics.observe(kind)
	return r.emit(Event{Kind: kind, Data: data})
}

// Status emits a progress message.
func (r *Relay) Status(text string) error { return r.Send(EventStatus, text) }

// MarkSent records that the provider request is on its way.
func (r *Relay) MarkSent() {
	if r.state == StateIdle {
		r.state = StateRequestSent
	}
}

// Fail emits a single error event and terminates.
func (r *Relay) Fail(err error) error {
	sendErr := r.Send(EventError, "Error: "+describe(err))
	r.state = StateErrored
	return sendErr
}

func (r *Relay) finish(kind EventKind, text string) error {
	err := r.Send(kind, text)
	r.state = StateCompleted
	return err
}

func describe(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Error()
	}
	return strings.TrimPrefix(err.Error(), ErrUpstream.Error()+": ")
}

// Run consumes body until a terminal event, end of stream, a read error, or an emit error.
// Tokens are emitted in arrival order as soon as their line is complete.
// Returned errors come from emit or from ctx; provider faults are reported as events.
func (r *Relay) Run(ctx context.Context, body io.Reader) error {
	r.state = StateStreaming
	var lines LineBuffer
	chunk := make([]byte, 4096)

	for !r.state.Terminal() {
		n, readErr := body.Read(chunk)
		if n > 0 {
			lines.Write(chunk[:n])
			for !r.state.Terminal() {
				line, ok := lines.Next()
				if !ok {
					break
				}
				if err := r.handleLine(line); err != nil {
					return err
				}
			}
		}
		if r.state.Terminal() {
			return nil
		}

		if readErr == io.EOF {
			return r.finish(EventStatus, msgStreamEnded)
		}
		if readErr != nil {
			if ctx.Err() != nil {
				r.state = StateErrored
				return ctx.Err()
			}
			r.logger.Error().Err(readErr).Msg("error reading provider stream")
			return r.Fail(fmt.Errorf("Stream error - %v", readErr))
		}
	}
	return nil
}

func (r *Relay) handleLine(line string) error {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, "data: ") {
		return nil
	}
	payload := strings.TrimPrefix(line, "data: ")

	if payload == "[DONE]" {
		return r.finish(EventDone, r.phrases.Complete)
	}

	if !gjson.Valid(payload) {
		r.logger.Debug().Str("data", payload).Msg("could not parse streaming event")
		return nil
	}
	typ := gjson.Get(payload, "type")
	if typ.Type != gjson.String {
		r.logger.Debug().Str("data", payload).Msg("streaming event has no type")
		return nil
	}

	switch typ.Str {
	case "message_start":
		return r.Status(r.phrases.MessageStart)

	case "content_block_delta":
		text := gjson.Get(payload, "delta.text")
		if text.Type != gjson.String {
			return nil
		}
		t := text.Str
		if r.firstToken {
			t = r.prefill + t
			r.firstToken = false
		}
		ev, err := sjson.Set(`{"type":"token"}`, "text", t)
		if err != nil {
			return err
		}
		return r.Send(EventToken, ev)

	case "message_stop":
		if r.usage != nil {
			b, err := json.Marshal(struct {
				Type string `json:"type"`
				Usage
			}{"usage", *r.usage})
			if err != nil {
				return err
			}
			if err := r.Send(EventUsage, string(b)); err != nil {
				return err
			}
		}
		return r.finish(EventDone, r.phrases.Complete)

	default:
		r.captureUsage(payload)
		return nil
	}
}

// captureUsage remembers usage counters from any event that carries them.
// Counters missing from an event keep their previous value.
func (r *Relay) captureUsage(payload string) {
	u := gjson.Get(payload, "usage")
	if !u.IsObject() {
		return
	}
	in, out := u.Get("input_tokens"), u.Get("output_tokens")
	if in.Type != gjson.Number && out.Type != gjson.Number {
		return
	}
	next := Usage{}
	if r.usage != nil {
		next = *r.usage
	}
	if in.Type == gjson.Number {
		next.InputTokens = int(in.Int())
	}
	if out.Type == gjson.Number {
		next.OutputTokens = int(out.Int())
	}
	r.usage = &next
}
