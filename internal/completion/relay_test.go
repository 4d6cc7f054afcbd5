package completion

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// chunkReader returns one chunk per Read, then err (io.EOF by default).
type chunkReader struct {
	chunks []string
	err    error
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if r.chunks[0] == "" {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func collect(t *testing.T, prefill string, body io.Reader) ([]Event, *Relay) {
	t.Helper()
	var events []Event
	r := NewRelay(prefill, func(ev Event) error {
		events = append(events, ev)
		return nil
	}, nil, zerolog.Nop())
	require.NoError(t, r.Run(context.Background(), body))
	return events, r
}

func tokens(events []Event) []string {
	var out []string
	for _, ev := range events {
		if ev.Kind == EventToken {
			out = append(out, gjson.Get(ev.Data, "text").String())
		}
	}
	return out
}

func delta(text string) string {
	return `data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"` + text + `"}}` + "\n\n"
}

func TestLineBuffer(t *testing.T) {
	var b LineBuffer
	b.Write([]byte("data: {\"typ"))
	_, ok := b.Next()
	assert.False(t, ok)

	b.Write([]byte("e\":\"message_stop\"}\r\nnext"))
	line, ok := b.Next()
	require.True(t, ok)
	assert.Equal(t, `data: {"type":"message_stop"}`, line)

	_, ok = b.Next()
	assert.False(t, ok)
	assert.Len(t, b.buf, 4)
}

func TestRelay_PrefillOnFirstTokenOnly(t *testing.T) {
	body := strings.NewReader(
		"data: {\"type\":\"message_start\",\"message\":{\"usage\":{\"input_tokens\":12,\"output_tokens\":1}}}\n\n" +
			delta("Hello") + delta(",") + delta(" world") +
			"data: {\"type\":\"message_stop\"}\n\n")

	events, r := collect(t, "function", body)

	assert.Equal(t, []string{"functionHello", ",", " world"}, tokens(events))
	assert.Equal(t, Event{Kind: EventStatus, Data: "Starting message generation..."}, events[0])
	assert.Equal(t, Event{Kind: EventDone, Data: "Generation complete!"}, events[len(events)-1])
	assert.Equal(t, StateCompleted, r.State())
	assert.Equal(t, `{"type":"token","text":"functionHello"}`, events[1].Data)
}

func TestRelay_LineSplitAcrossChunks(t *testing.T) {
	body := &chunkReader{chunks: []string{`data: {"typ`, `e":"message_stop"}` + "\n"}}

	events, r := collect(t, "", body)

	require.Len(t, events, 1)
	assert.Equal(t, EventDone, events[0].Kind)
	assert.Equal(t, StateCompleted, r.State())
}

func TestRelay_UsageBeforeDone(t *testing.T) {
	body := strings.NewReader(
		"data: {\"type\":\"message_start\",\"message\":{}}\n\n" +
			"data: {\"type\":\"ping\",\"usage\":{\"input_tokens\":25}}\n\n" +
			delta("x") +
			"data: {\"type\":\"message_delta\",\"delta\":{\"stop_reason\":\"end_turn\"},\"usage\":{\"output_tokens\":15}}\n\n" +
			"data: {\"type\":\"message_stop\"}\n\n")

	events, _ := collect(t, "", body)

	require.GreaterOrEqual(t, len(events), 2)
	usage := events[len(events)-2]
	assert.Equal(t, EventUsage, usage.Kind)
	assert.JSONEq(t, `{"type":"usage","input_tokens":25,"output_tokens":15}`, usage.Data)
	assert.Equal(t, EventDone, events[len(events)-1].Kind)
}

func TestRelay_NoUsageEvent(t *testing.T) {
	events, _ := collect(t, "", strings.NewReader("data: {\"type\":\"message_stop\"}\n"))

	require.Len(t, events, 1)
	assert.Equal(t, EventDone, events[0].Kind)
}

func TestRelay_DoneSentinel(t *testing.T) {
	body := strings.NewReader(delta("a") + "data: [DONE]\n\n" + delta("ignored"))

	events, r := collect(t, "", body)

	assert.Equal(t, []string{"a"}, tokens(events))
	assert.Equal(t, Event{Kind: EventDone, Data: "Generation complete!"}, events[len(events)-1])
	assert.Equal(t, StateCompleted, r.State())
}

func TestRelay_EOFWithoutTerminal(t *testing.T) {
	events, r := collect(t, "", strings.NewReader(delta("partial")))

	require.Len(t, events, 2)
	assert.Equal(t, Event{Kind: EventStatus, Data: "Stream ended"}, events[1])
	assert.Equal(t, StateCompleted, r.State())
}

func TestRelay_SkipsUnparseableAndForeignLines(t *testing.T) {
	body := strings.NewReader(
		"event: content_block_delta\n" +
			": comment\n" +
			"data: {not json\n" +
			"data: {\"no_type\":true}\n" +
			"\n" +
			delta("ok") +
			"data: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"input_json_delta\"}}\n" +
			"data: {\"type\":\"message_stop\"}\n")

	events, _ := collect(t, "", body)

	assert.Equal(t, []string{"ok"}, tokens(events))
	assert.Equal(t, EventDone, events[len(events)-1].Kind)
}

func TestRelay_ReadError(t *testing.T) {
	body := &chunkReader{chunks: []string{delta("a")}, err: errors.New("connection reset")}

	events, r := collect(t, "", body)

	require.Len(t, events, 2)
	assert.Equal(t, EventError, events[1].Kind)
	assert.Equal(t, "Error: Stream error - connection reset", events[1].Data)
	assert.Equal(t, StateErrored, r.State())
}

func TestRelay_NoEventsAfterTerminal(t *testing.T) {
	var events []Event
	r := NewRelay("", func(ev Event) error {
		events = append(events, ev)
		return nil
	}, nil, zerolog.Nop())

	require.NoError(t, r.Fail(&StatusError{Code: 500}))
	require.NoError(t, r.Status("late"))

	require.Len(t, events, 1)
	assert.Equal(t, "Error: API error - 500 Internal Server Error", events[0].Data)
}

func TestRelay_EmitErrorStopsRun(t *testing.T) {
	gone := errors.New("client gone")
	calls := 0
	r := NewRelay("", func(Event) error {
		calls++
		return gone
	}, nil, zerolog.Nop())

	err := r.Run(context.Background(), strings.NewReader(delta("a")+delta("b")))

	assert.ErrorIs(t, err, gone)
	assert.Equal(t, 1, calls)
}

func TestRelay_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	r := NewRelay("", func(Event) error { return nil }, m, zerolog.Nop())
	require.NoError(t, r.Run(context.Background(), strings.NewReader(delta("a")+delta("b")+"data: [DONE]\n")))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues("token")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("done")))

	_, err = NewMetrics(reg)
	assert.Error(t, err)
}
