package handler

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"appstore/internal/completion"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	unconfigured bool
	events       []completion.Event
	delay        time.Duration
	syncCode     string
	syncErr      error

	lastGenerate completion.GenerateInput
	lastModify   completion.ModifyInput
}

func (f *fakeGenerator) Configured() bool { return !f.unconfigured }

func (f *fakeGenerator) GenerateSync(_ context.Context, in completion.GenerateInput) (string, error) {
	f.lastGenerate = in
	return f.syncCode, f.syncErr
}

func (f *fakeGenerator) Generate(ctx context.Context, in completion.GenerateInput) <-chan completion.Event {
	f.lastGenerate = in
	return f.emit(ctx)
}

func (f *fakeGenerator) Modify(ctx context.Context, in completion.ModifyInput) <-chan completion.Event {
	f.lastModify = in
	return f.emit(ctx)
}

func (f *fakeGenerator) emit(ctx context.Context) <-chan completion.Event {
	out := make(chan completion.Event)
	go func() {
		defer close(out)
		if f.delay > 0 {
			select {
			case <-time.After(f.delay):
			case <-ctx.Done():
				return
			}
		}
		for _, ev := range f.events {
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

type fakeLister struct {
	catalog *completion.ModelCatalog
	err     error
}

func (f *fakeLister) ListModels(context.Context) (*completion.ModelCatalog, error) {
	return f.catalog, f.err
}

var sampleEvents = []completion.Event{
	{Kind: completion.EventStatus, Data: "Starting generation..."},
	{Kind: completion.EventToken, Data: `{"type":"token","text":"function"}`},
	{Kind: completion.EventUsage, Data: `{"type":"usage","input_tokens":25,"output_tokens":15}`},
	{Kind: completion.EventDone, Data: "Generation complete!"},
}

func TestGenerateStream(t *testing.T) {
	gen := &fakeGenerator{events: sampleEvents}
	app := fiber.New()
	app.Post("/generate", GenerateStream(gen))

	resp, err := app.Test(jsonRequest(http.MethodPost, "/generate", `{"prompt":"a clock","model":"m1"}`), 2000)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "no", resp.Header.Get("X-Accel-Buffering"))

	b, _ := io.ReadAll(resp.Body)
	assert.Equal(t,
		"data: Starting generation...\n\n"+
			"event: token\ndata: {\"type\":\"token\",\"text\":\"function\"}\n\n"+
			"event: usage\ndata: {\"type\":\"usage\",\"input_tokens\":25,\"output_tokens\":15}\n\n"+
			"data: Generation complete!\n\n",
		string(b))
	assert.Equal(t, completion.GenerateInput{Prompt: "a clock", Model: "m1"}, gen.lastGenerate)
}

func TestGenerateStream_KeepAlive(t *testing.T) {
	orig := keepAliveInterval
	keepAliveInterval = 10 * time.Millisecond
	t.Cleanup(func() { keepAliveInterval = orig })

	gen := &fakeGenerator{
		delay:  80 * time.Millisecond,
		events: []completion.Event{{Kind: completion.EventDone, Data: "Generation complete!"}},
	}
	app := fiber.New()
	app.Post("/generate", GenerateStream(gen))

	resp, err := app.Test(jsonRequest(http.MethodPost, "/generate", `{"prompt":"x"}`), 2000)
	require.NoError(t, err)

	b, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(b), ": keep-alive\n\n")
	assert.True(t, bytes.HasSuffix(b, []byte("data: Generation complete!\n\n")))
}

func TestGenerateStream_Validation(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		app := fiber.New()
		app.Post("/generate", GenerateStream(&fakeGenerator{unconfigured: true}))

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/generate", `{"prompt":"x"}`))

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "INTERNAL_ERROR", decodeError(t, resp).Error.Code)
	})

	t.Run("prompt required", func(t *testing.T) {
		app := fiber.New()
		app.Post("/generate", GenerateStream(&fakeGenerator{}))

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/generate", `{"prompt":"   "}`))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestModifyStream(t *testing.T) {
	gen := &fakeGenerator{events: []completion.Event{
		{Kind: completion.EventStatus, Data: "Starting modification..."},
		{Kind: completion.EventError, Data: "Error: API error - 429 Too Many Requests"},
	}}
	app := fiber.New()
	app.Post("/generate/modify", ModifyStream(gen))

	t.Run("relays terminal error as a frame", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(http.MethodPost, "/generate/modify",
			`{"existing_code":"function App(){}","modification_prompt":"make it blue"}`), 2000)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		b, _ := io.ReadAll(resp.Body)
		assert.Equal(t,
			"data: Starting modification...\n\ndata: Error: API error - 429 Too Many Requests\n\n",
			string(b))
		assert.Equal(t, completion.ModifyInput{ExistingCode: "function App(){}", Modification: "make it blue"}, gen.lastModify)
	})

	t.Run("modification required", func(t *testing.T) {
		resp, _ := app.Test(jsonRequest(http.MethodPost, "/generate/modify", `{"existing_code":"x"}`))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestGenerateSync(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		app := fiber.New()
		app.Post("/generate/sync", GenerateSync(&fakeGenerator{syncCode: "function App(){}"}))

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/generate/sync", `{"prompt":"x"}`))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeEnvelope(t, resp)
		assert.JSONEq(t, `{"source_code":"function App(){}"}`, string(body.Data))
	})

	t.Run("upstream failure", func(t *testing.T) {
		app := fiber.New()
		app.Post("/generate/sync", GenerateSync(&fakeGenerator{syncErr: &completion.StatusError{Code: 500}}))

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/generate/sync", `{"prompt":"x"}`))

		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		assert.Equal(t, "UPSTREAM_ERROR", decodeError(t, resp).Error.Code)
	})
}

func TestListModels(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		haiku := completion.DescribeModel("claude-3-haiku-20240307")
		opus := completion.DescribeModel("claude-3-opus-20240229")
		first := opus.ID
		app := fiber.New()
		app.Get("/api/models", ListModels(&fakeLister{catalog: &completion.ModelCatalog{
			Data:    []completion.ModelInfo{opus, haiku},
			FirstID: &first,
		}}))

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/models", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeEnvelope(t, resp)
		assert.Equal(t, first, body.Meta["first_id"])
		assert.Equal(t, false, body.Meta["has_more"])
		recs, ok := body.Meta["recommendations"].(map[string]any)
		require.True(t, ok)
		assert.Contains(t, recs, "mostPowerful")
		assert.Contains(t, recs, "mostCostEffective")
	})

	t.Run("provider error", func(t *testing.T) {
		app := fiber.New()
		app.Get("/api/models", ListModels(&fakeLister{err: errors.Join(completion.ErrUpstream, errors.New("timeout"))}))

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/models", nil))

		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	})
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestWriteFrame(t *testing.T) {
	t.Run("multi-line data", func(t *testing.T) {
		var buf bytes.Buffer
		w := bufio.NewWriter(&buf)

		require.NoError(t, writeFrame(w, completion.Event{Kind: completion.EventError, Data: "Error: line one\nline two"}))
		assert.Equal(t, "data: Error: line one\ndata: line two\n\n", buf.String())
	})

	t.Run("write failure surfaces", func(t *testing.T) {
		w := bufio.NewWriter(failingWriter{})
		err := writeFrame(w, completion.Event{Kind: completion.EventToken, Data: `{"type":"token","text":"x"}`})
		assert.Error(t, err)
	})
}
