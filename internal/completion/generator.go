package completion

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	msgPreparing = "Preparing request to Anthropic API..."
	msgSending   = "Sending request to Anthropic API..."
	msgStreaming = "Streaming response from Anthropic API..."
)

// Generator composes the provider client and the relay into the generate and modify flows.
type Generator struct {
	client  *Client
	metrics *Metrics
	logger  zerolog.Logger
}

func NewGenerator(client *Client, metrics *Metrics, logger zerolog.Logger) *Generator {
	return &Generator{
		client:  client,
		metrics: metrics,
		logger:  logger.With().Str("component", "generator").Logger(),
	}
}

// Configured reports whether the underlying client has an API key.
func (g *Generator) Configured() bool { return g.client.Configured() }

type GenerateInput struct {
	Prompt string
	Model  string
}

type ModifyInput struct {
	ExistingCode string
	Modification string
	Model        string
}

func (g *Generator) generateRequest(in GenerateInput) Request {
	return Request{
		Model:       in.Model,
		System:      appRendererPrompt,
		Prompt:      in.Prompt,
		Temperature: 1.0,
		Prefill:     Prefill,
	}
}

func (g *Generator) modifyRequest(in ModifyInput) Request {
	return Request{
		Model:       in.Model,
		System:      codeModifierPrompt,
		Prompt:      ModifyPrompt(in.ExistingCode, in.Modification),
		Temperature: 1.0,
		Prefill:     Prefill,
	}
}

// GenerateSync runs the generate flow without streaming and returns the full source.
func (g *Generator) GenerateSync(ctx context.Context, in GenerateInput) (string, error) {
	return g.client.Generate(ctx, g.generateRequest(in))
}

// Generate starts the generate flow. The channel is closed after the terminal event
// or when ctx is cancelled.
func (g *Generator) Generate(ctx context.Context, in GenerateInput) <-chan Event {
	return g.run(ctx, g.generateRequest(in), GeneratePhrases)
}

// Modify starts the modify flow. See Generate.
func (g *Generator) Modify(ctx context.Context, in ModifyInput) <-chan Event {
	return g.run(ctx, g.modifyRequest(in), ModifyPhrases)
}

func (g *Generator) run(ctx context.Context, req Request, phrases Phrases) <-chan Event {
	events := make(chan Event)
	emit := func(ev Event) error {
		select {
		case events <- ev:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	go func() {
		defer close(events)
		if err := g.stream(ctx, req, phrases, emit); err != nil && ctx.Err() == nil {
			g.logger.Warn().Err(err).Msg("generation stream aborted")
		}
	}()
	return events
}

// stream drives one streaming request through a fresh relay, emitting every event
// through emit. It returns only emit or context errors.
func (g *Generator) stream(ctx context.Context, req Request, phrases Phrases, emit func(Event) error) error {
	relay := NewRelay(req.Prefill, emit, g.metrics, g.logger).WithPhrases(phrases)
	start := time.Now()
	defer func() { g.metrics.observeStream(relay.State(), time.Since(start)) }()

	for _, s := range []string{phrases.Starting, msgPreparing} {
		if err := relay.Status(s); err != nil {
			return err
		}
	}
	relay.MarkSent()
	if err := relay.Status(msgSending); err != nil {
		return err
	}

	body, err := g.client.Stream(ctx, req)
	if err != nil {
		return relay.Fail(err)
	}
	defer body.Close()

	if err := relay.Status(msgStreaming); err != nil {
		return err
	}
	g.logger.Debug().Str("model", req.Model).Msg("streaming response")
	return relay.Run(ctx, body)
}
