package llm

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"workpilot/internal/config"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"
const defaultOpenAIModel = "gpt-4o-mini"

type Usage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

func (u Usage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheCreationInputTokens += other.CacheCreationInputTokens
	u.CacheReadInputTokens += other.CacheReadInputTokens
}

// Client sends one system+user prompt pair and returns the text reply.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, Usage, error)
	Provider() string
}

var requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "workpilot_llm_requests_total",
	Help: "LLM completion attempts by provider and outcome",
}, []string{"provider", "outcome"})

// New builds the client for cfg.LLMProvider. Real providers are wrapped with retries.
func New(cfg config.Config) Client {
	var base Client
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		base = newOpenAIClient(cfg.OpenAIAPIKey, cfg.LLMBaseURL, cfg.LLMModel)
	case config.ProviderAnthropic:
		base = newAnthropicClient(cfg.AnthropicAPIKey, cfg.LLMModel)
	default:
		log.Printf("llm using mock provider")
		return Mock{}
	}
	return &Retrying{
		Client:  base,
		Retries: cfg.LLMRetry,
		Timeout: cfg.LLMTimeout(),
	}
}

// Retrying retries failed completions with exponential backoff: 1s, 2s, 4s...
type Retrying struct {
	Client  Client
	Retries int
	Timeout time.Duration

	// wait is replaced in tests.
	wait func(ctx context.Context, d time.Duration) error
}

func (r *Retrying) Provider() string { return r.Client.Provider() }

func (r *Retrying) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, Usage, error) {
	wait := r.wait
	if wait == nil {
		wait = sleepCtx
	}
	attempts := r.Retries + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		text, usage, err := r.attempt(ctx, systemPrompt, userPrompt)
		if err == nil {
			requestsTotal.WithLabelValues(r.Provider(), "ok").Inc()
			return text, usage, nil
		}
		requestsTotal.WithLabelValues(r.Provider(), "error").Inc()
		lastErr = err
		log.Printf("llm %s attempt %d/%d failed: %v", r.Provider(), attempt+1, attempts, err)

		if attempt == attempts-1 {
			break
		}
		backoff := time.Duration(1<<attempt) * time.Second
		log.Printf("llm %s retrying in %s", r.Provider(), backoff)
		if err := wait(ctx, backoff); err != nil {
			return "", Usage{}, err
		}
	}
	return "", Usage{}, fmt.Errorf("%s completion failed after %d attempts: %w", r.Provider(), attempts, lastErr)
}

func (r *Retrying) attempt(ctx context.Context, systemPrompt, userPrompt string) (string, Usage, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	return r.Client.Complete(ctx, systemPrompt, userPrompt)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
