package extraction

import (
	"context"
	"errors"
	"strings"
	"time"

	"voicetask/internal/constant"
	"voicetask/internal/pkg/logger"
	"voicetask/pkg/llm"

	"golang.org/x/time/rate"
)

const moduleName = "ExtractionClient"

// ErrRateLimited is wrapped in a ServiceError when the local quota guard
// refuses a request before it reaches the service.
var ErrRateLimited = errors.New("extraction: local rate limit exceeded")

type Sampling struct {
	Temperature      float64
	TopP             float64
	TopK             int
	MaxOutputTokens  int
	ResponseMIMEType string
}

func DefaultSampling() Sampling {
	return Sampling{
		Temperature:      constant.ExtractionTemperature,
		TopP:             constant.ExtractionTopP,
		TopK:             constant.ExtractionTopK,
		MaxOutputTokens:  constant.ExtractionMaxOutputTokens,
		ResponseMIMEType: constant.ExtractionResponseMIMEType,
	}
}

func (s Sampling) options() []llm.Option {
	return []llm.Option{
		llm.WithTemperature(s.Temperature),
		llm.WithTopP(s.TopP),
		llm.WithTopK(s.TopK),
		llm.WithMaxTokens(s.MaxOutputTokens),
		llm.WithResponseMIMEType(s.ResponseMIMEType),
	}
}

// Client sends one utterance (or typed text) with the fixed instruction
// template to the generative-text service and returns its raw answer.
type Client struct {
	provider llm.LLMProvider
	template string
	sampling Sampling
	limiter  *rate.Limiter
	logger   logger.ILogger
}

type ClientOption func(*Client)

func WithTemplate(template string) ClientOption {
	return func(c *Client) {
		c.template = template
	}
}

func WithSampling(s Sampling) ClientOption {
	return func(c *Client) {
		c.sampling = s
	}
}

// WithRateLimit caps requests per minute. Requests above the cap fail
// immediately instead of waiting: the user is interactive and retries by
// speaking again.
func WithRateLimit(perMinute int) ClientOption {
	return func(c *Client) {
		if perMinute <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	}
}

func NewClient(provider llm.LLMProvider, log logger.ILogger, opts ...ClientOption) *Client {
	c := &Client{
		provider: provider,
		template: constant.ExtractionPromptV1,
		sampling: DefaultSampling(),
		logger:   log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BuildPrompt concatenates the instruction template and the user text.
func BuildPrompt(template, text string) string {
	return template + text
}

// Extract returns the service's raw answer for text. Blank text fails with
// ErrEmptyInput without any call; every service failure is a *ServiceError.
func (c *Client) Extract(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyInput
	}

	if c.limiter != nil && !c.limiter.Allow() {
		c.logger.Warn(moduleName, "Rate limit reached, request refused", nil)
		return "", &ServiceError{Op: "generate", Err: ErrRateLimited}
	}

	start := time.Now()
	raw, err := c.provider.Generate(ctx, BuildPrompt(c.template, text), c.sampling.options()...)
	if err != nil {
		svcErr := &ServiceError{Op: "generate", Err: err}
		var statusErr *llm.StatusError
		if errors.As(err, &statusErr) {
			svcErr.StatusCode = statusErr.StatusCode
		}
		c.logger.Error(moduleName, "Generative service call failed", map[string]interface{}{
			"error":       err.Error(),
			"status_code": svcErr.StatusCode,
			"elapsed_ms":  time.Since(start).Milliseconds(),
		})
		return "", svcErr
	}

	c.logger.Debug(moduleName, "Generative service answered", map[string]interface{}{
		"input_chars":  len(text),
		"output_chars": len(raw),
		"elapsed_ms":   time.Since(start).Milliseconds(),
	})
	return raw, nil
}
