package openai

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/go-go-golems/conciliate/pkg/security"
	"github.com/go-go-golems/conciliate/pkg/settings"
)

// Client is a paced chat completion client shared by the seeker and the
// responder, so both roles count against the same requests_per_minute budget.
type Client struct {
	client  *go_openai.Client
	limiter *rate.Limiter
}

func MakeClient(s *settings.ClientSettings) (*Client, error) {
	if s == nil {
		return nil, errors.New("no client settings")
	}
	if s.APIKey == "" {
		return nil, errors.New("no API key for openai")
	}

	config := go_openai.DefaultConfig(s.APIKey)
	if s.BaseURL != "" {
		policy := security.BaseURLPolicy{AllowInsecure: s.AllowInsecureBaseURL}
		if err := policy.Check(s.BaseURL); err != nil {
			return nil, err
		}
		config.BaseURL = strings.TrimRight(s.BaseURL, "/")
	}
	config.OrgID = s.Organization
	if s.Timeout > 0 {
		config.HTTPClient = &http.Client{Timeout: s.Timeout}
	}

	ret := &Client{client: go_openai.NewClientWithConfig(config)}
	if s.RequestsPerMinute > 0 {
		ret.limiter = rate.NewLimiter(rate.Limit(s.RequestsPerMinute/60), 1)
	}
	return ret, nil
}

type completion struct {
	Content  string
	Model    string
	Duration time.Duration
}

func (c *Client) complete(
	ctx context.Context,
	role *settings.RoleSettings,
	messages []go_openai.ChatCompletionMessage,
) (*completion, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "rate limiter")
		}
	}

	req := go_openai.ChatCompletionRequest{
		Model:    role.Model,
		Messages: messages,
	}
	if role.Temperature != nil {
		req.Temperature = float32(*role.Temperature)
	}
	if role.MaxTokens != nil {
		req.MaxTokens = *role.MaxTokens
	}

	log.Debug().
		Str("model", req.Model).
		Int("messages", len(messages)).
		Msg("creating chat completion")

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "chat completion")
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	// several choices are concatenated line by line
	lines := []string{}
	for _, choice := range resp.Choices {
		if choice.Message.Content != "" {
			lines = append(lines, strings.Split(choice.Message.Content, "\n")...)
		}
	}

	model := resp.Model
	if model == "" {
		model = req.Model
	}
	return &completion{
		Content:  strings.Join(lines, "\n"),
		Model:    model,
		Duration: time.Since(start),
	}, nil
}
