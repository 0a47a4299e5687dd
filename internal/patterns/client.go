// Package patterns lists and extends the rename patterns known to the processing service.
package patterns

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/GordonCopestake/Logisplit/internal/api"
	"github.com/GordonCopestake/Logisplit/internal/cache"
	"github.com/GordonCopestake/Logisplit/internal/domain"
	"github.com/GordonCopestake/Logisplit/internal/observability"
)

// Client talks to the pattern registry. The cache is optional.
type Client struct {
	client *api.Client
	cache  cache.Client
	ttl    time.Duration
	logger *observability.Logger
}

// NewClient creates a new pattern registry client. c may be nil.
func NewClient(client *api.Client, c cache.Client, ttl time.Duration, logger *observability.Logger) *Client {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Client{
		client: client,
		cache:  c,
		ttl:    ttl,
		logger: logger.WithOperation("patterns"),
	}
}

func (c *Client) cacheKey() string {
	return cache.Key("patterns", c.client.BaseURL())
}

// List returns the registered patterns in server order
func (c *Client) List(ctx context.Context) ([]domain.PatternEntry, error) {
	if c.cache != nil {
		data, err := c.cache.Get(ctx, c.cacheKey())
		switch {
		case err == nil:
			var entries []domain.PatternEntry
			if err := json.Unmarshal(data, &entries); err == nil {
				c.logger.Debug().Int("count", len(entries)).Msg("Pattern list served from cache")
				return entries, nil
			}
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Msg("Pattern cache unavailable")
		}
	}

	resp, err := c.client.R(ctx).
		SetHeader("Accept", "application/json").
		Get(c.client.URL(api.PatternsPath))
	if err := api.Check(resp, err, "list patterns"); err != nil {
		return nil, err
	}

	var entries []domain.PatternEntry
	if err := json.Unmarshal(resp.Body(), &entries); err != nil {
		return nil, domain.NetworkError("invalid pattern list", err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, c.cacheKey(), resp.Body(), c.ttl); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache pattern list")
		}
	}

	c.logger.Debug().Int("count", len(entries)).Msg("Pattern list fetched")
	return entries, nil
}

// Add registers an example filename and its desired output, then returns
// the refreshed list. Blank inputs fail without contacting the service.
func (c *Client) Add(ctx context.Context, example, output string) ([]domain.PatternEntry, error) {
	example = strings.TrimSpace(example)
	output = strings.TrimSpace(output)
	if example == "" || output == "" {
		return nil, domain.ValidationError("example and output are both required", nil)
	}

	resp, err := c.client.R(ctx).
		SetBody(domain.PatternExample{Example: example, Output: output}).
		Post(c.client.URL(api.SavePatternPath))
	if err := api.Check(resp, err, "save pattern example"); err != nil {
		c.logger.Error().Err(err).Str("example", example).Msg("Failed to save pattern example")
		return nil, err
	}

	c.logger.Info().Str("example", example).Str("output", output).Msg("Pattern example saved")

	if c.cache != nil {
		if err := c.cache.Delete(ctx, c.cacheKey()); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to invalidate pattern cache")
		}
	}

	return c.List(ctx)
}

// Format renders entries as "/regex/ → rename" lines
func Format(entries []domain.PatternEntry) []string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.String()
	}
	return lines
}

// Form holds the two inputs of the add operation
type Form struct {
	Example string
	Output  string
}

// Submit adds the form's example. The fields are cleared only on success.
func (f *Form) Submit(ctx context.Context, c *Client) ([]domain.PatternEntry, error) {
	entries, err := c.Add(ctx, f.Example, f.Output)
	if err != nil {
		return nil, err
	}
	f.Example = ""
	f.Output = ""
	return entries, nil
}
