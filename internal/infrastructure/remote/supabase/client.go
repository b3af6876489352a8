// Package supabase implements the content repository over Supabase's
// PostgREST interface.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/AtRiskMedia/folio-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/folio-go/internal/domain/repositories"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/folio-go/pkg/config"
)

// ClientOptions configures the Supabase client.
type ClientOptions struct {
	BaseURL      string // project URL, e.g. https://xyz.supabase.co
	APIKey       string
	Table        string
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// NewClientOptions builds client options from pkg/config.
func NewClientOptions() ClientOptions {
	return ClientOptions{
		BaseURL:  config.SupabaseURL,
		APIKey:   config.SupabaseAPIKey,
		Table:    config.SupabaseTable,
		RetryMax: config.SupabaseRetryMax,
	}
}

// Client is a small wrapper around retryablehttp for the content table.
type Client struct {
	inner    *retryablehttp.Client
	endpoint string
	apiKey   string
	logger   *logging.ChanneledLogger
}

type row struct {
	Name      string `json:"name"`
	Content   string `json:"content"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// NewClient creates a new Client.
func NewClient(opts ClientOptions, logger *logging.ChanneledLogger) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("supabase url is required")
	}
	if opts.Table == "" {
		opts.Table = "site_content"
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}

	r := retryablehttp.NewClient()
	r.RetryMax = opts.RetryMax
	if opts.RetryWaitMin > 0 {
		r.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		r.RetryWaitMax = opts.RetryWaitMax
	}
	r.Logger = logger.Database()
	r.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		inner:    r,
		endpoint: strings.TrimRight(opts.BaseURL, "/") + "/rest/v1/" + url.PathEscape(opts.Table),
		apiKey:   opts.APIKey,
		logger:   logger,
	}, nil
}

// BulkRead fetches rows whose name is in names.
func (c *Client) BulkRead(ctx context.Context, names []string) ([]*content.ContentRow, error) {
	if len(names) == 0 {
		return []*content.ContentRow{}, nil
	}

	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = `"` + strings.ReplaceAll(name, `"`, `\"`) + `"`
	}
	q := url.Values{}
	q.Set("select", "name,content,updated_at")
	q.Set("name", "in.("+strings.Join(quoted, ",")+")")

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build bulk read request: %w", err)
	}
	c.authorize(req)

	start := time.Now()
	resp, err := c.inner.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bulk read: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("bulk read: %w", err)
	}

	var rows []row
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode bulk read response: %w", err)
	}

	out := make([]*content.ContentRow, 0, len(rows))
	for _, r := range rows {
		cr := &content.ContentRow{Name: r.Name, Content: r.Content}
		if ts, err := time.Parse(time.RFC3339Nano, r.UpdatedAt); err == nil {
			cr.UpdatedAt = ts
		}
		out = append(out, cr)
	}

	duration := time.Since(start)
	c.logger.Database().Debug("Supabase bulk read completed", "requested", len(names), "found", len(out), "duration", duration)
	if duration > config.SlowQueryThreshold {
		c.logger.LogSlowQuery("supabase bulk read "+strings.Join(names, ","), duration)
	}
	return out, nil
}

// Upsert writes value for name with name as the conflict key.
func (c *Client) Upsert(ctx context.Context, name, value string) error {
	body, err := json.Marshal([]row{{
		Name:      name,
		Content:   value,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}})
	if err != nil {
		return fmt.Errorf("encode upsert: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"?on_conflict=name", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build upsert request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")

	start := time.Now()
	resp, err := c.inner.Do(req)
	if err != nil {
		return fmt.Errorf("upsert %q: %w", name, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("upsert %q: %w", name, err)
	}

	c.logger.Database().Info("Supabase upsert completed", "name", name, "duration", time.Since(start))
	return nil
}

func (c *Client) authorize(req *retryablehttp.Request) {
	if c.apiKey == "" {
		return
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}

// checkStatus maps non-2xx responses to errors. 401 and 403 wrap
// repositories.ErrUnauthorized.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	detail := strings.TrimSpace(string(msg))
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("status %d: %s: %w", resp.StatusCode, detail, repositories.ErrUnauthorized)
	}
	return fmt.Errorf("status %d: %s", resp.StatusCode, detail)
}
