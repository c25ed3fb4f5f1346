// Package rest provides a client for a PostgREST-style hosted settings table.
package rest

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/goccy/go-json"
	zlog "github.com/rs/zerolog/log"
)

// Config represents REST settings client configuration.
type Config struct {
	BaseURL    string `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
	APIKey     string `yaml:"api_key" mapstructure:"api_key" validate:"required"`
	Table      string `yaml:"table" mapstructure:"table" default:"site_settings" validate:"required"`
	TimeoutSec int    `yaml:"timeout_sec" mapstructure:"timeout_sec" default:"10" validate:"gte=1"`
}

// Client reads and writes key/value rows of the settings table.
type Client struct {
	apiKey     string
	baseURL    string
	table      string
	httpClient *http.Client
}

// row is a single settings table row.
type row struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// APIError represents an error response body.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

// New creates a new REST settings client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("rest base url is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("rest api key is required")
	}

	table := cfg.Table
	if table == "" {
		table = "site_settings"
	}
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		table:      table,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) tableURL(params url.Values) string {
	u := c.baseURL + "/rest/v1/" + url.PathEscape(c.table)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// All returns every row of the settings table.
func (c *Client) All(ctx context.Context) (map[string]string, error) {
	params := url.Values{}
	params.Set("select", "key,value")

	var rows []row
	if err := c.do(ctx, http.MethodGet, c.tableURL(params), nil, nil, &rows); err != nil {
		return nil, err
	}

	values := make(map[string]string, len(rows))
	for _, r := range rows {
		values[r.Key] = r.Value
	}
	return values, nil
}

// Get returns a single setting. ok is false if no row matches.
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	params := url.Values{}
	params.Set("select", "key,value")
	params.Set("key", "eq."+key)

	var rows []row
	if err := c.do(ctx, http.MethodGet, c.tableURL(params), nil, nil, &rows); err != nil {
		return "", false, err
	}
	if len(rows) == 0 {
		return "", false, nil
	}
	return rows[0].Value, true, nil
}

// Set upserts a setting.
func (c *Client) Set(ctx context.Context, key, value string) error {
	params := url.Values{}
	params.Set("on_conflict", "key")

	body, err := json.Marshal([]row{{Key: key, Value: value}})
	if err != nil {
		return errors.Wrap(err, "failed to encode row")
	}

	header := http.Header{}
	header.Set("Prefer", "resolution=merge-duplicates,return=minimal")

	if err := c.do(ctx, http.MethodPost, c.tableURL(params), body, header, nil); err != nil {
		return errors.Wrapf(err, "failed to set setting: %s", key)
	}
	zlog.Debug().Msgf("rest: setting updated: key=%s", key)
	return nil
}

// do sends a request and decodes the JSON response into out, if given.
func (c *Client) do(ctx context.Context, method, reqURL string, body []byte, header http.Header, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode >= 300 {
		var apiErr APIError
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Message != "" {
			return errors.Errorf("rest API error %d (%s): %s", resp.StatusCode, apiErr.Code, apiErr.Message)
		}
		return errors.Errorf("rest API error %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}
	return nil
}
