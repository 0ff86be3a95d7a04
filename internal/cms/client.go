// Package cms is a read-only client for the hosted content source (Sanity HTTP query API).
package cms

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected status code")
	ErrDecode           = errors.New("failed to decode response")
)

// maxResponseSize caps response bodies at 10MB.
const maxResponseSize = 10 * 1024 * 1024

// Fetcher executes a query and decodes its result into out.
//
//go:generate mockgen -source=client.go -destination=mocks/mock_fetcher.go -package=mocks
type Fetcher interface {
	Fetch(ctx context.Context, q Query, fresh Freshness, out any) error
}

// Cache stores raw query results. Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Config holds the connection parameters of one project/dataset.
type Config struct {
	ProjectID   string
	Dataset     string
	APIVersion  string
	Token       string
	Perspective string
	UseCDN      bool
	// APIHost and CDNHost override the default *.api.sanity.io and
	// *.apicdn.sanity.io origins (scheme included).
	APIHost string
	CDNHost string
	Timeout time.Duration
}

// Info is the token-free view of Config used for diagnostics.
type Info struct {
	ProjectID   string `json:"projectId"`
	Dataset     string `json:"dataset"`
	APIVersion  string `json:"apiVersion"`
	Perspective string `json:"perspective"`
	UseCDN      bool   `json:"useCdn"`
	HasToken    bool   `json:"hasToken"`
}

// APIError is the error document returned by the query API.
type APIError struct {
	Status      int    `json:"-"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %d %s: %s", ErrUnexpectedStatus, e.Status, e.Type, e.Description)
}

func (e *APIError) Unwrap() error {
	return ErrUnexpectedStatus
}

type queryResponse struct {
	Result json.RawMessage `json:"result"`
	Ms     int             `json:"ms"`
}

type errorResponse struct {
	Error json.RawMessage `json:"error"`
}

var _ Fetcher = (*Client)(nil)

type Client struct {
	httpClient *http.Client
	cfg        Config
	cache      Cache
	log        zerolog.Logger
}

// NewClient creates a client. cache may be nil, in which case every call hits the API.
func NewClient(cfg Config, cache Cache, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
		cache:      cache,
		log:        log.With().Str("component", "cms").Logger(),
	}
}

func (c *Client) Info() Info {
	return Info{
		ProjectID:   c.cfg.ProjectID,
		Dataset:     c.cfg.Dataset,
		APIVersion:  c.cfg.APIVersion,
		Perspective: c.cfg.Perspective,
		UseCDN:      c.cfg.UseCDN,
		HasToken:    c.cfg.Token != "",
	}
}

// Fetch renders q to GROQ and executes it.
func (c *Client) Fetch(ctx context.Context, q Query, fresh Freshness, out any) error {
	text, params := q.GROQ()
	return c.FetchRaw(ctx, text, params, fresh, out)
}

// FetchRaw executes a GROQ query with parameters and decodes the result into out.
func (c *Client) FetchRaw(ctx context.Context, query string, params map[string]any, fresh Freshness, out any) error {
	useCache := fresh.cacheable() && c.cache != nil
	key := c.cacheKey(query, params)

	if useCache {
		data, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			c.log.Warn().Err(err).Msg("cache read failed")
		} else if ok {
			return decodeResult(data, out)
		}
	}

	result, err := c.do(ctx, query, params, fresh)
	if err != nil {
		return err
	}

	if useCache {
		if err := c.cache.Set(ctx, key, result, fresh.MaxAge); err != nil {
			c.log.Warn().Err(err).Msg("cache write failed")
		}
	}

	return decodeResult(result, out)
}

func (c *Client) do(ctx context.Context, query string, params map[string]any, fresh Freshness) (json.RawMessage, error) {
	endpoint, err := c.endpoint(query, params, !fresh.NoStore && c.cfg.UseCDN)
	if err != nil {
		return nil, err
	}

	c.log.Debug().Str("query", query[:min(len(query), 80)]).Msg("executing query")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseAPIError(resp.StatusCode, body)
	}

	var qr queryResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return qr.Result, nil
}

func (c *Client) endpoint(query string, params map[string]any, cdn bool) (string, error) {
	base := c.baseURL(cdn)
	version := c.cfg.APIVersion
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}

	v := url.Values{}
	v.Set("query", query)
	for name, value := range params {
		encoded, err := json.Marshal(value)
		if err != nil {
			return "", fmt.Errorf("failed to encode param %s: %w", name, err)
		}
		v.Set("$"+name, string(encoded))
	}
	if c.cfg.Perspective != "" {
		v.Set("perspective", c.cfg.Perspective)
	}

	return fmt.Sprintf("%s/%s/data/query/%s?%s", base, version, url.PathEscape(c.cfg.Dataset), v.Encode()), nil
}

func (c *Client) baseURL(cdn bool) string {
	if c.cfg.APIHost != "" {
		if cdn && c.cfg.CDNHost != "" {
			return strings.TrimRight(c.cfg.CDNHost, "/")
		}
		return strings.TrimRight(c.cfg.APIHost, "/")
	}
	if cdn {
		return fmt.Sprintf("https://%s.apicdn.sanity.io", c.cfg.ProjectID)
	}
	return fmt.Sprintf("https://%s.api.sanity.io", c.cfg.ProjectID)
}

func (c *Client) cacheKey(query string, params map[string]any) string {
	h := sha256.New()
	h.Write([]byte(c.cfg.ProjectID + "\x00" + c.cfg.Dataset + "\x00" + c.cfg.Perspective + "\x00" + query + "\x00"))
	// json.Marshal sorts map keys, so equal params hash equally
	if p, err := json.Marshal(params); err == nil {
		h.Write(p)
	}
	return "cms:" + hex.EncodeToString(h.Sum(nil))
}

func parseAPIError(status int, body []byte) error {
	apiErr := &APIError{Status: status}

	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && len(er.Error) > 0 {
		// the API sends either an object or a bare message string
		if err := json.Unmarshal(er.Error, apiErr); err != nil {
			var msg string
			if json.Unmarshal(er.Error, &msg) == nil {
				apiErr.Description = msg
			}
		}
	}
	if apiErr.Description == "" {
		apiErr.Description = strings.TrimSpace(string(body[:min(len(body), 200)]))
	}
	return apiErr
}

func decodeResult(data []byte, out any) error {
	if out == nil {
		return nil
	}
	if len(data) == 0 {
		data = []byte("null")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}
