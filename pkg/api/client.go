package api

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/re-tools/re-healthcheck/pkg/log"
	"github.com/re-tools/re-healthcheck/pkg/metrics"
)

const (
	// DefaultPort is the REST API port of a Redis Enterprise cluster.
	DefaultPort = 9443

	// DefaultTimeout bounds a single API request.
	DefaultTimeout = 60 * time.Second

	maxErrorBody = 4096
)

// Config holds the connection settings of the cluster REST API.
type Config struct {
	FQDN     string
	Port     int
	User     string
	Password string
	// Insecure disables TLS certificate verification; clusters ship self-signed certificates.
	Insecure bool
	Timeout  time.Duration
}

// Client fetches topics from the cluster REST API.
// Every topic is requested at most once per Client; later reads are served from memory.
type Client struct {
	baseURL  string
	user     string
	password string

	http    *http.Client
	metrics *metrics.Metrics
	logger  zerolog.Logger

	group    singleflight.Group
	mu       sync.RWMutex
	cache    map[string]any
	requests atomic.Int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a client for https://<fqdn>:<port>/v1.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.FQDN) == "" {
		return nil, errors.New("api fqdn is required")
	}

	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		baseURL:  "https://" + net.JoinHostPort(cfg.FQDN, strconv.Itoa(port)) + "/v1/",
		user:     cfg.User,
		password: cfg.Password,
		logger:   log.WithComponent("api"),
		cache:    make(map[string]any),
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: cfg.Insecure, //nolint:gosec // self-signed cluster certificates
				},
			},
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// RequestCount returns the number of HTTP requests issued so far.
func (c *Client) RequestCount() int64 {
	return c.requests.Load()
}

// Get returns the decoded JSON document of a topic, e.g. "nodes" or "bdbs/stats/1".
func (c *Client) Get(ctx context.Context, topic string) (any, error) {
	topic = strings.Trim(topic, "/")

	if v, ok := c.cached(topic); ok {
		return v, nil
	}

	// The shared request outlives the caller that started it; it is bounded
	// by the http client timeout, and each caller stops waiting on its own ctx.
	fetchCtx := context.WithoutCancel(ctx)

	ch := c.group.DoChan(topic, func() (any, error) {
		if v, ok := c.cached(topic); ok {
			return v, nil
		}

		v, err := c.fetch(fetchCtx, topic)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[topic] = v
		c.mu.Unlock()

		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for %s: %w", topic, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}

		return res.Val, nil
	}
}

func (c *Client) cached(topic string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.cache[topic]

	return v, ok
}

func (c *Client) fetch(ctx context.Context, topic string) (any, error) {
	url := c.baseURL + topic

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", topic, err)
	}

	req.SetBasicAuth(c.user, c.password)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("url", url).Msg("calling api")
	c.requests.Add(1)

	rsp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveAPIRequest(topic, 0)

		return nil, fmt.Errorf("calling %s: %w", url, err)
	}

	defer func() { _ = rsp.Body.Close() }()

	c.metrics.ObserveAPIRequest(topic, rsp.StatusCode)

	if rsp.StatusCode < http.StatusOK || rsp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(rsp.Body, maxErrorBody))

		return nil, &StatusError{
			Topic: topic,
			Code:  rsp.StatusCode,
			Body:  strings.TrimSpace(string(body)),
		}
	}

	var v any
	if err := json.NewDecoder(rsp.Body).Decode(&v); err != nil {
		return nil, fmt.Errorf("decoding response of %s: %w", topic, err)
	}

	return v, nil
}

// CheckConnection verifies the credentials by reading the cluster name.
func (c *Client) CheckConnection(ctx context.Context) (string, error) {
	name, err := c.GetValue(ctx, "cluster", "name")
	if err != nil {
		return "", fmt.Errorf("checking api connection: %w", err)
	}

	return fmt.Sprint(name), nil
}
