// Package client implements the OVH Client Pool (C1), the Cart/Order Driver
// (C3), and the Availability Probe (C4): everything that talks to OVH's REST
// API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/arturoibarra/ovh-fleet/internal/models"
)

// Client is bound to one account and signs every request with that
// account's keys. Safe for concurrent use; the scheduler caps each task to
// one in-flight order attempt at a time, while several tasks on the same
// account may use the client concurrently.
type Client struct {
	account    models.Account
	httpClient *http.Client
	log        zerolog.Logger
}

func newClient(account models.Account, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		account:    account,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("account", account.ID).Logger(),
	}
}

type ovhErrorBody struct {
	Class   string `json:"class"`
	Message string `json:"message"`
}

// Do issues one signed request against the account's region and returns the
// raw status and body. Non-2xx responses are returned as a typed error, not
// as (status, body, nil) — callers branch on error type, not on status.
func (c *Client) Do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var bodyBytes []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request body: %w", err)
		}
		bodyBytes = encoded
	}

	base := c.account.EndpointBaseURL()
	if c.account.BaseURLOverride != "" {
		base = c.account.BaseURLOverride
	}
	url := base + path
	ts := timestampNow()
	signature := sign(c.account.ApplicationSecret, c.account.ConsumerKey, method, url, string(bodyBytes), ts)

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Ovh-Application", c.account.ApplicationKey)
	req.Header.Set("X-Ovh-Consumer", c.account.ConsumerKey)
	req.Header.Set("X-Ovh-Timestamp", timestampHeader(ts))
	req.Header.Set("X-Ovh-Signature", signature)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("send request to %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response from %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var decoded ovhErrorBody
		_ = json.Unmarshal(respBody, &decoded)
		if decoded.Message == "" {
			decoded.Message = string(respBody)
		}
		return resp.StatusCode, respBody, classify(resp.StatusCode, decoded.Class, decoded.Message)
	}

	return resp.StatusCode, respBody, nil
}

// Pool caches one Client per account id, constructing lazily on first use.
// Accounts themselves are read-only after the account store loads them, so
// the pool never needs to invalidate an entry.
type Pool struct {
	timeout time.Duration
	log     zerolog.Logger

	mu      sync.RWMutex
	clients map[string]*Client
}

func NewPool(timeout time.Duration, log zerolog.Logger) *Pool {
	return &Pool{
		timeout: timeout,
		log:     log.With().Str("component", "ovh_client").Logger(),
		clients: make(map[string]*Client),
	}
}

// For returns the cached client for account, creating it on first call.
func (p *Pool) For(account models.Account) *Client {
	p.mu.RLock()
	c, ok := p.clients[account.ID]
	p.mu.RUnlock()
	if ok {
		return c
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[account.ID]; ok {
		return c
	}
	c = newClient(account, p.timeout, p.log)
	p.clients[account.ID] = c
	return c
}
