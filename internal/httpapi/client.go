package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/leapstack-labs/dbscope/internal/invoke"
)

// Client is an invoke.Invoker that calls a Server over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the server at baseURL.
// A nil httpClient uses http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Invoke implements invoke.Invoker.
func (c *Client) Invoke(ctx context.Context, command string, args any, result any) error {
	body, err := invoke.EncodeArgs(command, args)
	if err != nil {
		return err
	}

	endpoint := c.baseURL + "/invoke/" + url.PathEscape(command)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return invoke.Errorf(command, invoke.CodeTransport, "failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return invoke.Errorf(command, invoke.CodeTransport, "failed to call backend: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return invoke.Errorf(command, invoke.CodeTransport, "failed to read response: %v", err)
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return invoke.Errorf(command, invoke.CodeTransport, "unexpected status %s", resp.Status)
		}
		return invoke.Errorf(command, invoke.CodeSerialization, "failed to decode response of %s: %v", command, err)
	}

	if env.Error != nil {
		if env.Error.Command == "" {
			env.Error.Command = command
		}
		return env.Error
	}
	if resp.StatusCode != http.StatusOK {
		return invoke.Errorf(command, invoke.CodeTransport, "unexpected status %s", resp.Status)
	}
	return invoke.DecodeResult(command, env.Result, result)
}

// Health checks the server's /healthz endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend unhealthy: %s", resp.Status)
	}
	return nil
}
