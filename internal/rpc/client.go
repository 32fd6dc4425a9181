// Package rpc implements the HTTP JSON-RPC 2.0 client for the node API.
// It carries no protocol state; the session layers the publish handshake
// and cache discipline on top.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	defaultTimeout        = 60 * time.Second
	defaultConnectTimeout = 5 * time.Second
)

// defaultHTTPClient builds a client with explicit dial and overall timeouts.
// The protocol itself has no timeout or cancellation; deadlines live here
// and in the caller's context.
func defaultHTTPClient() *http.Client {
	dialer := &net.Dialer{Timeout: defaultConnectTimeout}
	return &http.Client{
		Transport: &http.Transport{DialContext: dialer.DialContext},
		Timeout:   defaultTimeout,
	}
}

// Client is an HTTP JSON-RPC 2.0 client bound to one node endpoint.
//
// Thread-safety: Client is stateless apart from the shared http.Client and
// safe for concurrent use.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client, e.g. to tighten
// timeouts or inject a test transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client for the node at the given endpoint URL.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: defaultHTTPClient(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *responseError  `json:"error,omitempty"`
}

type responseError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// RPCError is a failed call: either the transport failed (Err is set) or
// the node returned a JSON-RPC error object (Code/Message are set).
type RPCError struct {
	Method  string
	Code    int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rpc %s: %v", e.Method, e.Err)
	}
	return fmt.Sprintf("rpc %s: node error %d: %s", e.Method, e.Code, e.Message)
}

// Unwrap exposes the underlying transport error, if any.
func (e *RPCError) Unwrap() error {
	return e.Err
}

// IsNodeError reports whether err is a JSON-RPC error returned by the node
// (as opposed to a transport failure).
func IsNodeError(err error) bool {
	var re *RPCError
	return errors.As(err, &re) && re.Err == nil
}

// Call performs one JSON-RPC request and unmarshals the result into out.
// Pass a nil out to discard the result.
func (c *Client) Call(ctx context.Context, method string, params any, out any) error {
	body, err := json.Marshal(request{
		JSONRPC: "2.0",
		ID:      uuid.Must(uuid.NewV7()).String(),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return &RPCError{Method: method, Err: fmt.Errorf("encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return &RPCError{Method: method, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RPCError{Method: method, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RPCError{Method: method, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return &RPCError{Method: method, Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(data))}
	}

	var rpcResp response
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return &RPCError{Method: method, Err: fmt.Errorf("decode response: %w", err)}
	}
	if rpcResp.Error != nil {
		return &RPCError{Method: method, Code: rpcResp.Error.Code, Message: rpcResp.Error.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return &RPCError{Method: method, Err: fmt.Errorf("decode result: %w", err)}
	}
	return nil
}

func truncate(data []byte) string {
	const max = 256
	if len(data) > max {
		return string(data[:max]) + "..."
	}
	return string(data)
}
