// Package knowledge talks to the documentation knowledge endpoint: a
// JSON-RPC tool service queried to ground generated answers.
package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/layaask/answerbot/config"
	"github.com/layaask/answerbot/internal/metrics"
	"github.com/layaask/answerbot/internal/planner"
)

const protocolVersion = "2024-11-05"

// Tool names exposed by the knowledge endpoint.
const (
	toolAPIDetail = "get_api_detail"
	toolQueryAPI  = "query_api"
	toolQueryDocs = "query_docs"
)

// Result is the outcome of one knowledge lookup. Zero hits is a valid
// non-error outcome: Success false with empty Context.
type Result struct {
	Success bool
	Context string
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int64       `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string { return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message) }

type toolCallResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type toolListResult struct {
	Tools []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"tools"`
}

// Client is a lazily-connected HTTP JSON-RPC client for the knowledge
// endpoint. The session is process-wide and reused across calls;
// re-establishment only happens when not currently connected.
type Client struct {
	cfg    config.KnowledgeConfig
	httpc  *http.Client
	logger *log.Logger

	mu        sync.Mutex
	connected bool
	tools     map[string]struct{}
	seq       int64
}

// NewClient builds a Client. The session is negotiated on first use.
func NewClient(cfg config.KnowledgeConfig, logger *log.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[MCP] ", log.LstdFlags)
	}
	return &Client{
		cfg:    cfg,
		httpc:  &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Search routes one plan entry to the matching endpoint tool and returns the
// rendered context. Transport failures surface as errors; an empty result
// set does not.
func (c *Client) Search(ctx context.Context, tool planner.ToolKind, query string) (Result, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return Result{}, err
	}

	var name string
	var args map[string]interface{}
	switch tool {
	case planner.ExactLookup:
		name = toolAPIDetail
		args = map[string]interface{}{"name": query}
		if c.cfg.Version != "" {
			args["version"] = c.cfg.Version
		}
	case planner.FuzzyAPISearch:
		name = toolQueryAPI
		args = map[string]interface{}{"query": query, "limit": 5}
	case planner.FuzzyDocSearch:
		name = toolQueryDocs
		args = map[string]interface{}{"query": query, "limit": 3}
	default:
		return Result{}, fmt.Errorf("unknown tool kind %q", tool)
	}

	c.mu.Lock()
	_, available := c.tools[name]
	c.mu.Unlock()
	if !available {
		c.logger.Printf("tool %s not offered by endpoint, skipping %q", name, query)
		return Result{}, nil
	}

	raw, err := c.call(ctx, "tools/call", map[string]interface{}{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		metrics.KnowledgeLookups.WithLabelValues(name, "error").Inc()
		return Result{}, fmt.Errorf("call %s: %w", name, err)
	}

	var res toolCallResult
	if err := json.Unmarshal(raw, &res); err != nil {
		metrics.KnowledgeLookups.WithLabelValues(name, "error").Inc()
		return Result{}, fmt.Errorf("decode %s result: %w", name, err)
	}
	var blocks []string
	for _, item := range res.Content {
		if item.Type == "text" && item.Text != "" {
			blocks = append(blocks, item.Text)
		}
	}
	rendered := formatBlocks(blocks)
	if rendered != "" {
		metrics.KnowledgeLookups.WithLabelValues(name, "hit").Inc()
	} else {
		metrics.KnowledgeLookups.WithLabelValues(name, "miss").Inc()
	}
	return Result{Success: rendered != "", Context: rendered}, nil
}

// Close drops the session; the next call re-negotiates.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.tools = nil
}

// ensureConnected negotiates the session and lists tools once. Idempotent.
func (c *Client) ensureConnected(ctx context.Context) error {
	c.mu.Lock()
	connected := c.connected
	c.mu.Unlock()
	if connected {
		return nil
	}

	if _, err := c.call(ctx, "initialize", map[string]interface{}{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]interface{}{},
		"clientInfo": map[string]interface{}{
			"name":    "answerbot",
			"version": "1.0.0",
		},
	}); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	raw, err := c.call(ctx, "tools/list", map[string]interface{}{})
	if err != nil {
		return fmt.Errorf("tools/list: %w", err)
	}
	var list toolListResult
	if err := json.Unmarshal(raw, &list); err != nil {
		return fmt.Errorf("decode tools/list: %w", err)
	}

	tools := make(map[string]struct{}, len(list.Tools))
	for _, t := range list.Tools {
		tools[t.Name] = struct{}{}
	}

	c.mu.Lock()
	c.connected = true
	c.tools = tools
	c.mu.Unlock()
	c.logger.Printf("knowledge endpoint connected, %d tools available", len(tools))
	return nil
}

// call sends one JSON-RPC request with bounded retries and exponential
// backoff. Only transport-class failures are retried.
func (c *Client) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	c.mu.Lock()
	c.seq++
	id := c.seq
	c.mu.Unlock()

	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	if err != nil {
		return nil, err
	}

	var lastErr error
	tries := c.cfg.Retries + 1
	for attempt := 0; attempt < tries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.cfg.APIKey != "" {
			req.Header.Set("LAYA_MCP_API_KEY", c.cfg.APIKey)
		}
		if c.cfg.Version != "" {
			req.Header.Set("LAYA_VERSION", c.cfg.Version)
		}
		if c.cfg.PreVersion != "" {
			req.Header.Set("LAYA_PRE_VERSION", c.cfg.PreVersion)
		}
		if c.cfg.Datasets != "" {
			req.Header.Set("LAYA_ALLOWED_DATASETS", c.cfg.Datasets)
		}

		resp, err := c.httpc.Do(req)
		if err != nil {
			lastErr = err
		} else {
			data, readErr := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
			resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = readErr
			case resp.StatusCode < 200 || resp.StatusCode >= 300:
				lastErr = errors.New(resp.Status + ": " + string(truncateBytes(data, 512)))
			default:
				var rpc rpcResponse
				if err := json.Unmarshal(data, &rpc); err != nil {
					return nil, fmt.Errorf("decode %s response: %w", method, err)
				}
				if rpc.Error != nil {
					return nil, rpc.Error
				}
				return rpc.Result, nil
			}
		}

		if attempt < tries-1 {
			select {
			case <-time.After(c.cfg.Backoff * time.Duration(1<<attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}

func truncateBytes(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
