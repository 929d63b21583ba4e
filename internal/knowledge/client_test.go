package knowledge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/layaask/answerbot/config"
	"github.com/layaask/answerbot/internal/planner"
)

func newRPCServer(t *testing.T, handle func(method string, params json.RawMessage) (interface{}, *rpcError)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     int64           `json:"id"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		result, rpcErr := handle(req.Method, req.Params)
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func toolsList(names ...string) interface{} {
	tools := make([]map[string]string, 0, len(names))
	for _, n := range names {
		tools = append(tools, map[string]string{"name": n})
	}
	return map[string]interface{}{"tools": tools}
}

func textResult(payload string) interface{} {
	return map[string]interface{}{
		"content": []map[string]string{{"type": "text", "text": payload}},
	}
}

func TestClientSearchRoutesTools(t *testing.T) {
	t.Parallel()

	var gotTool string
	var gotArgs map[string]interface{}
	srv := newRPCServer(t, func(method string, params json.RawMessage) (interface{}, *rpcError) {
		switch method {
		case "initialize":
			return map[string]interface{}{}, nil
		case "tools/list":
			return toolsList(toolAPIDetail, toolQueryAPI, toolQueryDocs), nil
		case "tools/call":
			var p struct {
				Name      string                 `json:"name"`
				Arguments map[string]interface{} `json:"arguments"`
			}
			if err := json.Unmarshal(params, &p); err != nil {
				return nil, &rpcError{Code: -32602, Message: err.Error()}
			}
			gotTool, gotArgs = p.Name, p.Arguments
			return textResult(`{"results":[{"name":"addChild","type":"method","belongs_to":"Sprite","signature":"addChild(node: Node): Node","description":"Adds a child node."}],"total":1}`), nil
		}
		return nil, &rpcError{Code: -32601, Message: "unknown method"}
	})
	defer srv.Close()

	c := NewClient(config.KnowledgeConfig{URL: srv.URL, Version: "3.2"}, nil)
	res, err := c.Search(context.Background(), planner.ExactLookup, "Sprite.addChild")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if gotTool != toolAPIDetail {
		t.Fatalf("tool = %q, want %q", gotTool, toolAPIDetail)
	}
	if gotArgs["name"] != "Sprite.addChild" || gotArgs["version"] != "3.2" {
		t.Fatalf("arguments = %v", gotArgs)
	}
	if !res.Success || !strings.Contains(res.Context, "Sprite.addChild") {
		t.Fatalf("result = %+v", res)
	}

	if _, err := c.Search(context.Background(), planner.FuzzyDocSearch, "按钮 点击"); err != nil {
		t.Fatalf("Search docs: %v", err)
	}
	if gotTool != toolQueryDocs {
		t.Fatalf("tool = %q, want %q", gotTool, toolQueryDocs)
	}
	if gotArgs["limit"] != float64(3) {
		t.Fatalf("docs limit = %v, want 3", gotArgs["limit"])
	}
}

func TestClientInitializesOnce(t *testing.T) {
	t.Parallel()

	var initCount int64
	srv := newRPCServer(t, func(method string, params json.RawMessage) (interface{}, *rpcError) {
		switch method {
		case "initialize":
			atomic.AddInt64(&initCount, 1)
			return map[string]interface{}{}, nil
		case "tools/list":
			return toolsList(toolQueryAPI), nil
		case "tools/call":
			return textResult("some prose"), nil
		}
		return nil, &rpcError{Code: -32601, Message: "unknown method"}
	})
	defer srv.Close()

	c := NewClient(config.KnowledgeConfig{URL: srv.URL}, nil)
	for i := 0; i < 3; i++ {
		if _, err := c.Search(context.Background(), planner.FuzzyAPISearch, "Tween"); err != nil {
			t.Fatalf("Search %d: %v", i, err)
		}
	}
	if n := atomic.LoadInt64(&initCount); n != 1 {
		t.Fatalf("initialize called %d times, want 1", n)
	}
}

func TestClientSkipsMissingTool(t *testing.T) {
	t.Parallel()

	srv := newRPCServer(t, func(method string, params json.RawMessage) (interface{}, *rpcError) {
		switch method {
		case "initialize":
			return map[string]interface{}{}, nil
		case "tools/list":
			return toolsList(toolQueryAPI), nil
		case "tools/call":
			t.Error("tools/call should not be reached for an unoffered tool")
		}
		return nil, &rpcError{Code: -32601, Message: "unknown method"}
	})
	defer srv.Close()

	c := NewClient(config.KnowledgeConfig{URL: srv.URL}, nil)
	res, err := c.Search(context.Background(), planner.ExactLookup, "Sprite")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Success || res.Context != "" {
		t.Fatalf("result = %+v, want empty non-error", res)
	}
}

func TestClientRetriesTransportFailures(t *testing.T) {
	t.Parallel()

	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&calls, 1)
		if n == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		var req struct {
			ID     int64  `json:"id"`
			Method string `json:"method"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		var result interface{} = map[string]interface{}{}
		if req.Method == "tools/list" {
			result = toolsList(toolQueryAPI)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": result})
	}))
	defer srv.Close()

	c := NewClient(config.KnowledgeConfig{
		URL:     srv.URL,
		Retries: 2,
		Backoff: time.Millisecond,
	}, nil)
	if err := c.ensureConnected(context.Background()); err != nil {
		t.Fatalf("ensureConnected after retry: %v", err)
	}
}

func TestClientRPCErrorNotRetried(t *testing.T) {
	t.Parallel()

	var calls int64
	srv := newRPCServer(t, func(method string, params json.RawMessage) (interface{}, *rpcError) {
		atomic.AddInt64(&calls, 1)
		return nil, &rpcError{Code: -32000, Message: "dataset unavailable"}
	})
	defer srv.Close()

	c := NewClient(config.KnowledgeConfig{URL: srv.URL, Retries: 3, Backoff: time.Millisecond}, nil)
	err := c.ensureConnected(context.Background())
	if err == nil || !strings.Contains(err.Error(), "dataset unavailable") {
		t.Fatalf("err = %v, want rpc error", err)
	}
	if n := atomic.LoadInt64(&calls); n != 1 {
		t.Fatalf("rpc error retried: %d calls, want 1", n)
	}
}

func TestClientSendsHeaders(t *testing.T) {
	t.Parallel()

	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		var req struct {
			ID     int64  `json:"id"`
			Method string `json:"method"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": map[string]interface{}{}})
	}))
	defer srv.Close()

	c := NewClient(config.KnowledgeConfig{
		URL:        srv.URL,
		APIKey:     "secret",
		Version:    "3.2",
		PreVersion: "3.1",
		Datasets:   "api,docs",
	}, nil)
	if _, err := c.call(context.Background(), "initialize", map[string]interface{}{}); err != nil {
		t.Fatalf("call: %v", err)
	}
	for header, want := range map[string]string{
		"LAYA_MCP_API_KEY":      "secret",
		"LAYA_VERSION":          "3.2",
		"LAYA_PRE_VERSION":      "3.1",
		"LAYA_ALLOWED_DATASETS": "api,docs",
	} {
		if got.Get(header) != want {
			t.Fatalf("header %s = %q, want %q", header, got.Get(header), want)
		}
	}
}
