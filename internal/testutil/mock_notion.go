// Package testutil provides testing utilities for the Notion graph engine.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/Sternrassler/notion-graph/pkg/client"
	"github.com/Sternrassler/notion-graph/pkg/notion"
)

// TestToken is the bearer credential the mock expects.
const TestToken = "secret_test_token"

// MockResponse defines a canned response for a mock endpoint.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockNotion is an in-memory Notion workspace served over HTTP.
type MockNotion struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	pages     map[string]map[string]any
	databases map[string]map[string]any
	children  map[string][]map[string]any
	items     map[string][]map[string]any
	users     []map[string]any
	files     map[string][]byte

	// PageSize caps list responses so tests can force multiple cursors.
	PageSize int

	// Tracking
	RequestCount      int
	LastRequestHeader http.Header
	calls             map[string]int
	bodies            map[string][]string
}

// NewMockNotion creates and starts a mock server.
func NewMockNotion() *MockNotion {
	m := &MockNotion{
		handlers:  make(map[string]http.HandlerFunc),
		pages:     make(map[string]map[string]any),
		databases: make(map[string]map[string]any),
		children:  make(map[string][]map[string]any),
		items:     make(map[string][]map[string]any),
		files:     make(map[string][]byte),
		calls:     make(map[string]int),
		bodies:    make(map[string][]string),
		PageSize:  100,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/pages/{id}", m.handlePage)
	mux.HandleFunc("GET /v1/databases/{id}", m.handleDatabase)
	mux.HandleFunc("POST /v1/databases/{id}/query", m.handleQuery)
	mux.HandleFunc("GET /v1/blocks/{id}/children", m.handleChildren)
	mux.HandleFunc("GET /v1/users", m.handleUsers)
	mux.HandleFunc("GET /files/{name}", m.handleFile)

	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
		}

		m.mu.Lock()
		m.RequestCount++
		m.LastRequestHeader = r.Header.Clone()
		m.calls[r.URL.Path]++
		if len(body) > 0 {
			m.bodies[r.URL.Path] = append(m.bodies[r.URL.Path], string(body))
		}
		handler, exists := m.handlers[r.URL.Path]
		m.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		mux.ServeHTTP(w, r)
	}))

	return m
}

// URL returns the server root.
func (m *MockNotion) URL() string {
	return m.server.URL
}

// BaseURL returns the API root to configure a client with.
func (m *MockNotion) BaseURL() string {
	return m.server.URL + "/v1"
}

// FileURL returns the download URL of a file added with AddFile.
func (m *MockNotion) FileURL(name string) string {
	return m.server.URL + "/files/" + name
}

// Close shuts down the mock server.
func (m *MockNotion) Close() {
	m.server.Close()
}

// NewAPI returns an API wired to the mock whose retries never sleep.
func (m *MockNotion) NewAPI() (*notion.API, error) {
	cfg := client.DefaultConfig(TestToken)
	cfg.BaseURL = m.BaseURL()
	cfg.HTTPTimeout = 5 * time.Second

	c, err := client.New(cfg)
	if err != nil {
		return nil, err
	}
	exec := client.NewExecutor(c, cfg.Retry, nil)
	exec.SetSleepFunc(func(ctx context.Context, _ time.Duration) error { return ctx.Err() })
	return notion.NewAPI(exec), nil
}

// AddPage registers a page record.
func (m *MockNotion) AddPage(page map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[page["id"].(string)] = page
}

// AddDatabase registers a database schema and its items. Items are also
// reachable through the page endpoint.
func (m *MockNotion) AddDatabase(db map[string]any, items ...map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := db["id"].(string)
	m.databases[id] = db
	m.items[id] = append(m.items[id], items...)
	for _, item := range items {
		m.pages[item["id"].(string)] = item
	}
}

// SetChildren sets the children of a page or block.
func (m *MockNotion) SetChildren(parentID string, blocks ...map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.children[parentID] = blocks
}

// AddUsers appends to the user directory.
func (m *MockNotion) AddUsers(users ...map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = append(m.users, users...)
}

// AddFile registers downloadable bytes under name.
func (m *MockNotion) AddFile(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = data
}

// SetHandler overrides the handler for an exact path.
func (m *MockNotion) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a canned response for an exact path.
func (m *MockNotion) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// Calls returns how many requests hit path (e.g. "/v1/pages/abc").
func (m *MockNotion) Calls(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[path]
}

// Bodies returns the request bodies received on path.
func (m *MockNotion) Bodies(path string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.bodies[path]...)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockNotion) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

func (m *MockNotion) handlePage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m.mu.RLock()
	page, ok := m.pages[id]
	m.mu.RUnlock()
	if !ok {
		writeNotFound(w, "page", id)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (m *MockNotion) handleDatabase(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m.mu.RLock()
	db, ok := m.databases[id]
	m.mu.RUnlock()
	if !ok {
		writeNotFound(w, "database", id)
		return
	}
	writeJSON(w, http.StatusOK, db)
}

func (m *MockNotion) handleQuery(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var body struct {
		StartCursor string `json:"start_cursor"`
		PageSize    int    `json:"page_size"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	m.mu.RLock()
	_, ok := m.databases[id]
	items := m.items[id]
	m.mu.RUnlock()
	if !ok {
		writeNotFound(w, "database", id)
		return
	}
	m.writeList(w, items, body.StartCursor, body.PageSize)
}

func (m *MockNotion) handleChildren(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	m.mu.RLock()
	blocks := m.children[id]
	m.mu.RUnlock()
	m.writeList(w, blocks, r.URL.Query().Get("start_cursor"), pageSize)
}

func (m *MockNotion) handleUsers(w http.ResponseWriter, r *http.Request) {
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	m.mu.RLock()
	users := m.users
	m.mu.RUnlock()
	m.writeList(w, users, r.URL.Query().Get("start_cursor"), pageSize)
}

func (m *MockNotion) handleFile(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	data, ok := m.files[r.PathValue("name")]
	m.mu.RUnlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// writeList serves one cursor page; the cursor is the decimal offset.
func (m *MockNotion) writeList(w http.ResponseWriter, all []map[string]any, cursor string, requested int) {
	size := m.PageSize
	if requested > 0 && requested < size {
		size = requested
	}
	if size <= 0 {
		size = 100
	}

	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 || n > len(all) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"object": "error", "status": 400, "code": "validation_error", "message": "bad cursor",
			})
			return
		}
		start = n
	}

	end := start + size
	if end > len(all) {
		end = len(all)
	}

	results := all[start:end]
	if results == nil {
		results = []map[string]any{}
	}
	resp := map[string]any{
		"object":      "list",
		"results":     results,
		"has_more":    end < len(all),
		"next_cursor": nil,
	}
	if end < len(all) {
		resp["next_cursor"] = strconv.Itoa(end)
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeNotFound(w http.ResponseWriter, kind, id string) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"object":  "error",
		"status":  404,
		"code":    "object_not_found",
		"message": fmt.Sprintf("Could not find %s with ID: %s.", kind, id),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// NewNotFoundResponse creates an object_not_found error response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"object":"error","status":404,"code":"object_not_found","message":"not found"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewRestrictedResponse creates a restricted_resource error response.
func NewRestrictedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusForbidden,
		Body:       `{"object":"error","status":403,"code":"restricted_resource","message":"restricted"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewRateLimitResponse creates a 429 response with the given Retry-After value.
func NewRateLimitResponse(retryAfter string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"object":"error","status":429,"code":"rate_limited","message":"slow down"}`,
		Headers: map[string]string{
			"Content-Type": "application/json",
			"Retry-After":  retryAfter,
		},
	}
}

// NewServerErrorResponse creates a 500 response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"object":"error","status":500,"code":"internal_server_error","message":"boom"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}
