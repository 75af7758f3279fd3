// Package chroma implements memory.Sink against a Chroma server's REST API.
// Chroma computes embeddings server-side from the stored documents.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/hivemind/internal/memory"
)

const (
	DefaultURL        = "http://localhost:8000"
	DefaultCollection = "hive_mind"
	DefaultTenant     = "default_tenant"
	DefaultDatabase   = "default_database"

	backendName = "chroma"
)

type Client struct {
	baseURL    string
	collection string
	tenant     string
	database   string
	client     *http.Client
	logger     *slog.Logger

	mu           sync.Mutex
	collectionID string
}

var _ memory.Sink = (*Client)(nil)

type Option func(*Client)

// WithTenant selects the Chroma tenant. Empty keeps the default.
func WithTenant(tenant string) Option {
	return func(c *Client) {
		if tenant != "" {
			c.tenant = tenant
		}
	}
}

// WithDatabase selects the Chroma database. Empty keeps the default.
func WithDatabase(database string) Option {
	return func(c *Client) {
		if database != "" {
			c.database = database
		}
	}
}

// NewClient speaks the v2 REST API, where collections live under a tenant
// and a database.
func NewClient(baseURL, collection string, logger *slog.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if collection == "" {
		collection = DefaultCollection
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		tenant:     DefaultTenant,
		database:   DefaultDatabase,
		client:     &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) collectionsPath() string {
	return "/api/v2/tenants/" + url.PathEscape(c.tenant) + "/databases/" + url.PathEscape(c.database) + "/collections"
}

type collectionRequest struct {
	Name        string `json:"name"`
	GetOrCreate bool   `json:"get_or_create"`
}

type collectionResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type addRequest struct {
	IDs       []string            `json:"ids"`
	Documents []string            `json:"documents"`
	Metadatas []map[string]string `json:"metadatas"`
}

type queryRequest struct {
	QueryTexts []string       `json:"query_texts"`
	NResults   int            `json:"n_results"`
	Where      map[string]any `json:"where,omitempty"`
	Include    []string       `json:"include"`
}

type queryResponse struct {
	IDs       [][]string         `json:"ids"`
	Documents [][]*string        `json:"documents"`
	Metadatas [][]map[string]any `json:"metadatas"`
	Distances [][]*float64       `json:"distances"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Ping calls the heartbeat endpoint.
func (c *Client) Ping(ctx context.Context) error {
	err := c.do(ctx, http.MethodGet, "/api/v2/heartbeat", nil, nil)
	if err != nil && !errors.Is(err, memory.ErrSinkUnavailable) {
		return memory.Unavailable(backendName, err)
	}
	return err
}

// Add stores one document under a fresh uuid.
func (c *Client) Add(ctx context.Context, content string, metadata map[string]string) (string, error) {
	collID, err := c.resolveCollection(ctx)
	if err != nil {
		return "", err
	}

	if metadata == nil {
		metadata = map[string]string{}
	}
	id := uuid.New().String()
	req := addRequest{
		IDs:       []string{id},
		Documents: []string{content},
		Metadatas: []map[string]string{metadata},
	}
	if err := c.do(ctx, http.MethodPost, c.collectionsPath()+"/"+url.PathEscape(collID)+"/add", req, nil); err != nil {
		return "", fmt.Errorf("chroma add: %w", err)
	}
	return id, nil
}

// Query runs a similarity search. Score is 1 - distance.
func (c *Client) Query(ctx context.Context, text string, limit int, filter memory.Filter) ([]memory.Record, error) {
	collID, err := c.resolveCollection(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}

	req := queryRequest{
		QueryTexts: []string{text},
		NResults:   limit,
		Where:      whereClause(filter),
		Include:    []string{"documents", "metadatas", "distances"},
	}
	var resp queryResponse
	if err := c.do(ctx, http.MethodPost, c.collectionsPath()+"/"+url.PathEscape(collID)+"/query", req, &resp); err != nil {
		return nil, fmt.Errorf("chroma query: %w", err)
	}

	if len(resp.IDs) == 0 {
		return nil, nil
	}
	records := make([]memory.Record, 0, len(resp.IDs[0]))
	for i, id := range resp.IDs[0] {
		rec := memory.Record{ID: id, Metadata: map[string]string{}}
		if doc := at(resp.Documents, i); doc != nil {
			rec.Content = *doc
		}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			for k, v := range resp.Metadatas[0][i] {
				rec.Metadata[k] = stringify(v)
			}
		}
		if d := at(resp.Distances, i); d != nil {
			rec.Score = 1 - *d
		}
		records = append(records, rec)
	}
	return records, nil
}

func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// resolveCollection gets or creates the collection once and caches its id.
func (c *Client) resolveCollection(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.collectionID != "" {
		return c.collectionID, nil
	}

	var resp collectionResponse
	err := c.do(ctx, http.MethodPost, c.collectionsPath(), collectionRequest{Name: c.collection, GetOrCreate: true}, &resp)
	if err != nil {
		return "", fmt.Errorf("chroma collection %s: %w", c.collection, err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("chroma collection %s: no id returned", c.collection)
	}
	c.collectionID = resp.ID
	c.logger.Debug("chroma collection resolved", "collection", c.collection, "id", resp.ID)
	return c.collectionID, nil
}

// do sends a JSON request. Transport failures and 5xx responses are reported
// as sink unavailability; other non-2xx responses are plain errors.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return memory.Unavailable(backendName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return memory.Unavailable(backendName, fmt.Errorf("status %d: %s", resp.StatusCode, errorText(respBody)))
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("chroma error %d: %s", resp.StatusCode, errorText(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// whereClause builds a Chroma metadata filter. Chroma accepts a bare
// {key: value} only for a single condition; several need an explicit $and.
func whereClause(filter memory.Filter) map[string]any {
	if len(filter) == 0 {
		return nil
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if len(keys) == 1 {
		return map[string]any{keys[0]: filter[keys[0]]}
	}
	conds := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		conds = append(conds, map[string]any{k: filter[k]})
	}
	return map[string]any{"$and": conds}
}

func errorText(body []byte) string {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	return string(body)
}

func at[T any](rows [][]*T, i int) *T {
	if len(rows) == 0 || i >= len(rows[0]) {
		return nil
	}
	return rows[0][i]
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
