package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	defaultTimeout   = 3 * time.Second
	defaultUserAgent = "gamecatalog-client/1.0"
)

// Document is a rendered record. "_id" holds the identifier when present.
type Document map[string]any

// ID returns the document identifier, or "" when it was projected out.
func (d Document) ID() string {
	id, _ := d["_id"].(string)
	return id
}

// APIError is a non-2xx answer of the catalog API.
type APIError struct {
	StatusCode int    `json:"-"`
	Status     string `json:"status"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Location   string `json:"location,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("catalog api: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

type Client struct {
	client    *http.Client
	cache     *cache.Cache
	userAgent string
	baseURL   string
}

type cachedDocument struct {
	etag     string
	document Document
}

func New(baseURL string) *Client {
	httpClient := http.Client{
		Timeout: defaultTimeout,
	}

	c := &Client{
		client:    &httpClient,
		cache:     cache.New(10*time.Minute, 15*time.Minute),
		userAgent: defaultUserAgent,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
	}
	httpClient.Transport = c
	return c
}

func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	return http.DefaultTransport.RoundTrip(req)
}

// List fetches every document of entity. When fields are given only those
// are returned.
func (c *Client) List(ctx context.Context, entity string, fields ...string) ([]Document, error) {
	path := "/" + entity
	if len(fields) > 0 {
		q := url.Values{}
		for _, f := range fields {
			q.Set(f, "1")
		}
		path += "?" + q.Encode()
	}

	var docs []Document
	if err := c.HttpRequest(ctx, http.MethodGet, path, nil, nil, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Get fetches one document by identifier or name fragment. Responses are
// revalidated with their ETag.
func (c *Client) Get(ctx context.Context, entity, key string) (Document, error) {
	path := "/" + entity + "/" + url.PathEscape(key)

	header := http.Header{}
	cached, found := c.cache.Get(path)
	if found {
		header.Set("If-None-Match", cached.(cachedDocument).etag)
	}

	var doc Document
	resp, err := c.send(ctx, http.MethodGet, path, nil, header)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && found {
		return cached.(cachedDocument).document, nil
	}
	if err := decode(resp, &doc); err != nil {
		return nil, err
	}

	if etag := resp.Header.Get("ETag"); etag != "" {
		c.cache.Set(path, cachedDocument{etag: etag, document: doc}, cache.DefaultExpiration)
	}
	return doc, nil
}

func (c *Client) Create(ctx context.Context, entity string, body any) (Document, error) {
	var doc Document
	if err := c.HttpRequest(ctx, http.MethodPost, "/"+entity, body, nil, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Update applies a partial update.
func (c *Client) Update(ctx context.Context, entity, id string, body any) (Document, error) {
	var doc Document
	if err := c.HttpRequest(ctx, http.MethodPatch, "/"+entity+"/"+url.PathEscape(id), body, nil, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *Client) Delete(ctx context.Context, entity, id string) error {
	return c.HttpRequest(ctx, http.MethodDelete, "/"+entity+"/"+url.PathEscape(id), nil, nil, nil)
}

// HttpRequest performs a request and decodes the data of the response
// envelope into response, which may be nil.
func (c *Client) HttpRequest(ctx context.Context, method, path string, body any, header http.Header, response any) error {
	resp, err := c.send(ctx, method, path, body, header)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decode(resp, response)
}

func (c *Client) send(ctx context.Context, method, path string, body any, header http.Header) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %v", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform request: %v", err)
	}
	return resp, nil
}

func decode(resp *http.Response, response any) error {
	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if response == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var envelope struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode response: %v", err)
	}
	if len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, response); err != nil {
		return fmt.Errorf("failed to decode response data: %v", err)
	}
	return nil
}
