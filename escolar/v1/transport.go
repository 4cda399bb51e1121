package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

type Response struct {
	StatusCode int
	Data       []byte
}

// Decode unmarshals the body into v. An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if r == nil || len(bytes.TrimSpace(r.Data)) == 0 {
		return nil
	}
	return json.Unmarshal(r.Data, v)
}

// Transport handles low-level HTTP and authentication
type Transport struct {
	BaseURL    string
	HTTPClient *http.Client

	mu        sync.RWMutex
	authToken string
}

// NewTransport creates a transport with base URL and auth
func NewTransport(baseURL, token string, timeout time.Duration) *Transport {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Transport{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		authToken:  token,
	}
}

func (t *Transport) SetToken(token string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.authToken = token
}

func (t *Transport) Token() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.authToken
}

// helper: build full URL with query params
func (t *Transport) buildURL(path string, query map[string]string) string {
	u, err := url.Parse(t.BaseURL + path)
	if err != nil {
		return t.BaseURL + path
	}
	q := u.Query()
	for k, v := range query {
		if v == "" {
			continue
		}
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (t *Transport) newRequest(ctx context.Context, method, path string, query map[string]string, data any) (*http.Request, error) {
	var body io.Reader
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.buildURL(path, query), body)
	if err != nil {
		return nil, err
	}

	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := t.Token(); token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}
	return req, nil
}

func (t *Transport) do(ctx context.Context, method, path string, query map[string]string, data any) (*Response, error) {
	req, err := t.newRequest(ctx, method, path, query, data)
	if err != nil {
		return nil, err
	}

	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	resdata, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 300 {
		return nil, &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(resdata)}
	}

	return &Response{StatusCode: resp.StatusCode, Data: resdata}, nil
}

// Get sends a GET request
func (t *Transport) Get(ctx context.Context, path string, query map[string]string) (*Response, error) {
	return t.do(ctx, http.MethodGet, path, query, nil)
}

// Post sends a POST request with JSON body
func (t *Transport) Post(ctx context.Context, path string, data any, query map[string]string) (*Response, error) {
	return t.do(ctx, http.MethodPost, path, query, data)
}

// Patch sends a PATCH request with JSON body
func (t *Transport) Patch(ctx context.Context, path string, data any) (*Response, error) {
	return t.do(ctx, http.MethodPatch, path, nil, data)
}

func (t *Transport) Delete(ctx context.Context, path string) error {
	_, err := t.do(ctx, http.MethodDelete, path, nil, nil)
	return err
}

// Head sends a HEAD request and reports any non-2xx status as an error.
func (t *Transport) Head(ctx context.Context, path string, query map[string]string) error {
	req, err := t.newRequest(ctx, http.MethodHead, path, query, nil)
	if err != nil {
		return err
	}
	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &APIError{Method: http.MethodHead, Path: path, StatusCode: resp.StatusCode}
	}
	return nil
}
