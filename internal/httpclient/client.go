package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RequestBuilder creates requests for one method against paths under a base URL.
type RequestBuilder struct {
	method   string
	baseURL  string
	headers  http.Header
	username string
	password string
	useAuth  bool
}

// NewRequestBuilder validates the base URL and static headers once.
func NewRequestBuilder(method, baseURL string, headers map[string]string) (*RequestBuilder, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, errors.New("base URL is required")
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}

	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}

	h := http.Header{}
	for key, value := range headers {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" || strings.ContainsAny(trimmedKey, "\r\n") {
			return nil, fmt.Errorf("invalid header key %q", key)
		}
		canonicalKey := http.CanonicalHeaderKey(trimmedKey)
		if strings.ContainsAny(value, "\r\n") {
			return nil, fmt.Errorf("invalid header value for %s", canonicalKey)
		}
		h.Set(canonicalKey, value)
	}

	return &RequestBuilder{method: method, baseURL: base, headers: h}, nil
}

// WithBasicAuth makes every built request carry HTTP Basic credentials.
func (b *RequestBuilder) WithBasicAuth(username, password string) *RequestBuilder {
	b.username = username
	b.password = password
	b.useAuth = true
	return b
}

// Method returns the HTTP method of built requests.
func (b *RequestBuilder) Method() string {
	return b.method
}

// Build creates a request for path, which is appended to the base URL.
func (b *RequestBuilder) Build(ctx context.Context, path string, body *Body) (*http.Request, error) {
	if b == nil {
		return nil, errors.New("builder cannot be nil")
	}
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	reader, _ := body.reader()
	req, err := http.NewRequestWithContext(ctx, b.method, b.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header = b.headers.Clone()
	if ct := body.ContentType(); ct != "" {
		req.Header.Set("Content-Type", ct)
	}
	req.ContentLength = int64(body.Len())
	req.GetBody = body.reader

	if b.useAuth {
		req.SetBasicAuth(b.username, b.password)
	}
	return req, nil
}

// NewClient returns a client tuned for many concurrent requests to one host.
// maxConnsPerHost sizes the idle pool so every worker can keep a connection.
func NewClient(timeout time.Duration, maxConnsPerHost int) *http.Client {
	if timeout < 0 {
		timeout = 0
	}
	if maxConnsPerHost < 32 {
		maxConnsPerHost = 32
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          maxConnsPerHost * 2,
		MaxIdleConnsPerHost:   maxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
