package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// maxPayloadBytes bounds how much of a provider response is read.
const maxPayloadBytes = 1 << 20

// DirectTransport calls the score provider endpoint without intermediaries.
type DirectTransport struct {
	endpoint string
	client   *http.Client
}

// NewDirectTransport creates a transport for GET <endpoint>?username=<handle>.
func NewDirectTransport(endpoint string, client *http.Client) *DirectTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &DirectTransport{endpoint: endpoint, client: client}
}

func (t *DirectTransport) Name() string { return "direct" }

func (t *DirectTransport) Fetch(ctx context.Context, handle string) ([]byte, error) {
	return get(ctx, t.client, targetURL(t.endpoint, handle))
}

// ProxyTransport reaches the provider through an intermediary that receives
// the URL-encoded target as a suffix, e.g. https://proxy/raw?url=<target>.
type ProxyTransport struct {
	name     string
	base     string
	endpoint string
	client   *http.Client
}

// NewProxyTransport creates a proxy transport. name identifies the proxy in
// logs and metrics; base is the proxy prefix the encoded target is appended
// to.
func NewProxyTransport(name, base, endpoint string, client *http.Client) *ProxyTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &ProxyTransport{name: name, base: base, endpoint: endpoint, client: client}
}

func (t *ProxyTransport) Name() string { return t.name }

func (t *ProxyTransport) Fetch(ctx context.Context, handle string) ([]byte, error) {
	full := t.base + url.QueryEscape(targetURL(t.endpoint, handle))
	return get(ctx, t.client, full)
}

func targetURL(endpoint, handle string) string {
	return endpoint + "?username=" + url.QueryEscape(handle)
}

func get(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

// BuildTransports assembles the standard fallback chain: each configured
// proxy in order, then the direct call.
func BuildTransports(endpoint string, proxies []string, client *http.Client) []Transport {
	transports := make([]Transport, 0, len(proxies)+1)
	for i, base := range proxies {
		transports = append(transports, NewProxyTransport(fmt.Sprintf("proxy-%d", i), base, endpoint, client))
	}
	transports = append(transports, NewDirectTransport(endpoint, client))
	return transports
}
