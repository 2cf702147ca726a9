// Package http implements the metadata gateway over the orchestrator's
// stable REST API (version path /api/v1), using basic auth and a shared
// client for connection reuse.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/dataeng-tools/airmeta/debugctx"
	"github.com/dataeng-tools/airmeta/server"
)

const (
	apiBasePath = "api/v1"
	mediaType   = "application/json"

	// Metadata syncs against busy webservers can take minutes; the timeout
	// matches the longest observed full reconciliation, not a single call.
	defaultTimeout = 720 * time.Second
)

var _ server.MetadataGateway = (*Gateway)(nil)

type Gateway struct {
	baseURL    *url.URL
	credential server.Credential
	client     *http.Client
}

type GatewayOption func(*Gateway)

// WithTimeout overrides the per-call timeout, mainly for tests.
func WithTimeout(timeout time.Duration) GatewayOption {
	return func(g *Gateway) {
		if g == nil || timeout <= 0 {
			return
		}
		g.client.Timeout = timeout
	}
}

func NewGateway(webserverURL string, credential server.Credential, opts ...GatewayOption) (*Gateway, error) {
	baseURL, err := parseWebserverURL(webserverURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(credential.Username) == "" || credential.Password == "" {
		return nil, configError("gateway credential requires username and password", nil)
	}

	gateway := &Gateway{
		baseURL:    baseURL,
		credential: credential,
		client:     &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(gateway)
	}
	return gateway, nil
}

func (g *Gateway) ListPage(ctx context.Context, collection string, itemsExpr string, offset int) ([]map[string]any, error) {
	query := map[string]string{"offset": fmt.Sprintf("%d", offset)}
	body, err := g.execute(ctx, http.MethodGet, collection, query, nil)
	if err != nil {
		return nil, err
	}

	payload, err := decodeJSON(body)
	if err != nil {
		return nil, err
	}

	extracted, err := evalJQ(itemsExpr, payload)
	if err != nil {
		return nil, err
	}

	items, ok := extracted.([]any)
	if !ok {
		return nil, remoteError(fmt.Sprintf("list response field for %s is not an array", collection), nil)
	}

	objects := make([]map[string]any, 0, len(items))
	for _, item := range items {
		object, ok := item.(map[string]any)
		if !ok {
			return nil, remoteError(fmt.Sprintf("list entries for %s must be JSON objects", collection), nil)
		}
		objects = append(objects, object)
	}
	return objects, nil
}

func (g *Gateway) TotalEntries(ctx context.Context, collection string) (int, error) {
	body, err := g.execute(ctx, http.MethodGet, collection, nil, nil)
	if err != nil {
		return 0, err
	}

	payload, err := decodeJSON(body)
	if err != nil {
		return 0, err
	}

	extracted, err := evalJQ(".total_entries", payload)
	if err != nil {
		return 0, err
	}

	switch count := extracted.(type) {
	case int:
		return count, nil
	case float64:
		return int(count), nil
	default:
		return 0, remoteError(fmt.Sprintf("%s response carries no total_entries count", collection), nil)
	}
}

func (g *Gateway) Patch(ctx context.Context, collection string, identifier string, query map[string]string, payload map[string]any) error {
	_, err := g.execute(ctx, http.MethodPatch, joinCollectionPath(collection, identifier), query, payload)
	return err
}

func (g *Gateway) Create(ctx context.Context, collection string, payload map[string]any) error {
	_, err := g.execute(ctx, http.MethodPost, collection, nil, payload)
	return err
}

func (g *Gateway) Delete(ctx context.Context, collection string, identifier string) error {
	_, err := g.execute(ctx, http.MethodDelete, joinCollectionPath(collection, identifier), nil, nil)
	return err
}

func (g *Gateway) execute(ctx context.Context, method string, requestPath string, query map[string]string, payload map[string]any) ([]byte, error) {
	request, err := g.newRequest(ctx, method, requestPath, query, payload)
	if err != nil {
		return nil, err
	}

	debugctx.Printf(ctx, debugctx.GroupNetwork, "%s %s", method, request.URL)

	response, err := g.client.Do(request)
	if err != nil {
		return nil, remoteError("remote request failed", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, 1<<20))
	if err != nil {
		return nil, remoteError("remote response could not be read", err)
	}

	if response.StatusCode >= http.StatusBadRequest {
		return nil, classifyStatusError(method, request.URL.Path, response.StatusCode, body)
	}
	return body, nil
}

func (g *Gateway) newRequest(ctx context.Context, method string, requestPath string, query map[string]string, payload map[string]any) (*http.Request, error) {
	target := *g.baseURL
	target.Path = path.Join(g.baseURL.Path, requestPath)

	if len(query) > 0 {
		values := target.Query()
		keys := make([]string, 0, len(query))
		for key := range query {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			values.Set(key, query[key])
		}
		target.RawQuery = values.Encode()
	}

	var bodyReader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, internalError("request payload could not be encoded", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, target.String(), bodyReader)
	if err != nil {
		return nil, internalError("remote request could not be created", err)
	}

	request.Header.Set("Accept", mediaType)
	if payload != nil {
		request.Header.Set("Content-Type", mediaType)
	}
	request.SetBasicAuth(g.credential.Username, g.credential.Password)

	return request, nil
}

func parseWebserverURL(raw string) (*url.URL, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, configError("webserver-url is required", nil)
	}

	parsed, err := url.Parse(value)
	if err != nil {
		return nil, configError("webserver-url is invalid", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, configError("webserver-url must use http or https", nil)
	}
	if parsed.Host == "" {
		return nil, configError("webserver-url host is required", nil)
	}

	parsed.Path = path.Join(parsed.Path, apiBasePath)
	return parsed, nil
}

// Identifiers are plain names; URL escaping happens when the request URL is
// serialized.
func joinCollectionPath(collection string, identifier string) string {
	return collection + "/" + identifier
}

func decodeJSON(body []byte) (any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, remoteError("remote response is not valid JSON", err)
	}
	return payload, nil
}
