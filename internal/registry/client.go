package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/oppnys/oppnys/internal/branding"
)

// Registry base URLs. The mirror is the default; the origin registry is
// selectable through configuration.
const (
	MirrorRegistry = "https://registry.npmmirror.com"
	OriginRegistry = "https://registry.npmjs.org"
)

// DefaultTimeout bounds every registry request unless overridden.
const DefaultTimeout = 5 * time.Second

// ErrPackageNotFound is returned when the registry answers 404.
var ErrPackageNotFound = errors.New("package not found in registry")

// DefaultURL returns the origin registry when origin is true, else the mirror.
func DefaultURL(origin bool) string {
	if origin {
		return OriginRegistry
	}
	return MirrorRegistry
}

// Client is an npm-protocol registry client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithTimeout sets the request timeout of the client's HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.httpClient = &http.Client{Timeout: d, Transport: cl.httpClient.Transport}
		}
	}
}

// NewClient creates a Client for the registry at baseURL. An empty baseURL
// selects the mirror.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = MirrorRegistry
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the registry base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// PackageURL returns the document URL for name. Scoped names keep their "@"
// and have the separating slash escaped, as the npm registry expects.
func (c *Client) PackageURL(name string) string {
	return c.baseURL + "/" + url.PathEscape(name)
}

// Packument fetches the registry document for name.
func (c *Client) Packument(ctx context.Context, name string) (*Packument, error) {
	if name == "" {
		return nil, fmt.Errorf("package name is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.PackageURL(name), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", branding.CLIName()+"-dispatcher")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", name, ErrPackageNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry returned status %d for %s", resp.StatusCode, name)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var doc Packument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parsing registry document for %s: %w", name, err)
	}
	return &doc, nil
}

// Versions returns the published version strings of name, sorted
// lexically for determinism. Only the key set of "versions" is used.
func (c *Client) Versions(ctx context.Context, name string) ([]string, error) {
	doc, err := c.Packument(ctx, name)
	if err != nil {
		return nil, err
	}
	versions := make([]string, 0, len(doc.Versions))
	for v := range doc.Versions {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return versions, nil
}
