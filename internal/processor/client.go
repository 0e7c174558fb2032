package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Service is the set of calls ferry makes against the processing service.
// It is implemented by *Client and can be faked in tests.
type Service interface {
	Upload(ctx context.Context, path string) (UploadResponse, error)
	Status(ctx context.Context, jobID string) (StatusResponse, error)
	Head(ctx context.Context, downloadURL string) (bool, error)
	Download(ctx context.Context, downloadURL string, dst io.Writer) (Artifact, error)
}

// Ensure Client implements Service at compile time.
var _ Service = (*Client)(nil)

// ErrNoDownloadURL is returned when a call needs a download reference that is empty.
var ErrNoDownloadURL = errors.New("download url is empty")

// Client talks to the processing service over HTTP.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

const (
	defaultServerURL = "http://localhost:8000"
	defaultUserAgent = "ferry/0.1"
	defaultTimeout   = 30 * time.Second
	uploadField      = "file"
)

// Option customises a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// NewClient builds a Client for the service rooted at serverURL.
func NewClient(serverURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(serverURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: base,
		http: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Upload sends the file at path as the multipart field "file" to POST /upload.
func (c *Client) Upload(ctx context.Context, filePath string) (UploadResponse, error) {
	if c == nil {
		return UploadResponse{}, fmt.Errorf("client is nil")
	}
	file, err := os.Open(filePath)
	if err != nil {
		return UploadResponse{}, fmt.Errorf("open upload: %w", err)
	}

	contentType := "application/octet-stream"
	if mt, err := mimetype.DetectFile(filePath); err == nil && mt != nil {
		contentType = mt.String()
	}

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		defer file.Close()
		part, err := form.CreatePart(filePartHeader(filepath.Base(filePath), contentType))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(form.Close())
	}()

	req, err := c.newRequest(ctx, http.MethodPost, &url.URL{Path: "/upload"}, pr)
	if err != nil {
		_ = pr.Close()
		return UploadResponse{}, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var payload UploadResponse
	if err := c.do(req, &payload); err != nil {
		return UploadResponse{}, err
	}
	return payload, nil
}

// Status fetches GET /status/{jobID}.
func (c *Client) Status(ctx context.Context, jobID string) (StatusResponse, error) {
	if c == nil {
		return StatusResponse{}, fmt.Errorf("client is nil")
	}
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return StatusResponse{}, fmt.Errorf("job id required")
	}
	rel := &url.URL{Path: "/status/" + jobID}
	req, err := c.newRequest(ctx, http.MethodGet, rel, nil)
	if err != nil {
		return StatusResponse{}, err
	}
	var payload StatusResponse
	if err := c.do(req, &payload); err != nil {
		return StatusResponse{}, err
	}
	return payload, nil
}

// Head issues HEAD against the download URL and reports whether it answered
// with a 2xx status. Only transport failures are returned as errors.
func (c *Client) Head(ctx context.Context, downloadURL string) (bool, error) {
	if c == nil {
		return false, fmt.Errorf("client is nil")
	}
	target, err := c.resolve(downloadURL)
	if err != nil {
		return false, err
	}
	req, err := c.newRequest(ctx, http.MethodHead, target, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("execute request: %w", err)
	}
	_ = resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}

// Download streams the artifact behind downloadURL into dst.
func (c *Client) Download(ctx context.Context, downloadURL string, dst io.Writer) (Artifact, error) {
	if c == nil {
		return Artifact{}, fmt.Errorf("client is nil")
	}
	target, err := c.resolve(downloadURL)
	if err != nil {
		return Artifact{}, err
	}
	req, err := c.newRequest(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Artifact{}, err
	}
	req.Header.Set("Accept", "*/*")

	resp, err := c.http.Do(req)
	if err != nil {
		return Artifact{}, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return Artifact{}, fmt.Errorf("download %s returned status %d", target.Path, resp.StatusCode)
	}
	n, err := io.Copy(dst, resp.Body)
	if err != nil {
		return Artifact{}, fmt.Errorf("read artifact: %w", err)
	}
	return Artifact{
		Filename:    dispositionFilename(resp.Header.Get("Content-Disposition")),
		ContentType: resp.Header.Get("Content-Type"),
		Bytes:       n,
	}, nil
}

func (c *Client) newRequest(ctx context.Context, method string, target *url.URL, body io.Reader) (*http.Request, error) {
	reqURL := c.baseURL.ResolveReference(target)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("api %s returned status %d", req.URL.Path, resp.StatusCode)
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) resolve(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrNoDownloadURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse download url %q: %w", raw, err)
	}
	return c.baseURL.ResolveReference(u), nil
}

// JobIDFromDownloadURL extracts the remote job id, the final path segment of
// the download reference.
func JobIDFromDownloadURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	p = strings.TrimRight(p, "/")
	if p == "" {
		return ""
	}
	id := path.Base(p)
	if id == "." || id == "/" {
		return ""
	}
	if unescaped, err := url.PathUnescape(id); err == nil {
		return unescaped
	}
	return id
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func filePartHeader(filename, contentType string) textproto.MIMEHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"; filename="%s"`, uploadField, quoteEscaper.Replace(filename)))
	h.Set("Content-Type", contentType)
	return h
}

func dispositionFilename(header string) string {
	if strings.TrimSpace(header) == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	name := strings.TrimSpace(params["filename"])
	if name == "" {
		return ""
	}
	return filepath.Base(name)
}

func parseBaseURL(serverURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(serverURL)
	if trimmed == "" {
		trimmed = defaultServerURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse server_url %q: %w", serverURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse server_url %q: missing host", serverURL)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
