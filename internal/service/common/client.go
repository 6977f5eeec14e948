//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oshokin/mlops-launch/internal/config"
)

// Client wraps HTTP calls to the MLOps API with auth, timeouts and envelope decoding.
type Client struct {
	// baseURL is the API root every path is resolved against.
	baseURL *url.URL
	// httpClient performs the requests.
	httpClient *http.Client
	// userAgent is sent with every request.
	userAgent string

	// callTimeout is the default timeout for individual calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithActor identifies the caller in the User-Agent header.
func WithActor(actor *Actor) Option {
	return func(c *Client) {
		c.userAgent = actor.UserAgent()
	}
}

// FilePart is a file attached to a multipart request.
type FilePart struct {
	Field    string
	Name     string
	Contents io.Reader
}

// APIError is a non-successful answer from the MLOps API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

// Error implements error.
func (e *APIError) Error() string {
	return fmt.Sprintf("mlops api: status %d, code %q: %s", e.StatusCode, e.Code, e.Message)
}

// SuccessCode marks a successful response envelope.
const SuccessCode = "SUCCESS"

const maxErrorBody = 4 << 10

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errAPIKeyRequired is returned when a call is made without an API key.
	errAPIKeyRequired = errors.New("api key must be provided")
)

// envelope is the common shape of MLOps API responses.
type envelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// NewClient creates a client for the API rooted at address.
func NewClient(address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	baseURL, err := url.Parse(strings.TrimRight(address, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse api address: %w", err)
	}

	client := &Client{
		baseURL:     baseURL,
		httpClient:  http.DefaultClient,
		userAgent:   (*Actor)(nil).UserAgent(),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// PostJSON sends body as JSON to path and decodes the envelope data into out.
// out may be nil when the data is not needed.
func (c *Client) PostJSON(ctx context.Context, path, apiKey string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	return c.do(ctx, path, apiKey, "application/json", bytes.NewReader(payload), out)
}

// PostMultipart sends fields and file as multipart/form-data to path.
func (c *Client) PostMultipart(
	ctx context.Context,
	path, apiKey string,
	fields map[string]string,
	file *FilePart,
	out any,
) error {
	var (
		buffer bytes.Buffer
		writer = multipart.NewWriter(&buffer)
	)

	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return fmt.Errorf("write field %s: %w", name, err)
		}
	}

	if file != nil {
		part, err := writer.CreateFormFile(file.Field, file.Name)
		if err != nil {
			return fmt.Errorf("create file part: %w", err)
		}

		if _, err = io.Copy(part, file.Contents); err != nil {
			return fmt.Errorf("write file part: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("close multipart body: %w", err)
	}

	return c.do(ctx, path, apiKey, writer.FormDataContentType(), &buffer, out)
}

func (c *Client) do(ctx context.Context, path, apiKey, contentType string, body io.Reader, out any) error {
	if apiKey == "" {
		return errAPIKeyRequired
	}

	endpoint := c.baseURL.ResolveReference(&url.URL{Path: strings.TrimLeft(path, "/")})

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	request, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint.String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	request.Header.Set("Content-Type", contentType)
	request.Header.Set("Accept", "application/json")
	request.Header.Set("Authorization", "Bearer "+apiKey)
	request.Header.Set("User-Agent", c.userAgent)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("post %s: %w", endpoint.Path, err)
	}

	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		text, _ := io.ReadAll(io.LimitReader(response.Body, maxErrorBody))

		return &APIError{
			StatusCode: response.StatusCode,
			Message:    strings.TrimSpace(string(text)),
		}
	}

	var reply envelope
	if err = json.NewDecoder(response.Body).Decode(&reply); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if reply.Code != SuccessCode {
		return &APIError{
			StatusCode: response.StatusCode,
			Code:       reply.Code,
			Message:    reply.Message,
		}
	}

	if out == nil || len(reply.Data) == 0 || string(reply.Data) == "null" {
		return nil
	}

	if err = json.Unmarshal(reply.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}

	return nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
