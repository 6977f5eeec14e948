//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestNewClient_ValidatesAddress verifies that NewClient rejects empty addresses.
func TestNewClient_ValidatesAddress(t *testing.T) {
	t.Parallel()

	c, err := NewClient("")
	require.Error(t, err)
	require.Nil(t, c)
}

// TestClient_callContext checks timeout vs cancel-only behavior of callContext.
func TestClient_callContext(t *testing.T) {
	t.Parallel()

	c := &Client{
		callTimeout: 0,
	}

	ctx, cancel := c.callContext(context.Background())
	cancel()

	require.NotNil(t, ctx)

	c.callTimeout = 10 * time.Millisecond

	ctx, cancel = c.callContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 30*time.Millisecond)
}

// TestClient_PostJSON sends auth and body and decodes the envelope data.
func TestClient_PostJSON(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/root/api/v1/echo", r.URL.Path)
		require.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.True(t, strings.HasPrefix(r.Header.Get("User-Agent"), "mlops-launch/"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		_, _ = io.WriteString(w, `{"code":"SUCCESS","message":"ok","data":{"echo":"`+body["say"]+`"}}`)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL + "/root/")
	require.NoError(t, err)

	var out struct {
		Echo string `json:"echo"`
	}

	require.NoError(t, client.PostJSON(context.Background(), "/api/v1/echo", "key-1", map[string]string{"say": "hi"}, &out))
	require.Equal(t, "hi", out.Echo)

	require.NoError(t, client.PostJSON(context.Background(), "api/v1/echo", "key-1", map[string]string{}, nil))
}

// TestClient_Failures classifies non-success answers.
func TestClient_Failures(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/denied":
			http.Error(w, "no access", http.StatusForbidden)
		case "/failed":
			_, _ = io.WriteString(w, `{"code":"FAILURE","message":"model is broken"}`)
		default:
			_, _ = io.WriteString(w, `not json`)
		}
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, WithCallTimeout(time.Second), WithHTTPClient(server.Client()))
	require.NoError(t, err)

	ctx := context.Background()

	err = client.PostJSON(ctx, "denied", "key", nil, nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	require.Equal(t, "no access", apiErr.Message)

	err = client.PostJSON(ctx, "failed", "key", nil, nil)
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "FAILURE", apiErr.Code)
	require.Equal(t, "model is broken", apiErr.Message)

	require.Error(t, client.PostJSON(ctx, "garbage", "key", nil, nil))
	require.ErrorIs(t, client.PostJSON(ctx, "failed", "", nil, nil), errAPIKeyRequired)
}

// TestClient_PostMultipart uploads fields and a file part.
func TestClient_PostMultipart(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "m1", r.FormValue("model_name"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)

		defer file.Close()

		contents, err := io.ReadAll(file)
		require.NoError(t, err)
		require.Equal(t, "m1.zip", header.Filename)
		require.Equal(t, "zip-bytes", string(contents))

		_, _ = io.WriteString(w, `{"code":"SUCCESS","data":{"size":9}}`)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, WithActor(&Actor{Hostname: "box", Username: "dev"}))
	require.NoError(t, err)

	var out struct {
		Size int `json:"size"`
	}

	err = client.PostMultipart(context.Background(), "upload", "key",
		map[string]string{"model_name": "m1"},
		&FilePart{Field: "file", Name: "m1.zip", Contents: strings.NewReader("zip-bytes")},
		&out)
	require.NoError(t, err)
	require.Equal(t, 9, out.Size)
}
