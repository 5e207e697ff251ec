package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ssoDomain "github.com/allisson/vaultadmin/internal/sso/domain"
)

func TestHTTPUpstreamClient_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_Login", func(t *testing.T) {
		var received upstreamLoginRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "granted-token"})
		}))
		defer server.Close()

		client := NewHTTPUpstreamClient(server.URL, time.Second, 5*time.Second)
		accessToken, err := client.Login(ctx, "octocat", "proof-hex", "github")

		require.NoError(t, err)
		assert.Equal(t, "granted-token", accessToken)
		assert.Equal(t, "octocat", received.Username)
		assert.Equal(t, "proof-hex", received.Proof)
		assert.Equal(t, "github", received.SiteName)
	})

	t.Run("Error_NetworkFailure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		client := NewHTTPUpstreamClient(server.URL, time.Second, 5*time.Second)
		_, err := client.Login(ctx, "octocat", "proof-hex", "github")

		assert.ErrorIs(t, err, ssoDomain.ErrUpstreamUnavailable)
	})

	t.Run("Error_Non2xxStatus", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		client := NewHTTPUpstreamClient(server.URL, time.Second, 5*time.Second)
		_, err := client.Login(ctx, "octocat", "proof-hex", "github")

		assert.ErrorIs(t, err, ssoDomain.ErrUpstreamInvalid)
	})

	t.Run("Error_MalformedBody", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}))
		defer server.Close()

		client := NewHTTPUpstreamClient(server.URL, time.Second, 5*time.Second)
		_, err := client.Login(ctx, "octocat", "proof-hex", "github")

		assert.ErrorIs(t, err, ssoDomain.ErrUpstreamInvalid)
	})

	t.Run("Error_MissingAccessToken", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{"access_token": ""})
		}))
		defer server.Close()

		client := NewHTTPUpstreamClient(server.URL, time.Second, 5*time.Second)
		_, err := client.Login(ctx, "octocat", "proof-hex", "github")

		assert.ErrorIs(t, err, ssoDomain.ErrUpstreamInvalid)
	})

	t.Run("Error_Timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		client := NewHTTPUpstreamClient(server.URL, time.Second, 50*time.Millisecond)
		_, err := client.Login(ctx, "octocat", "proof-hex", "github")

		assert.ErrorIs(t, err, ssoDomain.ErrUpstreamUnavailable)
	})
}
