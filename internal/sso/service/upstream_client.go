package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"time"

	apperrors "github.com/allisson/vaultadmin/internal/errors"
	ssoDomain "github.com/allisson/vaultadmin/internal/sso/domain"
)

// maxUpstreamBody caps how much of the upstream response is read.
const maxUpstreamBody = 1 << 20

// UpstreamClient performs the server-to-server login handshake with the
// external system.
type UpstreamClient interface {
	// Login presents the derived credential proof and returns the access
	// token granted by the external system.
	Login(ctx context.Context, username, proof, siteName string) (string, error)
}

// HTTPUpstreamClient implements UpstreamClient over HTTP. Network failures
// are reported as ErrUpstreamUnavailable (the user may retry the flow);
// malformed responses as ErrUpstreamInvalid (fatal for the attempt).
type HTTPUpstreamClient struct {
	loginURL string
	client   *http.Client
}

type upstreamLoginRequest struct {
	Username string `json:"username"`
	Proof    string `json:"proof"`
	SiteName string `json:"site_name"`
}

type upstreamLoginResponse struct {
	AccessToken string `json:"access_token"`
}

// Login posts the handshake and extracts the access token.
func (h *HTTPUpstreamClient) Login(ctx context.Context, username, proof, siteName string) (string, error) {
	payload, err := json.Marshal(upstreamLoginRequest{
		Username: username,
		Proof:    proof,
		SiteName: siteName,
	})
	if err != nil {
		return "", apperrors.Wrap(err, "failed to marshal upstream login request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.loginURL, bytes.NewReader(payload))
	if err != nil {
		return "", apperrors.Wrap(err, "failed to build upstream login request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", apperrors.Wrap(ssoDomain.ErrUpstreamUnavailable, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		return "", apperrors.Wrap(ssoDomain.ErrUpstreamUnavailable, err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apperrors.Wrap(ssoDomain.ErrUpstreamInvalid, resp.Status)
	}

	var loginResp upstreamLoginResponse
	if err := json.Unmarshal(body, &loginResp); err != nil {
		return "", apperrors.Wrap(ssoDomain.ErrUpstreamInvalid, err.Error())
	}
	if loginResp.AccessToken == "" {
		return "", apperrors.Wrap(ssoDomain.ErrUpstreamInvalid, "missing access token")
	}

	return loginResp.AccessToken, nil
}

// NewHTTPUpstreamClient creates an UpstreamClient with a dedicated connect
// timeout and an overall request timeout.
func NewHTTPUpstreamClient(loginURL string, connectTimeout, totalTimeout time.Duration) *HTTPUpstreamClient {
	dialer := &net.Dialer{Timeout: connectTimeout}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: connectTimeout,
	}
	return &HTTPUpstreamClient{
		loginURL: loginURL,
		client: &http.Client{
			Transport: transport,
			Timeout:   totalTimeout,
		},
	}
}
