package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Verifier resolves the raw Authorization header of a request to the id of
// the user it belongs to.
type Verifier interface {
	Verify(ctx context.Context, authorization string) (string, error)
}

var (
	ErrMissingToken = errors.New("Token is required")
	ErrInvalidToken = errors.New("Invalid or expired token")
)

// UpstreamError carries a failed identity lookup whose status and body are
// relayed to the client unchanged.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("identity service responded %d: %s", e.Status, e.Body)
}

const maxIdentityBody = 1 << 20

// IdentityClient verifies tokens against GET {baseURL}/users/me.
type IdentityClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewIdentityClient(baseURL string, timeout time.Duration) *IdentityClient {
	return &IdentityClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *IdentityClient) Verify(ctx context.Context, authorization string) (string, error) {
	if authorization == "" {
		return "", ErrMissingToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/me", nil)
	if err != nil {
		return "", fmt.Errorf("building identity request: %w", err)
	}
	req.Header.Set("Authorization", authorization)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &UpstreamError{
			Status: http.StatusServiceUnavailable,
			Body:   "identity service unavailable",
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxIdentityBody))
	if err != nil {
		return "", &UpstreamError{
			Status: http.StatusBadGateway,
			Body:   "failed to read identity service response",
		}
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return "", ErrInvalidToken
	default:
		return "", &UpstreamError{Status: resp.StatusCode, Body: string(body)}
	}

	var user struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(body, &user); err != nil {
		return "", &UpstreamError{
			Status: http.StatusBadGateway,
			Body:   "invalid identity service response",
		}
	}

	userID := decodeUserID(user.ID)
	if userID == "" {
		return "", &UpstreamError{
			Status: http.StatusBadGateway,
			Body:   "identity service response has no user id",
		}
	}

	return userID, nil
}

// decodeUserID accepts both string and numeric ids.
func decodeUserID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
