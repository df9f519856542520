// Package identity implements the HTTP client for the PlanDrift identity
// API. FetchProfile hides token refresh from callers: an expired or rejected
// access token triggers one silent refresh-and-retry before the session is
// reported as over.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shreyansh232/plandrift/internal/domain"
	"github.com/shreyansh232/plandrift/internal/metrics"
	"github.com/shreyansh232/plandrift/internal/platform/retry"
)

const (
	profilePath = "/api/v1/auth/me"
	refreshPath = "/api/v1/auth/refresh"
	logoutPath  = "/api/v1/auth/logout"

	httpCallTimeout = 10 * time.Second

	// refreshSkew refreshes tokens that are about to expire instead of
	// waiting for the API to reject them.
	refreshSkew = 60 * time.Second
)

var errUnauthorized = errors.New("access token rejected")

// statusError carries a non-2xx response status through the retry classifier.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("identity API returned status %d", e.code)
}

// Client is the production domain.IdentityClient.
type Client struct {
	baseURL string
	store   domain.CredentialStore
	bus     domain.TokenBus
	http    *http.Client
	policy  retry.Policy
}

func NewClient(baseURL string, store domain.CredentialStore, bus domain.TokenBus) *Client {
	return &Client{
		baseURL: baseURL,
		store:   store,
		bus:     bus,
		http:    &http.Client{Timeout: httpCallTimeout},
		policy: retry.Policy{
			MaxAttempts:      3,
			InitialBackoff:   200 * time.Millisecond,
			RateLimitBackoff: 1 * time.Second,
			OnRetry: func(attempt int, err error, backoff time.Duration) {
				slog.Debug("Retrying identity API call", "attempt", attempt, "backoff", backoff, "error", err)
			},
		},
	}
}

// FetchProfile resolves the current user's profile. It refreshes the token
// pair silently when the access token is expired or rejected, publishing a
// tokens-updated event so other observers of the credential see the refresh.
func (c *Client) FetchProfile(ctx context.Context) (*domain.Profile, error) {
	pair, err := c.store.Tokens()
	if err != nil {
		return nil, err
	}

	if !pair.Expiry.IsZero() && time.Now().Add(refreshSkew).After(pair.Expiry) {
		if pair, err = c.refresh(ctx, pair); err != nil {
			metrics.ProfileFetchesTotal.WithLabelValues("refresh_failed").Inc()
			return nil, err
		}
	}

	profile, err := c.fetchProfile(ctx, pair.AccessToken)
	if err == nil {
		metrics.ProfileFetchesTotal.WithLabelValues("ok").Inc()
		return profile, nil
	}
	if !errors.Is(err, errUnauthorized) {
		metrics.ProfileFetchesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	// The access token was rejected; refresh once and retry.
	slog.InfoContext(ctx, "Access token rejected, attempting silent refresh")
	if pair, err = c.refresh(ctx, pair); err != nil {
		metrics.ProfileFetchesTotal.WithLabelValues("refresh_failed").Inc()
		return nil, err
	}

	profile, err = c.fetchProfile(ctx, pair.AccessToken)
	if err != nil {
		metrics.ProfileFetchesTotal.WithLabelValues("error").Inc()
		if errors.Is(err, errUnauthorized) {
			return nil, fmt.Errorf("profile fetch after refresh: %w", domain.ErrSessionRevoked)
		}
		return nil, err
	}

	metrics.ProfileFetchesTotal.WithLabelValues("ok").Inc()
	return profile, nil
}

// Logout performs a best-effort remote invalidation and always clears the
// local credential, so the presence check turns negative regardless of the
// remote outcome.
func (c *Client) Logout(ctx context.Context) error {
	pair, err := c.store.Tokens()
	if errors.Is(err, domain.ErrNoCredential) {
		return nil
	}
	if err != nil {
		return err
	}

	defer func() {
		if clearErr := c.store.Clear(); clearErr != nil {
			slog.WarnContext(ctx, "Failed to clear local credential", "error", clearErr)
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+logoutPath, nil)
	if err != nil {
		return fmt.Errorf("failed to create logout request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return &statusError{code: resp.StatusCode}
	}
	return nil
}

func (c *Client) fetchProfile(ctx context.Context, accessToken string) (*domain.Profile, error) {
	return retry.Do(ctx, c.policy, classifyStatus, func() (*domain.Profile, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+profilePath, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create profile request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("profile request failed: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			// parsed below
		case resp.StatusCode == http.StatusUnauthorized:
			return nil, errUnauthorized
		default:
			return nil, &statusError{code: resp.StatusCode}
		}

		var profile domain.Profile
		if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
			return nil, fmt.Errorf("failed to decode profile response: %w", err)
		}
		return &profile, nil
	})
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

func (c *Client) refresh(ctx context.Context, pair domain.TokenPair) (domain.TokenPair, error) {
	body, err := json.Marshal(map[string]string{"refresh_token": pair.RefreshToken})
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("failed to marshal refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+refreshPath, bytes.NewReader(body))
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.TokenRefreshesTotal.WithLabelValues("error").Inc()
		return domain.TokenPair{}, fmt.Errorf("refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
		metrics.TokenRefreshesTotal.WithLabelValues("revoked").Inc()
		return domain.TokenPair{}, fmt.Errorf("token refresh: %w", domain.ErrSessionRevoked)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.TokenRefreshesTotal.WithLabelValues("error").Inc()
		return domain.TokenPair{}, &statusError{code: resp.StatusCode}
	}

	var result refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		metrics.TokenRefreshesTotal.WithLabelValues("error").Inc()
		return domain.TokenPair{}, fmt.Errorf("failed to decode refresh response: %w", err)
	}

	refreshed := domain.TokenPair{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		Expiry:       time.Now().Add(time.Duration(result.ExpiresIn) * time.Second),
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = pair.RefreshToken
	}

	if err := c.store.Save(refreshed); err != nil {
		metrics.TokenRefreshesTotal.WithLabelValues("error").Inc()
		return domain.TokenPair{}, fmt.Errorf("failed to persist refreshed tokens: %w", err)
	}

	// Fire-and-forget broadcast: whoever else mirrors this credential should
	// re-derive their snapshot.
	if err := c.bus.Publish(ctx); err != nil {
		slog.WarnContext(ctx, "Failed to publish tokens-updated event", "error", err)
	}

	metrics.TokenRefreshesTotal.WithLabelValues("ok").Inc()
	slog.InfoContext(ctx, "Token pair refreshed silently", "expiry", refreshed.Expiry)
	return refreshed, nil
}

// classifyStatus decides whether an identity API failure is worth retrying.
// A rejected token is permanent here; the caller owns the refresh path.
func classifyStatus(err error) retry.Action {
	if errors.Is(err, errUnauthorized) {
		return retry.Stop
	}

	var se *statusError
	if errors.As(err, &se) {
		switch {
		case se.code == http.StatusTooManyRequests:
			return retry.After
		case se.code >= 500:
			return retry.Retry
		default:
			return retry.Stop
		}
	}

	// Network-level failures are transient.
	return retry.Retry
}
