package lark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charlesng35/larkrelay/internal/cache"
	"github.com/charlesng35/larkrelay/pkg/logger"
	"github.com/charlesng35/larkrelay/pkg/metrics"
	"go.uber.org/zap"
)

// TokenCacheKey is the cache key holding the tenant access token.
const TokenCacheKey = "LARK_ACCESS_TOKEN"

// tokenExpiryMargin is subtracted from the issued lifetime so a cached token
// is never used right up to its expiry.
const tokenExpiryMargin = 60 * time.Second

const tokenPath = "/open-apis/auth/v3/tenant_access_token/internal"

// TokenProvider yields a bearer token for open platform calls.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// Credentials identify the self-built app.
type Credentials struct {
	BaseURL   string
	AppID     string
	AppSecret string
}

type tokenResponse struct {
	apiResponse
	TenantAccessToken string `json:"tenant_access_token"`
	Expire            int64  `json:"expire"`
}

// TokenSource fetches tenant access tokens and caches them in a cache.Store.
type TokenSource struct {
	store cache.Store
	creds Credentials
	opts  options
}

// NewTokenSource constructs a TokenSource.
func NewTokenSource(store cache.Store, creds Credentials, opts ...Option) (*TokenSource, error) {
	if store == nil {
		return nil, errors.New("lark: token source requires a cache store")
	}
	if strings.TrimSpace(creds.AppID) == "" || strings.TrimSpace(creds.AppSecret) == "" {
		return nil, errors.New("lark: app id and app secret are required")
	}
	if creds.BaseURL == "" {
		creds.BaseURL = DefaultBaseURL
	}
	creds.BaseURL = strings.TrimRight(creds.BaseURL, "/")

	return &TokenSource{store: store, creds: creds, opts: buildOptions(opts)}, nil
}

// Token returns the cached token or fetches a new one.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	cached, ok, err := s.store.Get(ctx, TokenCacheKey)
	if err != nil {
		logger.Warn("token cache lookup failed", zap.Error(err))
	}
	if ok && len(cached) > 0 {
		return string(cached), nil
	}

	token, ttl, err := s.fetch(ctx)
	metrics.TokenFetches.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		return "", err
	}

	if ttl > 0 {
		if err := s.store.Set(ctx, TokenCacheKey, []byte(token), ttl); err != nil {
			logger.Warn("failed to cache tenant access token", zap.Error(err))
		}
	}
	return token, nil
}

func (s *TokenSource) fetch(ctx context.Context) (string, time.Duration, error) {
	payload := map[string]string{
		"app_id":     s.creds.AppID,
		"app_secret": s.creds.AppSecret,
	}

	resp, raw, err := postJSON(ctx, s.opts.httpClient, s.creds.BaseURL+tokenPath, "", payload)
	if err != nil {
		return "", 0, err
	}
	if err := checkStatus(resp, raw); err != nil {
		return "", 0, err
	}

	var out tokenResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", 0, fmt.Errorf("lark: decode token response: %w", err)
	}
	if out.Code != 0 {
		return "", 0, &APIError{Status: resp.StatusCode, Code: out.Code, Msg: out.Msg}
	}
	if out.TenantAccessToken == "" {
		return "", 0, errors.New("lark: token response missing tenant_access_token")
	}

	return out.TenantAccessToken, time.Duration(out.Expire)*time.Second - tokenExpiryMargin, nil
}
