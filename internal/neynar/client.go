// Package neynar fetches Farcaster identity metrics from the Neynar API.
package neynar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"frame-weaver/internal/domain"
)

const (
	DefaultBaseURL = "https://api.neynar.com"
	defaultTimeout = 10 * time.Second
)

var (
	// ErrNotConfigured is returned by New when no API key is set.
	ErrNotConfigured = errors.New("neynar api key not configured")
	// ErrIdentityNotFound means the API knows no user with the requested fid.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrUpstream wraps transport and non-2xx failures.
	ErrUpstream = errors.New("neynar upstream error")
)

type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client calls the Neynar v2 API.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func New(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse neynar base url: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{apiKey: apiKey, baseURL: baseURL, http: httpClient}, nil
}

type bulkUsersResponse struct {
	Users []apiUser `json:"users"`
}

type apiUser struct {
	FID            int64    `json:"fid"`
	Username       string   `json:"username"`
	DisplayName    string   `json:"display_name"`
	PfpURL         string   `json:"pfp_url"`
	FollowerCount  int64    `json:"follower_count"`
	FollowingCount int64    `json:"following_count"`
	Score          *float64 `json:"score"`
	Experimental   struct {
		NeynarUserScore *float64 `json:"neynar_user_score"`
	} `json:"experimental"`
}

// Identity returns the raw metrics for fid.
func (c *Client) Identity(ctx context.Context, fid int64) (domain.Identity, error) {
	endpoint := fmt.Sprintf("%s/v2/farcaster/user/bulk?fids=%s", c.baseURL, strconv.FormatInt(fid, 10))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("build neynar request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api_key", c.apiKey)
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.Identity{}, ErrIdentityNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Identity{}, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload bulkUsersResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Identity{}, fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	if len(payload.Users) == 0 {
		return domain.Identity{}, ErrIdentityNotFound
	}

	u := payload.Users[0]
	return domain.Identity{
		ID:                 u.FID,
		Username:           u.Username,
		DisplayName:        u.DisplayName,
		AvatarURL:          u.PfpURL,
		RawReputationScore: u.reputation(),
		FollowerCount:      u.FollowerCount,
		FollowingCount:     u.FollowingCount,
	}, nil
}

func (u apiUser) reputation() float64 {
	if u.Experimental.NeynarUserScore != nil {
		return *u.Experimental.NeynarUserScore
	}
	if u.Score != nil {
		return *u.Score
	}
	return 0
}
