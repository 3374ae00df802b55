package neynar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(Config{APIKey: "  "})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestIdentity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/farcaster/user/bulk", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("api_key"))
		switch r.URL.Query().Get("fids") {
		case "3":
			w.Write([]byte(`{"users":[{"fid":3,"username":"dwr","display_name":"Dan","pfp_url":"https://img/d.png",
				"follower_count":500,"following_count":100,"experimental":{"neynar_user_score":0.97}}]}`))
		case "4":
			w.Write([]byte(`{"users":[{"fid":4,"username":"v","follower_count":10,"score":0.5}]}`))
		case "5":
			w.Write([]byte(`{"users":[]}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`upstream down`))
		}
	}))
	defer srv.Close()

	client, err := New(Config{APIKey: "secret", BaseURL: srv.URL + "/"})
	require.NoError(t, err)
	ctx := context.Background()

	identity, err := client.Identity(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), identity.ID)
	assert.Equal(t, "dwr", identity.Username)
	assert.Equal(t, "Dan", identity.DisplayName)
	assert.Equal(t, "https://img/d.png", identity.AvatarURL)
	assert.Equal(t, 0.97, identity.RawReputationScore)
	assert.Equal(t, int64(500), identity.FollowerCount)
	assert.Equal(t, int64(100), identity.FollowingCount)

	identity, err = client.Identity(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 0.5, identity.RawReputationScore)

	_, err = client.Identity(ctx, 5)
	assert.ErrorIs(t, err, ErrIdentityNotFound)

	_, err = client.Identity(ctx, 6)
	assert.ErrorIs(t, err, ErrUpstream)
}
