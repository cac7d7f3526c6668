package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/rryowa/shopapi/internal/util"
)

func newFakeGoogle(t *testing.T, userInfoStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(userInfoStatus)
		_, _ = w.Write([]byte(`{"email":"g@example.com","name":"G User","email_verified":true}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestGoogle(srv *httptest.Server) *GoogleOAuth {
	cfg := &util.OAuthConfig{ClientID: "id", ClientSecret: "secret", RedirectURL: "http://localhost/api/auth/google"}
	endpoint := oauth2.Endpoint{
		AuthURL:   srv.URL + "/auth",
		TokenURL:  srv.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	return newGoogleOAuth(cfg, endpoint, srv.URL+"/userinfo")
}

func TestGoogleOAuth_Exchange(t *testing.T) {
	ctx := context.Background()

	t.Run("reads the identity", func(t *testing.T) {
		g := newTestGoogle(newFakeGoogle(t, http.StatusOK))
		identity, err := g.Exchange(ctx, "good-code")
		require.NoError(t, err)
		assert.Equal(t, "g@example.com", identity.Email)
		assert.Equal(t, "G User", identity.Name)
		assert.True(t, identity.EmailVerified)
	})

	t.Run("bad code", func(t *testing.T) {
		g := newTestGoogle(newFakeGoogle(t, http.StatusOK))
		_, err := g.Exchange(ctx, "bad-code")
		assert.Error(t, err)
	})

	t.Run("userinfo failure", func(t *testing.T) {
		g := newTestGoogle(newFakeGoogle(t, http.StatusInternalServerError))
		_, err := g.Exchange(ctx, "good-code")
		assert.Error(t, err)
	})
}

func TestGoogleOAuth_AuthCodeURL(t *testing.T) {
	g := newTestGoogle(newFakeGoogle(t, http.StatusOK))
	assert.True(t, g.Enabled())

	u, err := url.Parse(g.AuthCodeURL("state-123"))
	require.NoError(t, err)
	assert.Equal(t, "state-123", u.Query().Get("state"))
	assert.Equal(t, "id", u.Query().Get("client_id"))

	assert.False(t, NewGoogleOAuth(&util.OAuthConfig{}).Enabled())
}
