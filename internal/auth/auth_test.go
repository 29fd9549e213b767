package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"leetsync/internal/store"
)

func TestLogin_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		require.Equal(t, "alice@example.com", creds["email"])
		require.Equal(t, "hunter2", creds["password"])

		fmt.Fprint(w, `{"success":true,"token":"tok-abc","user":{"id":42,"email":"alice@example.com","name":"Alice"}}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zap.NewNop())
	sess, err := client.Login(context.Background(), "alice@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", sess.Token)
	assert.Equal(t, "alice@example.com", sess.Email)
	assert.Equal(t, "Alice", sess.Name)
	assert.Equal(t, "42", sess.UserID)
	assert.False(t, sess.LoginTime.IsZero())
}

func TestLogin_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":false,"message":"bad password"}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zap.NewNop())
	_, err := client.Login(context.Background(), "alice@example.com", "wrong")
	require.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "bad password")
}

func TestLogin_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zap.NewNop())
	_, err := client.Login(context.Background(), "alice@example.com", "hunter2")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRejected)
}

func TestSaveLoadSession(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer st.Close()

	in := &Session{
		Token:     "tok-abc",
		Email:     "alice@example.com",
		Name:      "Alice",
		UserID:    "42",
		LoginTime: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, SaveSession(st, in))

	out, ok, err := LoadSession(st)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in, out)
}

func TestLoadSession_Empty(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer st.Close()

	_, ok, err := LoadSession(st)
	require.NoError(t, err)
	assert.False(t, ok)
}

// makeJWT builds an unsigned three-part token with the given exp claim.
func makeJWT(t *testing.T, exp int64) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none"}`))
	payload, err := json.Marshal(map[string]int64{"exp": exp})
	require.NoError(t, err)
	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + ".sig"
}

func TestTokenValidAt(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	assert.True(t, TokenValidAt(makeJWT(t, now.Add(time.Hour).Unix()), now))
	assert.False(t, TokenValidAt(makeJWT(t, now.Add(-time.Hour).Unix()), now))
	assert.False(t, TokenValidAt("not-a-jwt", now))
	assert.False(t, TokenValidAt("a.b.c", now))
	assert.False(t, TokenValidAt("", now))
}
