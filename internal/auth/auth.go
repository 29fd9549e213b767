// Package auth handles the backend login flow and the stored session.
package auth

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"leetsync/internal/store"
)

// ErrRejected means the backend answered but refused the credentials.
var ErrRejected = errors.New("authentication rejected")

// Session is the authenticated state persisted after a successful login.
type Session struct {
	Token     string
	Email     string
	Name      string
	UserID    string
	LoginTime time.Time
}

// Client talks to the backend's authentication endpoint.
type Client struct {
	loginURL string
	httpc    *http.Client
	log      *zap.Logger
}

// NewClient creates an auth client for the given login endpoint.
func NewClient(loginURL string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		loginURL: loginURL,
		httpc:    &http.Client{Timeout: 30 * time.Second},
		log:      log,
	}
}

type loginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	Message string `json:"message"`
	User    struct {
		ID    json.Number `json:"id"`
		Email string      `json:"email"`
		Name  string      `json:"name"`
	} `json:"user"`
}

// Login authenticates against the backend and returns the session on success.
// A well-formed refusal returns ErrRejected with the backend's message.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.loginURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("login failed: HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	var decoded loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}

	if !decoded.Success || decoded.Token == "" {
		if decoded.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrRejected, decoded.Message)
		}
		return nil, ErrRejected
	}

	c.log.Info("login succeeded", zap.String("email", decoded.User.Email))
	return &Session{
		Token:     decoded.Token,
		Email:     decoded.User.Email,
		Name:      decoded.User.Name,
		UserID:    decoded.User.ID.String(),
		LoginTime: time.Now().UTC(),
	}, nil
}

// SaveSession persists the session fields into the state store.
func SaveSession(st *store.Store, sess *Session) error {
	pairs := map[string]string{
		store.KeyAuthToken: sess.Token,
		store.KeyUserEmail: sess.Email,
		store.KeyUserName:  sess.Name,
		store.KeyUserID:    sess.UserID,
		store.KeyLoginTime: sess.LoginTime.Format(time.RFC3339),
	}
	for key, value := range pairs {
		if err := st.Set(key, value); err != nil {
			return err
		}
	}
	return nil
}

// LoadSession reads the stored session; ok is false when no token is stored.
func LoadSession(st *store.Store) (*Session, bool, error) {
	token, err := st.Get(store.KeyAuthToken)
	if err != nil {
		return nil, false, err
	}
	if token == "" {
		return nil, false, nil
	}

	sess := &Session{Token: token}
	sess.Email, _ = st.Get(store.KeyUserEmail)
	sess.Name, _ = st.Get(store.KeyUserName)
	sess.UserID, _ = st.Get(store.KeyUserID)
	if raw, err := st.Get(store.KeyLoginTime); err == nil && raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			sess.LoginTime = t
		}
	}
	return sess, true, nil
}

// TokenValid reports whether token is a three-part JWT whose exp claim lies in
// the future. Malformed tokens are treated as expired.
func TokenValid(token string) bool {
	return TokenValidAt(token, time.Now())
}

// TokenValidAt is TokenValid against an explicit clock.
func TokenValidAt(token string, now time.Time) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		// Some issuers pad their segments.
		payload, err = base64.URLEncoding.DecodeString(parts[1])
		if err != nil {
			return false
		}
	}

	var claims struct {
		Exp int64 `json:"exp"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return false
	}
	return claims.Exp > now.Unix()
}
