// Package identity signs users in with email and password against the
// Firebase Authentication REST API and hands back the ID token the
// backend's /auth endpoint expects.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrTooManyAttempts    = errors.New("too many sign-in attempts, try again later")
	ErrUserDisabled       = errors.New("user account disabled")
)

type Session struct {
	IDToken      string
	RefreshToken string
	UserID       string
	Email        string
	DisplayName  string
	ExpiresIn    time.Duration
}

type Client struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

func New(endpoint, apiKey string) *Client {
	return &Client{Endpoint: strings.TrimRight(endpoint, "/"), APIKey: apiKey, Client: &http.Client{Timeout: 5 * time.Second}}
}

func (c *Client) SignIn(ctx context.Context, email, password string) (Session, error) {
	if c.APIKey == "" {
		return Session{}, errors.New("identity: api key not configured")
	}
	body, err := json.Marshal(map[string]any{
		"email":             strings.TrimSpace(email),
		"password":          password,
		"returnSecureToken": true,
	})
	if err != nil {
		return Session{}, err
	}
	u := c.Endpoint + "/v1/accounts:signInWithPassword?key=" + url.QueryEscape(c.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return Session{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.Client.Do(req)
	if err != nil {
		return Session{}, fmt.Errorf("identity sign-in: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error struct {
				Code    int    `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
			return Session{}, fmt.Errorf("identity sign-in: http status %d", resp.StatusCode)
		}
		return Session{}, mapError(e.Error.Message)
	}

	var out struct {
		IDToken      string `json:"idToken"`
		RefreshToken string `json:"refreshToken"`
		ExpiresIn    string `json:"expiresIn"`
		LocalID      string `json:"localId"`
		Email        string `json:"email"`
		DisplayName  string `json:"displayName"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Session{}, fmt.Errorf("identity sign-in decode: %w", err)
	}
	if out.IDToken == "" {
		return Session{}, errors.New("identity sign-in: empty id token")
	}
	s := Session{
		IDToken:      out.IDToken,
		RefreshToken: out.RefreshToken,
		UserID:       out.LocalID,
		Email:        out.Email,
		DisplayName:  out.DisplayName,
	}
	if secs, err := strconv.Atoi(out.ExpiresIn); err == nil {
		s.ExpiresIn = time.Duration(secs) * time.Second
	}
	return s, nil
}

// mapError translates the provider's error codes. Codes may carry a
// trailing explanation after " : ".
func mapError(message string) error {
	code, _, _ := strings.Cut(message, " : ")
	switch strings.TrimSpace(code) {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "INVALID_EMAIL", "MISSING_PASSWORD":
		return ErrInvalidCredentials
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		return ErrTooManyAttempts
	case "USER_DISABLED":
		return ErrUserDisabled
	}
	return fmt.Errorf("identity sign-in: %s", message)
}
