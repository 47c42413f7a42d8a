// Package auth is the login boundary against the Alsito backend.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"AlsitoQC/internal/models"
	"AlsitoQC/internal/session"
	"AlsitoQC/pkg/errors"
	"AlsitoQC/pkg/i18n"
)

// LoginPath is the backend login endpoint.
const LoginPath = "/api/auth/user/login/"

// DefaultTimeout bounds the whole login request.
const DefaultTimeout = 5 * time.Second

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is the decoded success body.
type LoginResult struct {
	Token   string         `json:"token"`
	Profile models.Profile `json:"profile"`
}

// Observer receives one call per login attempt.
type Observer interface {
	ObserveLogin(outcome string, d time.Duration)
}

// Client performs the login call and persists the session on success.
type Client struct {
	baseURL  string
	http     *http.Client
	store    *session.Store
	messages i18n.Messages
	logger   *zap.Logger
	observer Observer
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

func WithMessages(m i18n.Messages) Option { return func(c *Client) { c.messages = m } }

func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.logger = l } }

func WithObserver(o Observer) Option { return func(c *Client) { c.observer = o } }

// WithTimeout replaces the request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

func NewClient(baseURL string, store *session.Store, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		store:   store,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.messages == nil {
		c.messages = i18n.Default().For("en")
	}
	return c
}

// Login authenticates once. Failures come back as *errors.Error with one
// of the login codes; the session is only written on success. No retry.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	start := time.Now()
	res, err := c.login(ctx, email, password)
	if c.observer != nil {
		c.observer.ObserveLogin(Outcome(err), time.Since(start))
	}
	return res, err
}

func (c *Client) login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, c.fail(errors.CodeMissingCredentials, i18n.LoginMissingCredentials, nil)
	}

	body, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return nil, c.unexpected(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+LoginPath, bytes.NewReader(body))
	if err != nil {
		return nil, c.unexpected(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("login request failed", zap.Error(err))
		return nil, c.fail(errors.CodeConnectionFailed, i18n.LoginConnectionFailed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		return nil, c.fail(errors.CodeInvalidCredentials, i18n.LoginInvalidCredentials, nil)
	case resp.StatusCode == http.StatusForbidden:
		return nil, c.fail(errors.CodeAccountNotApproved, i18n.LoginAccountNotApproved, nil)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, c.unexpected(fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))))
	}

	var out LoginResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, c.unexpected(fmt.Errorf("decode response: %w", err))
	}
	if out.Token == "" {
		return nil, c.unexpected(fmt.Errorf("response has no token"))
	}
	if c.store != nil {
		if err := c.store.Save(ctx, out.Token, out.Profile); err != nil {
			c.logger.Error("persist session failed", zap.Error(err))
			return nil, c.unexpected(err)
		}
	}
	c.logger.Info("login succeeded", zap.Int("profile_id", out.Profile.ID))
	return &out, nil
}

func (c *Client) fail(code int, id string, cause error) *errors.Error {
	msg := c.messages.Message(id, nil)
	if cause == nil {
		return errors.WithCode(code, msg)
	}
	return errors.WrapCode(cause, code, msg)
}

// unexpected keeps the underlying message visible to the caller.
func (c *Client) unexpected(cause error) *errors.Error {
	msg := cause.Error()
	if msg == "" {
		msg = c.messages.Message(i18n.LoginUnexpected, nil)
	}
	return errors.WrapCode(cause, errors.CodeUnexpected, msg)
}

// Outcome labels err for metrics.
func Outcome(err error) string {
	switch errors.GetCode(err) {
	case 0:
		if err == nil {
			return "success"
		}
		return "unexpected"
	case errors.CodeMissingCredentials:
		return "missing_credentials"
	case errors.CodeInvalidCredentials:
		return "invalid_credentials"
	case errors.CodeAccountNotApproved:
		return "not_approved"
	case errors.CodeConnectionFailed:
		return "connection_failed"
	default:
		return "unexpected"
	}
}

var messageIDs = map[int]string{
	errors.CodeMissingCredentials: i18n.LoginMissingCredentials,
	errors.CodeInvalidCredentials: i18n.LoginInvalidCredentials,
	errors.CodeAccountNotApproved: i18n.LoginAccountNotApproved,
	errors.CodeConnectionFailed:   i18n.LoginConnectionFailed,
}

// DisplayMessage is the single string shown to the user for a failed
// login, rendered in m's language. Unexpected errors keep their
// underlying message.
func DisplayMessage(m i18n.Messages, err error) string {
	if err == nil {
		return ""
	}
	if m == nil {
		m = i18n.Default().For("en")
	}
	msg := errors.GetMessage(err)
	if id, ok := messageIDs[errors.GetCode(err)]; ok {
		msg = m.Message(id, nil)
	}
	return m.Message(i18n.LoginErrorPrefix, map[string]interface{}{"Message": msg})
}
