package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Views a client can resume to.
var knownViews = map[string]bool{
	"dashboard": true,
	"upload":    true,
	"history":   true,
	"analysis":  true,
	"settings":  true,
}

const (
	ThemeLight = "light"
	ThemeDark  = "dark"

	defaultView = "dashboard"
)

// SessionState is the client-visible part of the session.
type SessionState struct {
	LastVisitedPage string `json:"lastVisitedPage"`
	Theme           string `json:"theme"`
	LoggedIn        bool   `json:"loggedIn"`
}

// Session holds the login placeholder token, the last visited view and the
// theme. Init loads them from the KV store at start-up and Teardown flushes
// them back at shutdown.
type Session struct {
	mu     sync.RWMutex
	kv     KVStore
	logger *slog.Logger

	token    string
	lastView string
	theme    string
}

func NewSession(kv KVStore, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{kv: kv, logger: logger, lastView: defaultView, theme: ThemeLight}
}

func (s *Session) readString(ctx context.Context, key string) (string, error) {
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", storeErr("read "+key, err)
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		// values written by older clients are bare strings
		return string(raw), nil
	}
	return v, nil
}

func (s *Session) writeString(ctx context.Context, key, value string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return storeErr("encode "+key, err)
	}
	if err := s.kv.Set(ctx, key, raw); err != nil {
		return storeErr("write "+key, err)
	}
	return nil
}

// Init restores the persisted session.
func (s *Session) Init(ctx context.Context) error {
	token, err := s.readString(ctx, TokenKey)
	if err != nil {
		return err
	}
	view, err := s.readString(ctx, LastVisitedPageKey)
	if err != nil {
		return err
	}
	theme, err := s.readString(ctx, ThemeKey)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	if knownViews[view] {
		s.lastView = view
	}
	if theme == ThemeDark || theme == ThemeLight {
		s.theme = theme
	}
	s.logger.Info("session.init", "logged_in", s.token != "", "view", s.lastView, "theme", s.theme)
	return nil
}

// Teardown persists the last view and theme.
func (s *Session) Teardown(ctx context.Context) error {
	s.mu.RLock()
	view, theme := s.lastView, s.theme
	s.mu.RUnlock()

	if err := s.writeString(ctx, LastVisitedPageKey, view); err != nil {
		return err
	}
	if err := s.writeString(ctx, ThemeKey, theme); err != nil {
		return err
	}
	s.logger.Info("session.teardown", "view", view, "theme", theme)
	return nil
}

// Login issues a new placeholder token. It is not a credential check.
func (s *Session) Login(ctx context.Context) (string, error) {
	token := uuid.NewString()
	if err := s.writeString(ctx, TokenKey, token); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return token, nil
}

func (s *Session) Logout(ctx context.Context) error {
	if err := s.kv.Delete(ctx, TokenKey); err != nil {
		return storeErr("delete token", err)
	}
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	return nil
}

// Authorized reports whether token matches the current session token.
func (s *Session) Authorized(token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && token == s.token
}

// Visit records view as the page to resume to.
func (s *Session) Visit(ctx context.Context, view string) error {
	if !knownViews[view] {
		return &ValidationError{Field: "view", Message: fmt.Sprintf("unknown view %q", view)}
	}
	s.mu.Lock()
	s.lastView = view
	s.mu.Unlock()
	return s.writeString(ctx, LastVisitedPageKey, view)
}

func (s *Session) SetTheme(ctx context.Context, theme string) error {
	if theme != ThemeLight && theme != ThemeDark {
		return &ValidationError{Field: "theme", Message: "must be light or dark"}
	}
	s.mu.Lock()
	s.theme = theme
	s.mu.Unlock()
	return s.writeString(ctx, ThemeKey, theme)
}

func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionState{
		LastVisitedPage: s.lastView,
		Theme:           s.theme,
		LoggedIn:        s.token != "",
	}
}
