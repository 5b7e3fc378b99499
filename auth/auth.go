// Package auth gates the task commands behind a login. The bundled
// authenticator is a stand-in: it checks the shape of the credentials and
// nothing else.
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotLoggedIn        = errors.New("not logged in, run `nexto login` first")
)

const MinPasswordLength = 6

type User struct {
	ID    string `yaml:"id" json:"id"`
	Email string `yaml:"email" json:"email"`
	Name  string `yaml:"name" json:"name"`
}

type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (User, error)
}

// Mock accepts any email containing @ with a password of at least
// MinPasswordLength characters (runes, not bytes).
type Mock struct{}

func (Mock) Authenticate(_ context.Context, email, password string) (User, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") || utf8.RuneCountInString(password) < MinPasswordLength {
		return User{}, ErrInvalidCredentials
	}
	name, _, _ := strings.Cut(email, "@")
	return User{ID: "1", Email: email, Name: name}, nil
}

type Session struct {
	User       User      `yaml:"user" json:"user"`
	LoggedInAt time.Time `yaml:"logged_in_at" json:"loggedInAt"`
}

// SessionStore keeps the current session in a single file.
type SessionStore struct {
	path string
}

func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

func (s *SessionStore) Path() string { return s.path }

// Load returns the saved session. ok is false when nobody is logged in.
func (s *SessionStore) Load() (sess Session, ok bool, err error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("read session: %w", err)
	}
	if err := yaml.Unmarshal(data, &sess); err != nil {
		return Session{}, false, fmt.Errorf("parse session %s: %w", s.path, err)
	}
	return sess, sess.User.Email != "", nil
}

func (s *SessionStore) Save(sess Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	data, err := yaml.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename session: %w", err)
	}
	return nil
}

// Clear removes the session file. Clearing an absent session is not an error.
func (s *SessionStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

type Manager struct {
	auth     Authenticator
	sessions *SessionStore
	now      func() time.Time
}

func NewManager(a Authenticator, sessions *SessionStore) *Manager {
	return &Manager{auth: a, sessions: sessions, now: time.Now}
}

func (m *Manager) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := m.auth.Authenticate(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	sess := Session{User: user, LoggedInAt: m.now().UTC()}
	if err := m.sessions.Save(sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (m *Manager) Logout() error {
	return m.sessions.Clear()
}

// Current returns the active session or ErrNotLoggedIn.
func (m *Manager) Current() (Session, error) {
	sess, ok, err := m.sessions.Load()
	if err != nil {
		return Session{}, err
	}
	if !ok {
		return Session{}, ErrNotLoggedIn
	}
	return sess, nil
}
