package chatclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/vedran77/dealerchat/internal/domain"
)

// Session is the logged-in identity the client acts as.
type Session struct {
	AccessToken  string
	RefreshToken string
	Profile      domain.Profile
}

// SessionProvider returns the current session, or ErrNoSession when nobody
// is logged in.
type SessionProvider interface {
	Current() (*Session, error)
}

// SessionFunc adapts a function to SessionProvider.
type SessionFunc func() (*Session, error)

func (f SessionFunc) Current() (*Session, error) { return f() }

// StaticSession always returns s.
func StaticSession(s Session) SessionProvider {
	return SessionFunc(func() (*Session, error) {
		cp := s
		return &cp, nil
	})
}

// storedSession is the on-disk layout. The profile is kept as the raw blob
// the login endpoint returned so it round-trips untouched.
type storedSession struct {
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
	UserProfile  json.RawMessage `json:"userProfile"`
}

// FileSessionStore persists the session as a JSON file readable only by
// the current user.
type FileSessionStore struct {
	path string
	mu   sync.Mutex
}

func NewFileSessionStore(path string) *FileSessionStore {
	return &FileSessionStore{path: path}
}

func (s *FileSessionStore) Path() string { return s.path }

func (s *FileSessionStore) Save(res *domain.LoginResult) error {
	profile, err := json.Marshal(res.UserProfile)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	data, err := json.MarshalIndent(storedSession{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		UserProfile:  profile,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *FileSessionStore) Current() (*Session, error) {
	s.mu.Lock()
	data, err := os.ReadFile(s.path)
	s.mu.Unlock()
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}

	var stored storedSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	if stored.AccessToken == "" {
		return nil, ErrNoSession
	}

	profile, err := ParseProfile(stored.UserProfile)
	if err != nil {
		return nil, err
	}

	return &Session{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		Profile:      profile,
	}, nil
}

// Clear logs out. Clearing an empty store is not an error.
func (s *FileSessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session: %w", err)
	}
	return nil
}

// ParseProfile extracts the profile from a stored identity blob of the form
// {"data": ...}. Some backends send data as a JSON-encoded string rather
// than an object; both are accepted.
func ParseProfile(raw []byte) (domain.Profile, error) {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.Profile{}, fmt.Errorf("decoding profile: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return domain.Profile{}, errors.New("decoding profile: missing data")
	}

	data := []byte(env.Data)
	if data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return domain.Profile{}, fmt.Errorf("decoding profile: %w", err)
		}
		data = []byte(inner)
	}

	var p domain.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Profile{}, fmt.Errorf("decoding profile: %w", err)
	}
	if p.UserID == uuid.Nil {
		return domain.Profile{}, errors.New("decoding profile: missing userId")
	}
	return p, nil
}
