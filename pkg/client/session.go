package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/gurkanbulca/barakaflow/internal/models"
)

// Member is a person invited to own tasks.
type Member struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Session is the client state kept between runs.
type Session struct {
	Token   string             `json:"token,omitempty"`
	User    *models.PublicUser `json:"user,omitempty"`
	Members []Member           `json:"members,omitempty"`
}

// AddMember adds m unless a member with the same email exists. It reports
// whether the list changed.
func (s *Session) AddMember(m Member) bool {
	m.Email = strings.ToLower(strings.TrimSpace(m.Email))
	m.Name = strings.TrimSpace(m.Name)
	if m.Email == "" && m.Name == "" {
		return false
	}
	if m.Email != "" && slices.ContainsFunc(s.Members, func(x Member) bool { return x.Email == m.Email }) {
		return false
	}
	s.Members = append(s.Members, m)
	return true
}

// Owners lists the names tasks can be assigned to: the signed-in user first,
// then invited members by name, or by email when they have no name.
func (s *Session) Owners() []string {
	var owners []string
	if s.User != nil && s.User.Name != "" {
		owners = append(owners, s.User.Name)
	}
	for _, m := range s.Members {
		name := m.Name
		if name == "" {
			name = m.Email
		}
		if !slices.Contains(owners, name) {
			owners = append(owners, name)
		}
	}
	return owners
}

// FileStore persists a Session as JSON on disk.
type FileStore struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// DefaultSessionPath returns ~/.barakaflow/session.json.
func DefaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".barakaflow", "session.json")
	}
	return filepath.Join(home, ".barakaflow", "session.json")
}

// NewFileStore creates a store at path.
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{path: path, logger: logger}
}

// Load reads the session. A missing, unreadable or corrupt file yields an
// empty session; the problem is logged, never returned.
func (f *FileStore) Load() *Session {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			f.logger.Warn("failed to read session, starting empty", zap.String("path", f.path), zap.Error(err))
		}
		return &Session{}
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		f.logger.Warn("corrupt session file, starting empty", zap.String("path", f.path), zap.Error(err))
		return &Session{}
	}
	return &s
}

// Save writes the session atomically with owner-only permissions.
func (f *FileStore) Save(s *Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".session-*")
	if err != nil {
		return fmt.Errorf("create temp session: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace session: %w", err)
	}
	return nil
}

// Clear removes the stored token and user but keeps invited members.
func (f *FileStore) Clear() error {
	s := f.Load()
	s.Token = ""
	s.User = nil
	return f.Save(s)
}
