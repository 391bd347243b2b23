package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Context is the persisted CLI selection: the room that room-scoped commands use when
// --room is omitted.
type Context struct {
	RoomID    string    `yaml:"room"`
	RoomName  string    `yaml:"room_name,omitempty"`
	UpdatedAt time.Time `yaml:"updated_at,omitempty"`
}

// IsEmpty reports whether no room is selected.
func (c *Context) IsEmpty() bool {
	return c.RoomID == ""
}

// SetRoom selects a room. name is an optional display label.
func (c *Context) SetRoom(id, name string) {
	c.RoomID, c.RoomName = id, name
	c.UpdatedAt = time.Now().UTC()
}

// Clear drops the selection.
func (c *Context) Clear() {
	c.SetRoom("", "")
}

func (c *Context) String() string {
	switch {
	case c.IsEmpty():
		return "(no room selected)"
	case c.RoomName != "":
		return fmt.Sprintf("room:%s (%s)", c.RoomName, c.RoomID)
	default:
		return "room:" + c.RoomID
	}
}

// ContextStore reads and writes a Context as YAML.
type ContextStore struct {
	path string
	mu   sync.Mutex
}

// NewContextStore creates a store at path, or at ~/.config/foldline/context.yaml when path is empty.
func NewContextStore(path string) *ContextStore {
	if path == "" {
		path = filepath.Join(DefaultConfig().Global.ConfigDir, "context.yaml")
	}
	return &ContextStore{path: path}
}

// Path returns the context file path.
func (s *ContextStore) Path() string {
	return s.path
}

// Load reads the context. A missing file yields an empty context.
func (s *ContextStore) Load() (*Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save writes ctx, replacing the file atomically.
func (s *ContextStore) Save(ctx *Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx)
}

// Update loads the context, applies fn and saves the result unless fn fails.
func (s *ContextStore) Update(fn func(*Context) error) (*Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, err := s.load()
	if err != nil {
		return nil, err
	}
	if err := fn(ctx); err != nil {
		return nil, err
	}
	if err := s.save(ctx); err != nil {
		return nil, err
	}
	return ctx, nil
}

// Clear removes the context file.
func (s *ContextStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove context file: %w", err)
	}
	return nil
}

func (s *ContextStore) load() (*Context, error) {
	ctx := &Context{}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return ctx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read context file: %w", err)
	}
	if err := yaml.Unmarshal(data, ctx); err != nil {
		return nil, fmt.Errorf("failed to parse context file %s: %w", s.path, err)
	}
	return ctx, nil
}

func (s *ContextStore) save(ctx *Context) error {
	data, err := yaml.Marshal(ctx)
	if err != nil {
		return fmt.Errorf("failed to serialize context: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create context directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".context-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to write context file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write context file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write context file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace context file: %w", err)
	}
	return nil
}
