package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skemmarize/skemmarize-cli/internal/config"
)

// Entry is one summarization exchange stored in the local chat history.
type Entry struct {
	ID        string    `json:"id"`
	Image     string    `json:"image"`
	Prompt    string    `json:"prompt"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

// Store manages the chat history persisted at ~/.skemmarize/history.json.
type Store struct {
	mu   sync.Mutex
	path string
}

// New creates a Store backed by ~/.skemmarize/history.json.
func New() *Store {
	return &Store{path: config.HistoryPath()}
}

// NewAt creates a Store backed by an explicit file path.
func NewAt(path string) *Store {
	return &Store{path: path}
}

// Add appends an exchange to the history and returns the stored entry.
func (s *Store) Add(image, prompt, summary string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		entries = []Entry{}
	}

	entry := Entry{
		ID:        uuid.NewString(),
		Image:     image,
		Prompt:    prompt,
		Summary:   summary,
		CreatedAt: time.Now().UTC(),
	}
	entries = append(entries, entry)

	if err := s.save(entries); err != nil {
		return nil, err
	}
	return &entry, nil
}

// List returns all history entries, oldest first.
func (s *Store) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Tail returns the most recent n entries, oldest first.
func (s *Store) Tail(n int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return nil, err
	}
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}

// Clear removes all history entries.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save([]Entry{})
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.load()
	if err != nil {
		return 0
	}
	return len(entries)
}

func (s *Store) load() ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("corrupt history file: %w", err)
	}
	return entries, nil
}

func (s *Store) save(entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}
