package storage

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"car-ads/models"
)

// maxLineBytes bounds one stored message; channel posts stay far below it.
const maxLineBytes = 1 << 20

var (
	// ErrNoMessages is returned when the line store does not exist yet.
	ErrNoMessages = errors.New("message store not found")
	// ErrNothingToSave is returned by Write when no message has text.
	ErrNothingToSave = errors.New("no messages to save")
)

// MessageStore keeps raw messages in a text file, one "channel||text" line
// per message.
type MessageStore struct {
	path string
}

func NewMessageStore(path string) *MessageStore {
	return &MessageStore{path: path}
}

func (s *MessageStore) Path() string { return s.path }

// ReadLines returns the non-blank lines of the store.
func (s *MessageStore) ReadLines() ([]string, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("messages: %q: %w", s.path, ErrNoMessages)
	}
	if err != nil {
		return nil, fmt.Errorf("messages: open %q: %w", s.path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, strings.TrimPrefix(line, "\ufeff"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("messages: read %q: %w", s.path, err)
	}
	return lines, nil
}

// Write replaces the store content with msgs. When no message carries text
// the existing store is left untouched and ErrNothingToSave is returned.
func (s *MessageStore) Write(msgs []models.RawMessage) error {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if strings.TrimSpace(m.Text) != "" {
			lines = append(lines, m.Line())
		}
	}
	if len(lines) == 0 {
		return fmt.Errorf("messages: %q: %w", s.path, ErrNothingToSave)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("messages: create dir: %w", err)
	}
	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("messages: create %q: %w", tmp, err)
	}

	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := w.WriteString(line + "\n"); err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
			return fmt.Errorf("messages: write: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("messages: flush: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("messages: close: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("messages: replace %q: %w", s.path, err)
	}
	return nil
}
