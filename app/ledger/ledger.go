// Package ledger stores subscribed feed URLs in a newline-delimited text file.
//
// The file is append-only: Add never rewrites or reorders existing lines.
// Reads and writes are serialized in-process with a mutex and across
// processes with an advisory lock on a sibling ".lock" file, so a reader
// always sees a snapshot made of whole lines.
package ledger

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
)

// ValidationError reports a URL that is not a plausible feed locator.
type ValidationError struct {
	URL    string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid feed URL %q: %s", e.URL, e.Reason)
}

type Ledger struct {
	path string
	lock *flock.Flock
	// mu serializes use of lock, which wraps a single descriptor.
	mu sync.Mutex
}

func New(path string) *Ledger {
	return &Ledger{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

func (l *Ledger) Path() string {
	return l.path
}

// List returns the subscribed feeds in insertion order. A missing file is an empty ledger.
func (l *Ledger) List() ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// the lock file lives next to the ledger; without its directory there is nothing to read
	if _, err := os.Stat(filepath.Dir(l.path)); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err := l.lock.RLock(); err != nil {
		return nil, fmt.Errorf("failed to acquire shared ledger lock: %w", err)
	}
	defer l.lock.Unlock()

	data, err := l.read()
	if err != nil {
		return nil, err
	}

	return parse(data), nil
}

// Add appends url unless it is already present. It reports whether the URL was added.
func (l *Ledger) Add(rawURL string) (bool, error) {
	feedURL, err := Validate(rawURL)
	if err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.ensureDir(); err != nil {
		return false, err
	}
	if err := l.lock.Lock(); err != nil {
		return false, fmt.Errorf("failed to acquire exclusive ledger lock: %w", err)
	}
	defer l.lock.Unlock()

	data, err := l.read()
	if err != nil {
		return false, err
	}

	for _, existing := range parse(data) {
		if existing == feedURL {
			return false, nil
		}
	}

	line := feedURL + "\n"
	if len(data) > 0 && data[len(data)-1] != '\n' {
		line = "\n" + line
	}

	if err := l.appendLine(line); err != nil {
		return false, err
	}

	return true, nil
}

// Validate normalizes rawURL and checks that it is an http(s) URL with a host.
func Validate(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", &ValidationError{URL: rawURL, Reason: "URL is empty"}
	}
	if strings.ContainsAny(trimmed, " \t\r\n") {
		return "", &ValidationError{URL: rawURL, Reason: "URL contains whitespace"}
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", &ValidationError{URL: rawURL, Reason: err.Error()}
	}

	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	case "":
		return "", &ValidationError{URL: rawURL, Reason: "missing scheme"}
	default:
		return "", &ValidationError{URL: rawURL, Reason: fmt.Sprintf("unsupported scheme %q", parsed.Scheme)}
	}

	if parsed.Host == "" {
		return "", &ValidationError{URL: rawURL, Reason: "missing host"}
	}

	return trimmed, nil
}

func (l *Ledger) read() ([]byte, error) {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	return data, nil
}

func (l *Ledger) appendLine(line string) error {
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}

	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("failed to append to ledger: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync ledger: %w", err)
	}

	return f.Close()
}

func (l *Ledger) ensureDir() error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}
	return nil
}

func parse(data []byte) []string {
	var feeds []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		feeds = append(feeds, line)
	}
	return feeds
}
