package pages

import (
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/example/ec-storefront/internal/logging"
)

// Notice is one recorded notification
type Notice struct {
	Level   string
	Message string
}

// ConsoleNotifier prints notifications to a writer and keeps them for inspection
type ConsoleNotifier struct {
	mu      sync.Mutex
	out     io.Writer
	notices []Notice
	log     *logrus.Entry
}

// NewConsoleNotifier creates a notifier writing to out. A nil out only records.
func NewConsoleNotifier(out io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{out: out, log: logging.Component("notifier")}
}

func (n *ConsoleNotifier) Success(msg string) {
	n.record("success", msg)
}

func (n *ConsoleNotifier) Error(msg string) {
	n.record("error", msg)
}

func (n *ConsoleNotifier) record(level, msg string) {
	n.mu.Lock()
	n.notices = append(n.notices, Notice{Level: level, Message: msg})
	n.mu.Unlock()

	n.log.WithField("level", level).Debug(msg)
	if n.out == nil {
		return
	}
	prefix := "✓"
	if level == "error" {
		prefix = "✗"
	}
	fmt.Fprintf(n.out, "%s %s\n", prefix, msg)
}

// Notices returns every notification so far
func (n *ConsoleNotifier) Notices() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notice, len(n.notices))
	copy(out, n.notices)
	return out
}

// Errors returns only error messages
func (n *ConsoleNotifier) Errors() []string {
	var out []string
	for _, notice := range n.Notices() {
		if notice.Level == "error" {
			out = append(out, notice.Message)
		}
	}
	return out
}

// History is a Navigator that records every move
type History struct {
	mu        sync.Mutex
	paths     []string
	redirects []string
}

// NewHistory creates an empty navigation history
func NewHistory() *History {
	return &History{}
}

func (h *History) Navigate(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paths = append(h.paths, path)
}

func (h *History) Redirect(externalURL string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.redirects = append(h.redirects, externalURL)
}

// Current returns the last internal path, or "" if none
func (h *History) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.paths) == 0 {
		return ""
	}
	return h.paths[len(h.paths)-1]
}

// Paths returns every internal navigation in order
func (h *History) Paths() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.paths))
	copy(out, h.paths)
	return out
}

// LastRedirect returns the last external URL, or "" if none
func (h *History) LastRedirect() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.redirects) == 0 {
		return ""
	}
	return h.redirects[len(h.redirects)-1]
}
