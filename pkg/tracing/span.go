// Package tracing records a span tree for one batch run. Each program opens a
// root span, every stage step opens a child, and the tree is logged via slog
// when the run ends so slow steps stand out.
package tracing

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"
)

type contextKey struct{}

// Span is a timed step within a run. Attributes keep insertion order so the
// logged tree reads the same way every run.
type Span struct {
	Name     string
	RunID    string
	Start    time.Time
	Duration time.Duration
	Err      error

	mu       sync.Mutex
	attrs    []any
	children []*Span
}

// NewRunID returns a random 16-hex-digit run identifier.
func NewRunID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// StartRun opens the root span of a run and stores it in the returned
// context.
func StartRun(ctx context.Context, name, runID string) (context.Context, *Span) {
	span := &Span{Name: name, RunID: runID, Start: time.Now()}
	return context.WithValue(ctx, contextKey{}, span), span
}

// startChild opens a span under the one in ctx. Without a parent the span is
// detached and never logged.
func startChild(ctx context.Context, name string) (context.Context, *Span) {
	child := &Span{Name: name, Start: time.Now()}
	if parent := FromContext(ctx); parent != nil {
		child.RunID = parent.RunID
		parent.mu.Lock()
		parent.children = append(parent.children, child)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, contextKey{}, child), child
}

// Step runs fn inside a child span named name and returns fn's error.
func Step(ctx context.Context, name string, fn func(ctx context.Context, span *Span) error) error {
	ctx, span := startChild(ctx, name)
	err := fn(ctx, span)
	span.Finish(err)
	return err
}

// Finish stamps the duration and the outcome.
func (s *Span) Finish(err error) {
	s.Duration = time.Since(s.Start)
	s.Err = err
}

func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < len(s.attrs); i += 2 {
		if s.attrs[i] == key {
			s.attrs[i+1] = value
			return
		}
	}
	s.attrs = append(s.attrs, key, value)
}

// Attr returns the value set for key, or nil.
func (s *Span) Attr(key string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < len(s.attrs); i += 2 {
		if s.attrs[i] == key {
			return s.attrs[i+1]
		}
	}
	return nil
}

// Children returns a snapshot of the direct child spans.
func (s *Span) Children() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Span(nil), s.children...)
}

// FromContext returns the current span, or nil if none.
func FromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(contextKey{}).(*Span)
	return span
}

// Log writes the tree depth-first, one record per span. Each record carries
// the slash-joined path from the root; failed spans log at error level.
func (s *Span) Log(logger *slog.Logger) {
	s.log(logger, s.Name)
}

func (s *Span) log(logger *slog.Logger, path string) {
	s.mu.Lock()
	attrs := append([]any{
		"run_id", s.RunID,
		"span", path,
		"duration_ms", s.Duration.Milliseconds(),
	}, s.attrs...)
	children := append([]*Span(nil), s.children...)
	s.mu.Unlock()

	if s.Err != nil {
		logger.Error("span", append(attrs, "error", s.Err)...)
	} else {
		logger.Info("span", attrs...)
	}
	for _, child := range children {
		child.log(logger, path+"/"+child.Name)
	}
}
