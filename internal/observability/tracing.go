package observability

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type SpanStatus string

const (
	SpanStatusOK    SpanStatus = "OK"
	SpanStatusError SpanStatus = "ERROR"
)

// Span times one operation of a request: the request itself or an upstream
// fetch. Spans are logged, not exported.
type Span struct {
	TraceID   string
	SpanID    string
	ParentID  string
	Operation string
	Start     time.Time
	Duration  time.Duration
	Status    SpanStatus
	Err       string

	mu   sync.Mutex
	tags []slog.Attr
}

type spanContextKey struct{}

// StartSpan opens a span under the span already in ctx, if any.
func StartSpan(ctx context.Context, operation string) (context.Context, *Span) {
	span := &Span{
		SpanID:    newID(),
		Operation: operation,
		Start:     time.Now(),
		Status:    SpanStatusOK,
	}

	if parent := GetSpan(ctx); parent != nil {
		span.TraceID = parent.TraceID
		span.ParentID = parent.SpanID
	} else {
		span.TraceID = newID()
	}

	return context.WithValue(ctx, spanContextKey{}, span), span
}

func GetSpan(ctx context.Context) *Span {
	if span, ok := ctx.Value(spanContextKey{}).(*Span); ok {
		return span
	}
	return nil
}

func (s *Span) Finish() {
	s.Duration = time.Since(s.Start)
}

func (s *Span) SetTag(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.tags {
		if a.Key == key {
			s.tags[i].Value = slog.StringValue(value)
			return
		}
	}
	s.tags = append(s.tags, slog.String(key, value))
}

func (s *Span) SetError(err error) {
	s.Status = SpanStatusError
	if err != nil {
		s.Err = err.Error()
	}
}

// Attrs renders the span for logging. Call after Finish.
func (s *Span) Attrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("span_id", s.SpanID),
		slog.String("operation", s.Operation),
		slog.String("status", string(s.Status)),
		slog.Duration("duration", s.Duration),
	}
	if s.ParentID != "" {
		attrs = append(attrs, slog.String("parent_id", s.ParentID))
	}
	if s.Err != "" {
		attrs = append(attrs, slog.String("error", s.Err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tags) > 0 {
		tags := make([]any, len(s.tags))
		for i, t := range s.tags {
			tags[i] = t
		}
		attrs = append(attrs, slog.Group("tags", tags...))
	}
	return attrs
}

// newID returns 16 hex characters taken from a random UUID.
func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
