// Package audit records authentication events: logins, logouts and session
// refreshes.
package audit

import (
	"admin-service/pkg/logger"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
)

// EventType is the authentication step an event describes.
type EventType string

const (
	EventLogin   EventType = "login"
	EventLogout  EventType = "logout"
	EventRefresh EventType = "token_refresh"
)

// Outcome represents how the step ended
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeDenied  Outcome = "denied"
)

const writeTimeout = 2 * time.Second

// Event represents an audit event
type Event struct {
	ID            uuid.UUID
	Type          EventType
	PrincipalID   *uuid.UUID
	AccessTokenID *uuid.UUID
	Outcome       Outcome
	Reason        string
	IPAddress     string
	UserAgent     string
	RequestID     string
	CreatedAt     time.Time
}

// Sink persists events.
type Sink interface {
	Write(ctx context.Context, event *Event) error
}

// Logger fills in request details and hands events to a Sink without
// blocking the request.
type Logger struct {
	sink Sink
	log  logger.Logger
	now  func() time.Time
	wg   sync.WaitGroup
}

func NewLogger(sink Sink, log logger.Logger) *Logger {
	if log == nil {
		log = logger.Nop()
	}
	return &Logger{sink: sink, log: log, now: time.Now}
}

// Log records an audit event synchronously.
func (l *Logger) Log(ctx context.Context, event *Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = l.now().UTC()
	}
	return l.sink.Write(ctx, event)
}

// LogFromContext builds an event from the echo request and logs it in the
// background. Nil loggers drop the event.
func (l *Logger) LogFromContext(c echo.Context, eventType EventType, outcome Outcome, principalID *uuid.UUID, reason string) {
	if l == nil {
		return
	}

	event := &Event{
		Type:        eventType,
		PrincipalID: principalID,
		Outcome:     outcome,
		Reason:      reason,
		IPAddress:   c.RealIP(),
		UserAgent:   c.Request().UserAgent(),
		RequestID:   c.Response().Header().Get(echo.HeaderXRequestID),
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := l.Log(ctx, event); err != nil {
			l.log.Warn(ctx, "audit log failed", "event_type", string(event.Type), "error", err)
		}
	}()
}

// Wait blocks until background writes have finished.
func (l *Logger) Wait() {
	if l == nil {
		return
	}
	l.wg.Wait()
}

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// PostgresSink writes events into auth_events.
type PostgresSink struct {
	db execer
}

// NewPostgresSink accepts a *pgxpool.Pool or anything else with its Exec.
func NewPostgresSink(db execer) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) Write(ctx context.Context, event *Event) error {
	query := `
		INSERT INTO auth_events (
			id, event_type, principal_id, access_token_id, outcome, reason,
			ip_address, user_agent, request_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.db.Exec(ctx, query,
		event.ID,
		string(event.Type),
		event.PrincipalID,
		event.AccessTokenID,
		string(event.Outcome),
		event.Reason,
		event.IPAddress,
		event.UserAgent,
		event.RequestID,
		event.CreatedAt,
	)
	return err
}

// LogSink writes events to the structured log, for stores without an
// auth_events table.
type LogSink struct {
	log logger.Logger
}

func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Write(ctx context.Context, event *Event) error {
	args := []any{
		"event_id", event.ID.String(),
		"event_type", string(event.Type),
		"outcome", string(event.Outcome),
		"ip", event.IPAddress,
		"request_id", event.RequestID,
	}
	if event.PrincipalID != nil {
		args = append(args, "principal_id", event.PrincipalID.String())
	}
	if event.Reason != "" {
		args = append(args, "reason", event.Reason)
	}
	s.log.Info(ctx, "auth event", args...)
	return nil
}
