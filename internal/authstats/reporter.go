// Package authstats counts authentication events and publishes periodic
// snapshots to MQTT and InfluxDB.
//
// Counters carry no usernames or tokens.
package authstats

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"
)

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	SiteID          string    `json:"site_id"`
	LoginsOK        int64     `json:"logins_ok"`
	LoginsFailed    int64     `json:"logins_failed"`
	Logouts         int64     `json:"logouts"`
	SessionsCreated int64     `json:"sessions_created"`
	SessionsSwept   int64     `json:"sessions_swept"`
	ActiveSessions  int64     `json:"active_sessions"`
	Timestamp       time.Time `json:"timestamp"`
}

// Fields returns the numeric values keyed by their JSON names.
func (s Snapshot) Fields() map[string]any {
	return map[string]any{
		"logins_ok":        s.LoginsOK,
		"logins_failed":    s.LoginsFailed,
		"logouts":          s.Logouts,
		"sessions_created": s.SessionsCreated,
		"sessions_swept":   s.SessionsSwept,
		"active_sessions":  s.ActiveSessions,
	}
}

// Sink receives snapshots.
type Sink interface {
	Publish(ctx context.Context, s Snapshot) error
}

// Reporter accumulates counters. The zero value is not usable; call New.
//
// Thread Safety: counter methods are lock-free and safe for concurrent use.
type Reporter struct {
	siteID string
	active func() int
	sinks  []Sink
	logger *slog.Logger
	now    func() time.Time

	loginsOK        atomic.Int64
	loginsFailed    atomic.Int64
	logouts         atomic.Int64
	sessionsCreated atomic.Int64
	sessionsSwept   atomic.Int64
}

// New creates a Reporter. active returns the current session count and
// may be nil.
func New(siteID string, active func() int, logger *slog.Logger, sinks ...Sink) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{
		siteID: siteID,
		active: active,
		sinks:  sinks,
		logger: logger,
		now:    time.Now,
	}
}

// AddSink registers another destination for published snapshots.
// It must be called before Run.
func (r *Reporter) AddSink(s Sink) {
	r.sinks = append(r.sinks, s)
}

// LoginSucceeded records a successful login.
func (r *Reporter) LoginSucceeded() { r.loginsOK.Add(1) }

// LoginFailed records a rejected login.
func (r *Reporter) LoginFailed() { r.loginsFailed.Add(1) }

// LoggedOut records a logout.
func (r *Reporter) LoggedOut() { r.logouts.Add(1) }

// SessionCreated records a newly issued token.
func (r *Reporter) SessionCreated() { r.sessionsCreated.Add(1) }

// SessionsSwept records sessions removed by a sweep.
func (r *Reporter) SessionsSwept(n int) { r.sessionsSwept.Add(int64(n)) }

// Snapshot returns the current counters.
func (r *Reporter) Snapshot() Snapshot {
	s := Snapshot{
		SiteID:          r.siteID,
		LoginsOK:        r.loginsOK.Load(),
		LoginsFailed:    r.loginsFailed.Load(),
		Logouts:         r.logouts.Load(),
		SessionsCreated: r.sessionsCreated.Load(),
		SessionsSwept:   r.sessionsSwept.Load(),
		Timestamp:       r.now().UTC(),
	}
	if r.active != nil {
		s.ActiveSessions = int64(r.active())
	}
	return s
}

// Publish sends one snapshot to every sink and joins their errors.
func (r *Reporter) Publish(ctx context.Context) error {
	snap := r.Snapshot()
	var errs []error
	for _, sink := range r.sinks {
		if err := sink.Publish(ctx, snap); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run publishes every interval until ctx is cancelled, then publishes a
// final snapshot. A non-positive interval or no sinks returns immediately.
func (r *Reporter) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 || len(r.sinks) == 0 {
		r.logger.Info("auth stats publishing disabled")
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Parent is gone; give the last publish its own deadline.
			final, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			r.publishLogged(final)
			cancel()
			return nil
		case <-ticker.C:
			r.publishLogged(ctx)
		}
	}
}

func (r *Reporter) publishLogged(ctx context.Context) {
	if err := r.Publish(ctx); err != nil {
		r.logger.Warn("auth stats publish failed", "error", err)
	}
}
