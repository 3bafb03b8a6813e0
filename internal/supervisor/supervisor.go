// Package supervisor starts and stops a live run around trading sessions.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/baiguoname/qust-sub001/internal/inter"
	"github.com/baiguoname/qust-sub001/internal/logger"
	"github.com/baiguoname/qust-sub001/internal/types"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

// State combines whether a run is up with whether the clock is inside a
// session.
type State string

const (
	InRunningInTradingTime   State = "InRunningInTradingTime"
	InRunningNotTradingTime  State = "InRunningNotTradingTime"
	NotRunningInTradingTime  State = "NotRunningInTradingTime"
	NotRunningNotTradingTime State = "NotRunningNotTradingTime"
)

func stateOf(running, inSession bool) State {
	switch {
	case running && inSession:
		return InRunningInTradingTime
	case running:
		return InRunningNotTradingTime
	case inSession:
		return NotRunningInTradingTime
	default:
		return NotRunningNotTradingTime
	}
}

func (s State) Running() bool {
	return s == InRunningInTradingTime || s == InRunningNotTradingTime
}

type ActionKind string

const (
	ActionStartToRun ActionKind = "StartToRun"
	ActionStopToRun  ActionKind = "StopToRun"
	ActionSleep      ActionKind = "Sleep"
	ActionImpossible ActionKind = "Impossible"
)

// Action is what the caller should do next. Next is the state the run will
// be in once a start or stop completes. Sleep actions carry the wait and the
// current state as the reason.
type Action struct {
	Kind   ActionKind
	Next   State
	Sleep  time.Duration
	Reason State
}

func (a Action) String() string {
	switch a.Kind {
	case ActionStartToRun, ActionStopToRun:
		return fmt.Sprintf("%s(%s)", a.Kind, a.Next)
	case ActionSleep:
		return fmt.Sprintf("Sleep(%d, %s)", int(a.Sleep/time.Second), a.Reason)
	default:
		return string(a.Kind)
	}
}

const (
	DefaultMaxSleep = time.Minute
	minSleep        = time.Second
)

// Supervisor classifies wall-clock time against session intervals. An
// interval whose End is not after its Start wraps midnight.
type Supervisor struct {
	mu       sync.Mutex
	sessions []inter.Interval
	tracked  State
	maxSleep time.Duration
	logger   *logger.Logger
}

type Option func(*Supervisor)

func WithLogger(log *logger.Logger) Option {
	return func(s *Supervisor) { s.logger = log }
}

// WithMaxSleep caps the wait of Sleep actions.
func WithMaxSleep(d time.Duration) Option {
	return func(s *Supervisor) { s.maxSleep = d }
}

func New(sessions []inter.Interval, opts ...Option) (*Supervisor, error) {
	if len(sessions) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "supervisor needs at least one session")
	}

	for _, iv := range sessions {
		if iv.Start < 0 || iv.Start >= 24*time.Hour || iv.End < 0 || iv.End > 24*time.Hour || iv.Start == iv.End {
			return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "invalid session %s", iv)
		}
	}

	s := &Supervisor{
		sessions: append([]inter.Interval(nil), sessions...),
		maxSleep: DefaultMaxSleep,
		logger:   logger.NewNopLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func contains(iv inter.Interval, tod time.Duration) bool {
	if iv.End > iv.Start {
		return iv.Contains(tod)
	}

	return tod >= iv.Start || tod < iv.End
}

// InSession reports whether now falls inside any session.
func (s *Supervisor) InSession(now time.Time) bool {
	tod := types.TimeOfDay(now)

	for _, iv := range s.sessions {
		if contains(iv, tod) {
			return true
		}
	}

	return false
}

// untilBoundary returns the time from now to the nearest session start (when
// start is true) or end.
func (s *Supervisor) untilBoundary(now time.Time, start bool) time.Duration {
	tod := types.TimeOfDay(now)
	best := 24 * time.Hour

	for _, iv := range s.sessions {
		edge := iv.End
		if start {
			edge = iv.Start
		}

		d := (edge - tod + 24*time.Hour) % (24 * time.Hour)
		if d > 0 && d < best {
			best = d
		}
	}

	return best
}

func (s *Supervisor) sleep(now time.Time, state State) Action {
	wait := s.untilBoundary(now, !state.Running())
	wait = min(max(wait, minSleep), s.maxSleep)

	return Action{Kind: ActionSleep, Sleep: wait, Reason: state}
}

// Decide returns the next action for a run that is (or is not) running at
// now. When the tracked state disagrees with running, Decide reports
// Impossible and adopts the observed state so the next call proceeds.
func (s *Supervisor) Decide(running bool, now time.Time) Action {
	s.mu.Lock()
	defer s.mu.Unlock()

	observed := stateOf(running, s.InSession(now))

	if s.tracked != "" && s.tracked.Running() != running {
		s.logger.Error("Run state out of sync",
			zap.String("tracked", string(s.tracked)),
			zap.String("observed", string(observed)),
			zap.Time("now", now),
		)
		s.tracked = observed

		return Action{Kind: ActionImpossible, Reason: observed}
	}

	switch observed {
	case NotRunningInTradingTime:
		s.tracked = InRunningInTradingTime

		return Action{Kind: ActionStartToRun, Next: InRunningInTradingTime}
	case InRunningNotTradingTime:
		s.tracked = NotRunningNotTradingTime

		return Action{Kind: ActionStopToRun, Next: NotRunningNotTradingTime}
	default:
		s.tracked = observed

		return s.sleep(now, observed)
	}
}

// Runner is the run the supervisor drives.
type Runner interface {
	Start(ctx context.Context) error
	Stop()
	Running() bool
}

// Loop drives r until ctx is done, stopping it on the way out.
func (s *Supervisor) Loop(ctx context.Context, r Runner, now func() time.Time) error {
	if now == nil {
		now = time.Now
	}

	defer func() {
		if r.Running() {
			r.Stop()
		}
	}()

	for {
		action := s.Decide(r.Running(), now())
		wait := time.Duration(0)

		switch action.Kind {
		case ActionStartToRun:
			s.logger.Info("Session opened, starting run")

			if err := r.Start(ctx); err != nil {
				s.logger.Error("Run failed to start", zap.Error(err))

				wait = minSleep
			}
		case ActionStopToRun:
			s.logger.Info("Session closed, stopping run")
			r.Stop()
		case ActionSleep:
			wait = action.Sleep
		case ActionImpossible:
			wait = minSleep
		}

		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()

			return ctx.Err()
		case <-timer.C:
		}
	}
}
