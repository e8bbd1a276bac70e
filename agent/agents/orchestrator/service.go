package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	nodex "github.com/tanpawarit/hotel-whatsapp-concierge/agent/nodes/orchestrator"
	statex "github.com/tanpawarit/hotel-whatsapp-concierge/agent/state"
)

// TurnObserver records the outcome of every handled message.
type TurnObserver interface {
	ObserveTurn(outcome string, rounds int, elapsed time.Duration)
}

// Sessions is the registry the orchestrator drives: the graph reads and
// writes through it and HandleMessage holds its per-user lock.
type Sessions interface {
	nodex.SessionRegistry
	Lock(userID string) (unlock func())
	Clear(ctx context.Context, userID string) (bool, error)
}

var _ Sessions = (*statex.Registry)(nil)

type Option func(*Orchestrator)

func WithTurnObserver(obs TurnObserver) Option {
	return func(o *Orchestrator) {
		o.observer = obs
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

type Orchestrator struct {
	sessions Sessions
	turns    nodex.TurnRunner
	observer TurnObserver

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

func New(sessions Sessions, turns nodex.TurnRunner, opts ...Option) (*Orchestrator, error) {
	if sessions == nil {
		return nil, errors.New("session registry is required")
	}
	if turns == nil {
		return nil, errors.New("turn runner is required")
	}

	o := &Orchestrator{
		sessions: sessions,
		turns:    turns,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	graphRunner, err := o.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleMessage runs one turn for userID. Turns for the same user are
// serialised; a failed turn leaves the stored session untouched.
func (o *Orchestrator) HandleMessage(ctx context.Context, userID string, text string) (string, error) {
	// The graph keys the session on the trimmed id; lock the same key.
	userID = strings.TrimSpace(userID)
	unlock := o.sessions.Lock(userID)
	defer unlock()

	start := o.now()
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		UserID: userID,
		Text:   text,
	})
	elapsed := o.now().Sub(start)

	if err != nil {
		o.observe("error", 0, elapsed)
		log.Error().Err(err).Str("user_id", userID).Dur("elapsed", elapsed).Msg("turn failed")
		return "", err
	}

	o.observe("ok", out.Rounds, elapsed)
	log.Info().
		Str("user_id", userID).
		Int("rounds", out.Rounds).
		Dur("elapsed", elapsed).
		Msg("turn completed")
	return out.Reply, nil
}

// ClearSession drops the user's conversation. It reports whether one existed.
func (o *Orchestrator) ClearSession(ctx context.Context, userID string) (bool, error) {
	userID = strings.TrimSpace(userID)
	unlock := o.sessions.Lock(userID)
	defer unlock()
	return o.sessions.Clear(ctx, userID)
}

func (o *Orchestrator) observe(outcome string, rounds int, elapsed time.Duration) {
	if o.observer != nil {
		o.observer.ObserveTurn(outcome, rounds, elapsed)
	}
}
