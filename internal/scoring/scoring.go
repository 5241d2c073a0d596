// Package scoring derives a per-session training load score from completed
// sessions. It subscribes to the in-process emitter and never talks to the
// broker.
package scoring

import (
	"context"
	"log"

	"example.com/training/internal/domain"
	"example.com/training/internal/events"
)

// defaultEffort substitutes for sessions that carry no RPE at all.
const defaultEffort = 7.0

// Scorer computes and records session load scores.
type Scorer struct {
	logger *log.Logger
}

// NewScorer constructs a Scorer.
func NewScorer(logger *log.Logger) *Scorer {
	if logger == nil {
		logger = log.New(log.Writer(), "[scoring] ", log.LstdFlags|log.Lshortfile)
	}
	return &Scorer{logger: logger}
}

// Register attaches the scorer to the emitter for the process lifetime.
func (s *Scorer) Register(emitter *events.Emitter) {
	emitter.SubscribeSessionCompleted(s.handleSessionCompleted)
}

func (s *Scorer) handleSessionCompleted(_ context.Context, event domain.SessionCompletedEvent) {
	score := SessionLoad(event)
	recordSessionLoad(score)
	s.logger.Printf("session load (session=%s, user=%s): %.1f", event.SessionID, event.ExternalUserID, score)
}

// SessionLoad weights total tonnage by perceived effort. Effort is the
// session's average RPE on a 0-1 scale, defaulting when no set carried one.
func SessionLoad(event domain.SessionCompletedEvent) float64 {
	effort := defaultEffort
	if event.AverageRPE != nil {
		effort = *event.AverageRPE
	}
	return event.TotalTonnage * effort / 10
}
