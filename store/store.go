// Package store defines where completed simulation runs are persisted.
package store

import (
	"context"
	"time"

	"ticket-simulator/models"

	"github.com/google/uuid"
)

// Run is a completed simulation with its metadata.
type Run struct {
	ID           string
	Seed         int64
	SizeProfile  string
	TargetVolume int
	WindowStart  time.Time
	WindowEnd    time.Time
	CreatedAt    time.Time
	Tickets      []models.Ticket
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Sink persists completed runs.
type Sink interface {
	SaveRun(ctx context.Context, run Run) error
	LoadTickets(ctx context.Context, runID string) ([]models.Ticket, error)
	Close() error
}
