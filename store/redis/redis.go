// Package redis persists simulation runs in Redis.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"ticket-simulator/models"
	"ticket-simulator/store"

	"github.com/redis/go-redis/v9"
)

const runsSet = "ticketsim:runs"

// RunStore is a Redis-backed store.Sink. Each run is a metadata hash plus a list
// of JSON-encoded tickets.
type RunStore struct {
	client *redis.Client
}

var _ store.Sink = (*RunStore)(nil)

func NewRunStore(client *redis.Client) *RunStore {
	return &RunStore{client: client}
}

type storedTicket struct {
	ID    int64     `json:"id"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"`
}

func (s *RunStore) runKey(runID string) string {
	return fmt.Sprintf("ticketsim:run:%s", runID)
}

func (s *RunStore) ticketsKey(runID string) string {
	return fmt.Sprintf("ticketsim:run:%s:tickets", runID)
}

// SaveRun writes the run atomically in a MULTI/EXEC pipeline.
func (s *RunStore) SaveRun(ctx context.Context, run store.Run) error {
	values := make([]interface{}, 0, len(run.Tickets))
	for _, t := range run.Tickets {
		data, err := json.Marshal(storedTicket{ID: t.ID, Start: t.StartTime, End: t.EndTime, Type: string(t.Type)})
		if err != nil {
			return fmt.Errorf("failed to marshal ticket %d: %w", t.ID, err)
		}
		values = append(values, data)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.runKey(run.ID), map[string]interface{}{
			"seed":          strconv.FormatInt(run.Seed, 10),
			"size_profile":  run.SizeProfile,
			"target_volume": run.TargetVolume,
			"window_start":  run.WindowStart.Format(time.RFC3339Nano),
			"window_end":    run.WindowEnd.Format(time.RFC3339Nano),
			"created_at":    run.CreatedAt.Format(time.RFC3339Nano),
			"ticket_count":  len(run.Tickets),
		})
		pipe.Del(ctx, s.ticketsKey(run.ID))
		if len(values) > 0 {
			pipe.RPush(ctx, s.ticketsKey(run.ID), values...)
		}
		pipe.SAdd(ctx, runsSet, run.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

// LoadTickets returns the tickets of a run in the order they were saved.
func (s *RunStore) LoadTickets(ctx context.Context, runID string) ([]models.Ticket, error) {
	raw, err := s.client.LRange(ctx, s.ticketsKey(runID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to LRANGE tickets of run %s: %w", runID, err)
	}
	tickets := make([]models.Ticket, 0, len(raw))
	for _, item := range raw {
		var st storedTicket
		if err := json.Unmarshal([]byte(item), &st); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ticket of run %s: %w", runID, err)
		}
		tickets = append(tickets, models.Ticket{
			ID:        st.ID,
			StartTime: st.Start,
			EndTime:   st.End,
			Type:      models.TicketType(st.Type),
		})
	}
	return tickets, nil
}

// Runs lists the ids of every stored run.
func (s *RunStore) Runs(ctx context.Context) ([]string, error) {
	return s.client.SMembers(ctx, runsSet).Result()
}

// Close closes the underlying client.
func (s *RunStore) Close() error {
	return s.client.Close()
}
