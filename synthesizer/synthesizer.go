// Package synthesizer manufactures individual tickets for an hour bucket.
package synthesizer

import (
	"math"
	"math/rand"
	"time"

	"ticket-simulator/models"
)

// Duration bounds of a ticket, inclusive.
const (
	MinDuration = 1 * time.Minute
	MaxDuration = 10 * time.Minute
)

// IDGenerator draws ticket ids uniformly from [1, MaxInt32) and never repeats one.
type IDGenerator struct {
	rng    *rand.Rand
	issued map[int64]struct{}
}

func NewIDGenerator(rng *rand.Rand) *IDGenerator {
	return &IDGenerator{rng: rng, issued: make(map[int64]struct{})}
}

// Next returns an id not issued before by this generator.
func (g *IDGenerator) Next() int64 {
	for {
		id := 1 + g.rng.Int63n(math.MaxInt32-1)
		if _, taken := g.issued[id]; taken {
			continue
		}
		g.issued[id] = struct{}{}
		return id
	}
}

// Issued is the number of ids handed out.
func (g *IDGenerator) Issued() int {
	return len(g.issued)
}

// Synthesizer creates tickets. It is not safe for concurrent use.
type Synthesizer struct {
	rng *rand.Rand
	ids *IDGenerator
}

func New(rng *rand.Rand) *Synthesizer {
	return &Synthesizer{rng: rng, ids: NewIDGenerator(rng)}
}

// Synthesize returns floor(bucket.Volume) tickets starting within the bucket's hour.
// The fractional part of the volume is dropped.
func (s *Synthesizer) Synthesize(bucket models.HourVolume) []models.Ticket {
	n := bucket.Tickets()
	if n == 0 {
		return nil
	}
	tickets := make([]models.Ticket, n)
	for i := range tickets {
		tickets[i] = s.Ticket(bucket.Date, bucket.Hour)
	}
	return tickets
}

// Ticket creates one ticket on date's calendar day at the given hour, with a
// random minute and second, a 1-10 minute duration and a random channel.
func (s *Synthesizer) Ticket(date time.Time, hour int) models.Ticket {
	y, m, d := date.Date()
	start := time.Date(y, m, d, hour, s.rng.Intn(60), s.rng.Intn(60), 0, date.Location())
	minutes := int(MinDuration/time.Minute) + s.rng.Intn(int((MaxDuration-MinDuration)/time.Minute)+1)

	return models.Ticket{
		ID:        s.ids.Next(),
		StartTime: start,
		EndTime:   start.Add(time.Duration(minutes) * time.Minute),
		Type:      models.TicketTypes[s.rng.Intn(len(models.TicketTypes))],
	}
}

// Issued is the number of tickets created so far.
func (s *Synthesizer) Issued() int {
	return s.ids.Issued()
}
