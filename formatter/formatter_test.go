package formatter_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"ticket-simulator/formatter"
	"ticket-simulator/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ticket(id int64, start string, minutes int, typ models.TicketType) models.Ticket {
	s, err := time.ParseInLocation("2006-01-02 15:04:05", start, time.UTC)
	if err != nil {
		panic(err)
	}
	return models.Ticket{ID: id, StartTime: s, EndTime: s.Add(time.Duration(minutes) * time.Minute), Type: typ}
}

func TestFormatText(t *testing.T) {
	tests := map[string]struct {
		tickets  []models.Ticket
		contains []string
	}{
		"NoTickets": {
			tickets: nil,
			contains: []string{
				"00:00 : total=0 ; none",
				"12:00 : total=0 ; none",
				"23:00 : total=0 ; none",
				"total=0",
			},
		},
		"SingleHour": {
			tickets: []models.Ticket{
				ticket(1, "2024-01-01 08:05:00", 3, models.TicketVoice),
				ticket(2, "2024-01-01 08:15:00", 3, models.TicketChat),
				ticket(3, "2024-01-01 08:59:59", 3, models.TicketChat),
			},
			contains: []string{
				"08:00 : total=3 ; [voice=1, chat=2]",
				"09:00 : total=0 ; none",
				"total=3",
			},
		},
		"HoursAcrossDays": {
			tickets: []models.Ticket{
				ticket(1, "2024-01-01 10:00:00", 3, models.TicketEmail),
				ticket(2, "2024-01-02 10:30:00", 3, models.TicketVoice),
				ticket(3, "2024-01-03 17:45:00", 10, models.TicketEmail),
			},
			contains: []string{
				"10:00 : total=2 ; [voice=1, email=1]",
				"17:00 : total=1 ; [email=1]",
				"total=3",
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			output := formatter.FormatText(tt.tickets)
			for _, s := range tt.contains {
				assert.Contains(t, output, s)
			}
			assert.Len(t, strings.Split(strings.TrimSpace(output), "\n"), 25)
		})
	}
}

func TestFormatJSON(t *testing.T) {
	tests := map[string]struct {
		tickets  []models.Ticket
		contains []string
	}{
		"NoTickets": {
			tickets:  []models.Ticket{},
			contains: []string{"[]"},
		},
		"SingleTicket": {
			tickets: []models.Ticket{ticket(42, "2024-01-01 09:30:15", 7, models.TicketChat)},
			contains: []string{
				`"id": 42`,
				`"start_date": "2024-01-01"`,
				`"start_time": "09:30:15"`,
				`"end_date": "2024-01-01"`,
				`"end_time": "09:37:15"`,
				`"type": "chat"`,
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			output := formatter.FormatJSON(tt.tickets)
			for _, s := range tt.contains {
				assert.Contains(t, output, s)
			}
		})
	}
}

func TestFormatCSV(t *testing.T) {
	tests := map[string]struct {
		tickets  []models.Ticket
		expected []string
	}{
		"NoTickets": {
			tickets:  nil,
			expected: []string{"id,start_date,start_time,end_date,end_time,type"},
		},
		"SortedByStartThenID": {
			tickets: []models.Ticket{
				ticket(9, "2024-01-02 08:00:00", 1, models.TicketVoice),
				ticket(5, "2024-01-01 11:00:00", 2, models.TicketEmail),
				ticket(3, "2024-01-01 11:00:00", 4, models.TicketChat),
			},
			expected: []string{
				"id,start_date,start_time,end_date,end_time,type",
				"3,2024-01-01,11:00:00,2024-01-01,11:04:00,chat",
				"5,2024-01-01,11:00:00,2024-01-01,11:02:00,email",
				"9,2024-01-02,08:00:00,2024-01-02,08:01:00,voice",
			},
		},
		"EndCrossesMidnight": {
			tickets: []models.Ticket{ticket(1, "2024-01-01 23:55:00", 10, models.TicketVoice)},
			expected: []string{
				"id,start_date,start_time,end_date,end_time,type",
				"1,2024-01-01,23:55:00,2024-01-02,00:05:00,voice",
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			output, err := formatter.FormatCSV(tt.tickets)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, strings.Split(strings.TrimSpace(output), "\n"))
		})
	}
}

func TestRows_DoesNotReorderInput(t *testing.T) {
	tickets := []models.Ticket{
		ticket(2, "2024-01-01 12:00:00", 1, models.TicketVoice),
		ticket(1, "2024-01-01 08:00:00", 1, models.TicketVoice),
	}

	rows := formatter.Rows(tickets)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0].ID)
	assert.Equal(t, int64(2), tickets[0].ID)
}

type closedWriter struct{}

func (closedWriter) Write([]byte) (int, error) { return 0, errors.New("writer closed") }

func TestWriteCSV_PropagatesWriteError(t *testing.T) {
	err := formatter.WriteCSV(closedWriter{}, []models.Ticket{ticket(1, "2024-01-01 08:00:00", 1, models.TicketVoice)})
	assert.Error(t, err)
}
