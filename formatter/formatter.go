package formatter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"ticket-simulator/models"
)

// Layouts of the split date and time-of-day export fields.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// Header is the CSV column order of an export row.
var Header = []string{"id", "start_date", "start_time", "end_date", "end_time", "type"}

// SummaryData holds per-hour ticket counts used by the text formatter
type SummaryData struct {
	Hours []HourlyData
	Total int
}

// HourlyData counts tickets starting in an hour of the day
type HourlyData struct {
	Hour   int                       `json:"hour"`
	Total  int                       `json:"total"`
	ByType map[models.TicketType]int `json:"by_type,omitempty"`
}

// Rows flattens tickets into export rows ordered by start time, then id.
func Rows(tickets []models.Ticket) []models.ExportRow {
	sorted := make([]models.Ticket, len(tickets))
	copy(sorted, tickets)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].StartTime.Equal(sorted[j].StartTime) {
			return sorted[i].StartTime.Before(sorted[j].StartTime)
		}
		return sorted[i].ID < sorted[j].ID
	})

	rows := make([]models.ExportRow, len(sorted))
	for i, t := range sorted {
		rows[i] = Row(t)
	}
	return rows
}

// Row converts a single ticket.
func Row(t models.Ticket) models.ExportRow {
	return models.ExportRow{
		ID:        t.ID,
		StartDate: t.StartTime.Format(DateLayout),
		StartTime: t.StartTime.Format(TimeLayout),
		EndDate:   t.EndTime.Format(DateLayout),
		EndTime:   t.EndTime.Format(TimeLayout),
		Type:      string(t.Type),
	}
}

// WriteCSV streams the export rows, header first, to w.
func WriteCSV(w io.Writer, tickets []models.Ticket) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return err
	}
	for _, r := range Rows(tickets) {
		record := []string{
			strconv.FormatInt(r.ID, 10),
			r.StartDate, r.StartTime,
			r.EndDate, r.EndTime,
			r.Type,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// FormatCSV returns the CSV representation of the tickets
func FormatCSV(tickets []models.Ticket) (string, error) {
	var sb strings.Builder
	if err := WriteCSV(&sb, tickets); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// FormatJSON returns the JSON representation of the tickets
func FormatJSON(tickets []models.Ticket) string {
	jsonBytes, _ := json.MarshalIndent(Rows(tickets), "", "  ")
	return string(jsonBytes)
}

// FormatText returns an hour-of-day summary of the tickets
func FormatText(tickets []models.Ticket) string {
	data := prepareSummary(tickets)
	var sb strings.Builder

	for _, hourData := range data.Hours {
		sb.WriteString(formatTextLine(hourData))
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("total=%d\n", data.Total))
	return sb.String()
}

// prepareSummary buckets tickets by the hour their start time falls in
func prepareSummary(tickets []models.Ticket) *SummaryData {
	hours := make([]HourlyData, 24)
	for h := 0; h < 24; h++ {
		hours[h] = HourlyData{Hour: h, ByType: make(map[models.TicketType]int)}
	}

	for _, t := range tickets {
		h := t.StartTime.Hour()
		hours[h].Total++
		hours[h].ByType[t.Type]++
	}

	return &SummaryData{Hours: hours, Total: len(tickets)}
}

// formatTextLine formats a single hour line for text output
func formatTextLine(data HourlyData) string {
	if data.Total == 0 {
		return fmt.Sprintf("%02d:00 : total=0 ; none", data.Hour)
	}

	var parts []string
	for _, typ := range models.TicketTypes {
		if n := data.ByType[typ]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", typ, n))
		}
	}
	return fmt.Sprintf("%02d:00 : total=%d ; [%s]", data.Hour, data.Total, strings.Join(parts, ", "))
}
