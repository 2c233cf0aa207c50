package parser

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"ticket-simulator/errors"
	"ticket-simulator/formatter"
	"ticket-simulator/metrics"
	"ticket-simulator/models"
)

// ParseTickets reads an exported ticket CSV back into tickets.
// Lines starting with '#' and the "id,..." header row are skipped.
// Dates and times are interpreted in loc; a nil loc means UTC.
func ParseTickets(r io.Reader, loc *time.Location) ([]models.Ticket, error) {
	if loc == nil {
		loc = time.UTC
	}
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	var tickets []models.Ticket
	lineNum := 0

	for {
		record, err := reader.Read()
		lineNum++
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV at line %d: %w", lineNum, err)
		}

		if len(record) > 0 && (strings.HasPrefix(record[0], "#") || strings.EqualFold(strings.TrimSpace(record[0]), "id")) {
			continue
		}

		t, err := parseRecord(record, loc)
		if err != nil {
			metrics.ParserErrorsTotal.WithLabelValues(errorType(err)).Inc()
			return nil, &errors.ParseError{
				Line:   lineNum,
				Record: record,
				Err:    err,
			}
		}
		metrics.ParserRecordsTotal.Inc()
		tickets = append(tickets, t)
	}

	return tickets, nil
}

func parseRecord(record []string, loc *time.Location) (models.Ticket, error) {
	if len(record) != len(formatter.Header) {
		return models.Ticket{}, errors.ErrInvalidFieldCount
	}
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}

	id, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil || id <= 0 {
		return models.Ticket{}, fmt.Errorf("%w: %q", errors.ErrInvalidID, record[0])
	}

	start, err := parseInstant(record[1], record[2], loc)
	if err != nil {
		return models.Ticket{}, fmt.Errorf("%w: %v", errors.ErrInvalidStartTime, err)
	}
	end, err := parseInstant(record[3], record[4], loc)
	if err != nil {
		return models.Ticket{}, fmt.Errorf("%w: %v", errors.ErrInvalidEndTime, err)
	}
	if !end.After(start) {
		return models.Ticket{}, fmt.Errorf("%w: end %s not after start %s", errors.ErrInvalidEndTime, end, start)
	}

	typ := models.TicketType(strings.ToLower(record[5]))
	if !typ.Valid() {
		return models.Ticket{}, fmt.Errorf("%w: %q", errors.ErrInvalidType, record[5])
	}

	return models.Ticket{ID: id, StartTime: start, EndTime: end, Type: typ}, nil
}

func parseInstant(date, clock string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(formatter.DateLayout+" "+formatter.TimeLayout, date+" "+clock, loc)
}

func errorType(err error) string {
	switch {
	case stderrors.Is(err, errors.ErrInvalidFieldCount):
		return "field_count"
	case stderrors.Is(err, errors.ErrInvalidID):
		return "id"
	case stderrors.Is(err, errors.ErrInvalidStartTime):
		return "start_time"
	case stderrors.Is(err, errors.ErrInvalidEndTime):
		return "end_time"
	case stderrors.Is(err, errors.ErrInvalidType):
		return "type"
	default:
		return "other"
	}
}
