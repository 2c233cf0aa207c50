package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ticket-simulator/config"
	simerrors "ticket-simulator/errors"
	"ticket-simulator/formatter"
	"ticket-simulator/models"
	"ticket-simulator/simulation"
	"ticket-simulator/store"
	"ticket-simulator/window"

	"github.com/rs/zerolog/log"
)

// Handler serves simulation requests against a base configuration.
type Handler struct {
	base *config.Config
	sink store.Sink
}

// NewHandler creates a handler. sink may be nil.
func NewHandler(base *config.Config, sink store.Sink) *Handler {
	return &Handler{base: base, sink: sink}
}

// SimulationRequest is the body of POST /api/simulations. Exactly one of
// Months or the StartDate/EndDate pair must be set.
type SimulationRequest struct {
	SizeProfile string         `json:"size_profile,omitempty"`
	Months      int            `json:"months,omitempty"`
	StartDate   string         `json:"start_date,omitempty"`
	EndDate     string         `json:"end_date,omitempty"`
	Seed        *int64         `json:"seed,omitempty"`
	Config      *config.Config `json:"config,omitempty"`
}

// SimulationResponse describes a completed run.
type SimulationResponse struct {
	RunID        string             `json:"run_id"`
	Seed         int64              `json:"seed"`
	SizeProfile  string             `json:"size_profile"`
	TargetVolume int                `json:"target_volume"`
	WindowStart  time.Time          `json:"window_start"`
	WindowEnd    time.Time          `json:"window_end"`
	TicketCount  int                `json:"ticket_count"`
	Tickets      []models.ExportRow `json:"tickets"`
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetConfig returns the base configuration.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.base)
}

// RunSimulation runs one simulation. ?format=csv returns the export as CSV.
func (h *Handler) RunSimulation(w http.ResponseWriter, r *http.Request) {
	var req SimulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}

	cfg := h.base.Merge(req.Config)
	if req.SizeProfile != "" {
		cfg.Default.SizeProfile = req.SizeProfile
	}

	var opts []simulation.Option
	if req.Seed != nil {
		opts = append(opts, simulation.WithSeed(*req.Seed))
	}
	sim, err := simulation.New(cfg, opts...)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid configuration", err)
		return
	}

	if req.Months > 0 {
		err = sim.SetTimePeriodMonths(req.Months)
	} else {
		err = sim.SetTimePeriodStrings(req.StartDate, req.EndDate)
	}
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid time period", err)
		return
	}

	if err := sim.Run(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "simulation failed", err)
		return
	}

	tickets := sim.Tickets()
	win, _ := sim.Window()
	run := store.Run{
		ID:           store.NewRunID(),
		Seed:         sim.Seed(),
		SizeProfile:  cfg.Default.SizeProfile,
		TargetVolume: sim.Plan().TargetVolume,
		WindowStart:  win.Start,
		WindowEnd:    win.End,
		CreatedAt:    time.Now().UTC(),
		Tickets:      tickets,
	}
	if h.sink != nil {
		if err := h.sink.SaveRun(r.Context(), run); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to store run", err)
			return
		}
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("X-Run-ID", run.ID)
		w.WriteHeader(http.StatusOK)
		if err := formatter.WriteCSV(w, tickets); err != nil {
			log.Error().Err(err).Str("run_id", run.ID).Msg("failed to write CSV response")
		}
		return
	}

	writeJSON(w, http.StatusOK, SimulationResponse{
		RunID:        run.ID,
		Seed:         run.Seed,
		SizeProfile:  run.SizeProfile,
		TargetVolume: run.TargetVolume,
		WindowStart:  run.WindowStart,
		WindowEnd:    run.WindowEnd,
		TicketCount:  len(tickets),
		Tickets:      formatter.Rows(tickets),
	})
}

func (req SimulationRequest) validate() error {
	hasDates := req.StartDate != "" || req.EndDate != ""
	switch {
	case req.Months < 0 || req.Months > window.MaxMonths:
		return &simerrors.ValidationError{Field: "months", Value: fmt.Sprint(req.Months), Err: simerrors.ErrInvalidMonths}
	case req.Months > 0 && hasDates:
		return &simerrors.ValidationError{Field: "period", Value: "months+dates",
			Err: fmt.Errorf("%w: give months or dates, not both", simerrors.ErrInvalidChoice)}
	case req.Months == 0 && !hasDates:
		return &simerrors.ValidationError{Field: "period", Value: "", Err: simerrors.ErrMissingTimePeriod}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	body := map[string]string{"error": message}
	if err != nil {
		body["details"] = err.Error()
		var cfgErr *simerrors.ConfigurationError
		if errors.As(err, &cfgErr) && cfgErr.Field != "" {
			body["field"] = cfgErr.Field
		}
	}
	writeJSON(w, status, body)
}
