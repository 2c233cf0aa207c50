package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ticket-simulator/api"
	"ticket-simulator/config"
	simerrors "ticket-simulator/errors"
	"ticket-simulator/formatter"
	"ticket-simulator/metrics"
	"ticket-simulator/parser"
	"ticket-simulator/simulation"
	"ticket-simulator/store"
	"ticket-simulator/store/redis"
	"ticket-simulator/store/sqlite"
	"ticket-simulator/window"

	"github.com/charmbracelet/lipgloss"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

func main() {
	// Define flags
	configPath := flag.String("config", os.Getenv("TICKETSIM_CONFIG"), "Configuration file, JSON or YAML (default: built-in profiles)")
	sizeProfile := flag.String("size", "", "Operation size profile (e.g. very_small, small, medium, large, very_large)")
	months := flag.Int("months", 0, "Simulate the last N months (30-day months)")
	startDate := flag.String("start", "", "Start date, YYYY-MM-DD or DD/MM/YYYY")
	endDate := flag.String("end", "", "End date (exclusive), YYYY-MM-DD or DD/MM/YYYY")
	seed := flag.Int64("seed", 0, "Random seed (default: time based)")
	format := flag.String("format", "csv", "Output format: csv|json|text")
	outPath := flag.String("out", "", "Write output to file instead of stdout")
	summarize := flag.String("summarize", "", "Print an hourly summary of a previously exported CSV and exit")
	sqlitePath := flag.String("sqlite", "", "Also store the run in this SQLite database")
	redisAddr := flag.String("redis-addr", "", "Also store the run in Redis at this address")
	serveAddr := flag.String("serve", "", "Serve the simulation HTTP API on this address instead of running once (e.g., :8080)")
	metricsAddr := flag.String("metrics-addr", "", "Address to expose Prometheus metrics (e.g., :9090)")
	pushGateway := flag.String("push-url", "", "Pushgateway URL to push metrics to (e.g., http://localhost:9091)")
	wait := flag.Bool("wait", false, "Keep process running after completion to allow for metric scraping")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")

	// Parse command-line flags
	flag.Parse()

	setupLogging(*logLevel)

	if *summarize != "" {
		if err := summarizeFile(*summarize); err != nil {
			fail(err)
		}
		return
	}

	// Validate format enum
	validFormats := map[string]bool{"text": true, "json": true, "csv": true}
	if !validFormats[*format] {
		fail(&simerrors.ValidationError{Field: "format", Value: *format, Err: simerrors.ErrInvalidChoice})
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fail(err)
	}
	if *sizeProfile != "" {
		cfg.Default.SizeProfile = *sizeProfile
	}

	sink, err := openSink(*sqlitePath, *redisAddr)
	if err != nil {
		fail(err)
	}
	if sink != nil {
		defer sink.Close()
	}

	if *serveAddr != "" {
		serve(*serveAddr, cfg, sink)
		return
	}

	// Start metrics server if address provided
	if *metricsAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
			log.Info().Str("addr", *metricsAddr).Msg("metrics server listening")
			if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
				log.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	if err := validatePeriod(*months, *startDate, *endDate); err != nil {
		fail(err)
	}

	var opts []simulation.Option
	if flagSet("seed") {
		opts = append(opts, simulation.WithSeed(*seed))
	}
	sim, err := simulation.New(cfg, opts...)
	if err != nil {
		fail(err)
	}

	if *months > 0 {
		err = sim.SetTimePeriodMonths(*months)
	} else {
		err = sim.SetTimePeriodStrings(*startDate, *endDate)
	}
	if err != nil {
		fail(err)
	}

	if err := sim.Run(); err != nil {
		fail(err)
	}
	tickets := sim.Tickets()

	if err := writeOutput(*outPath, *format, sim); err != nil {
		fail(err)
	}

	if sink != nil {
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
		if err := sink.SaveRun(context.Background(), run); err != nil {
			fail(err)
		}
		fmt.Fprintln(os.Stderr, infoStyle.Render(fmt.Sprintf("Run %s stored", run.ID)))
	}

	fmt.Fprintln(os.Stderr, okStyle.Render(fmt.Sprintf("Simulation complete: %d tickets (seed %d)", len(tickets), sim.Seed())))

	// Handle metrics pushing or waiting
	if *pushGateway != "" {
		jobName := "ticket_simulator"
		if err := push.New(*pushGateway, jobName).Gatherer(metrics.Registry).Push(); err != nil {
			log.Error().Err(err).Msg("error pushing to Pushgateway")
		} else {
			log.Info().Msg("metrics successfully pushed to Pushgateway")
		}
	}

	if *wait && *metricsAddr != "" {
		log.Info().Msg("process kept alive for metric scraping, press Ctrl+C to exit")
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
	} else if *metricsAddr != "" && *pushGateway == "" {
		// Small delay to allow final scrape if not waiting explicitly
		time.Sleep(100 * time.Millisecond)
	}
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
}

// flagSet reports whether the named flag was given on the command line.
func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
	var vErr *simerrors.ValidationError
	if errors.As(err, &vErr) {
		fmt.Fprintln(os.Stderr, "\nUsage:")
		flag.PrintDefaults()
	}
	os.Exit(1)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default()
	}
	return config.Load(path)
}

// validatePeriod enforces exactly one of -months or the -start/-end pair.
func validatePeriod(months int, start, end string) error {
	hasDates := start != "" || end != ""
	switch {
	case months < 0 || months > window.MaxMonths:
		return &simerrors.ValidationError{Field: "months", Value: fmt.Sprint(months), Err: simerrors.ErrInvalidMonths}
	case months > 0 && hasDates:
		return &simerrors.ValidationError{Field: "period", Value: "-months with -start/-end",
			Err: fmt.Errorf("%w: give -months or -start/-end, not both", simerrors.ErrInvalidChoice)}
	case months == 0 && (start == "" || end == ""):
		return &simerrors.ValidationError{Field: "period", Value: start + ".." + end, Err: simerrors.ErrMissingTimePeriod}
	}
	return nil
}

func openSink(sqlitePath, redisAddr string) (store.Sink, error) {
	switch {
	case sqlitePath != "" && redisAddr != "":
		return nil, &simerrors.ValidationError{Field: "sink", Value: "-sqlite with -redis-addr",
			Err: fmt.Errorf("%w: choose one store", simerrors.ErrInvalidChoice)}
	case sqlitePath != "":
		return sqlite.New(sqlitePath)
	case redisAddr != "":
		client := goredis.NewClient(&goredis.Options{Addr: redisAddr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("connecting to redis at %s: %w", redisAddr, err)
		}
		return redis.NewRunStore(client), nil
	}
	return nil, nil
}

func writeOutput(path, format string, sim *simulation.Simulator) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	tickets := sim.Tickets()
	var err error
	switch format {
	case "json":
		_, err = fmt.Fprintln(w, formatter.FormatJSON(tickets))
	case "text":
		_, err = fmt.Fprint(w, formatter.FormatText(tickets))
	default: // "csv"
		err = formatter.WriteCSV(w, tickets)
	}
	if err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if path != "" {
		fmt.Fprintln(os.Stderr, infoStyle.Render("Output written to "+path))
	}
	return nil
}

func summarizeFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	tickets, err := parser.ParseTickets(file, time.Local)
	if err != nil {
		return fmt.Errorf("parsing file: %w", err)
	}
	fmt.Print(formatter.FormatText(tickets))
	return nil
}

func serve(addr string, cfg *config.Config, sink store.Sink) {
	if err := cfg.Validate(); err != nil {
		fail(err)
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(api.NewHandler(cfg, sink)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("simulation API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	log.Info().Msg("server stopped")
}
