package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/drewbanne/Weatherly/collector"
	"github.com/drewbanne/Weatherly/dashboard"
	"github.com/drewbanne/Weatherly/datasource"
	"github.com/drewbanne/Weatherly/models"

	"github.com/davecgh/go-spew/spew"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const usage = `Usage: weatherly <command> [flags]

Commands:
  serve     run the HTTP API (default)
  search    look up a city, or -lat/-lon, and print the dashboard
  locate    look up the current position and print the dashboard
  history   list recent searches
  clear     forget recent searches

Run "weatherly <command> -h" for the flags of a command.
`

func main() {
	// Load environment variables from .env file; a missing file is fine
	envErr := godotenv.Load()

	cmd, args := "serve", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe(args, envErr)
	case "search":
		err = runSearch(args)
	case "locate":
		err = runLocate(args)
	case "history":
		err = runHistory(args)
	case "clear":
		err = runClear(args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "weatherly:", err)
		if errors.Is(err, datasource.ErrConfiguration) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func runServe(args []string, envErr error) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	opts := registerFlags(fs)
	port := fs.Int("port", 8080, "Port to run the server on")
	refresh := fs.Duration("refresh", collector.DefaultInterval, "History refresh interval (0 disables)")
	fs.Parse(args)

	opts.serving = true
	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		a.logger.Warn("error loading .env file", zap.Error(envErr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *refresh > 0 {
		refresher := collector.NewHistoryRefresher(a.weather, a.store, a.logger)
		refresher.SetInterval(*refresh)
		stopRefresh := refresher.Start(ctx)
		defer stopRefresh()
	}

	server := a.server(*port)
	serveErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
	case <-ctx.Done():
		a.logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	a.logger.Info("shutdown complete")
	return nil
}

func runSearch(args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	opts := registerFlags(fs)
	out := registerOutputFlags(fs)
	lat := fs.String("lat", "", "Latitude to search by")
	lon := fs.String("lon", "", "Longitude to search by")
	fs.Parse(args)

	q, err := cliQuery(strings.Join(fs.Args(), " "), *lat, *lon)
	if err != nil {
		return err
	}

	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	state, err := a.dashboard.Search(context.Background(), q)
	if err != nil {
		return errors.New(datasource.UserMessage(err))
	}
	return out.print(state)
}

func runLocate(args []string) error {
	fs := flag.NewFlagSet("locate", flag.ExitOnError)
	opts := registerFlags(fs)
	out := registerOutputFlags(fs)
	fs.Parse(args)

	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	state, err := a.dashboard.LocateCurrentPosition(context.Background())
	if err != nil {
		return errors.New(datasource.UserMessage(err))
	}
	return out.print(state)
}

func runHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	opts := registerFlags(fs)
	fs.Parse(args)

	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	entries := a.store.Entries()
	if len(entries) == 0 {
		fmt.Println("No recent searches.")
		return nil
	}
	for i, e := range entries {
		line := fmt.Sprintf("%d. %s", i, e.City)
		if e.Snapshot != nil {
			line += fmt.Sprintf("  %d°C %s", e.Snapshot.Temperature, e.Snapshot.Description)
		}
		fmt.Println(line)
	}
	return nil
}

func runClear(args []string) error {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	opts := registerFlags(fs)
	fs.Parse(args)

	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	a.dashboard.ClearHistory()
	fmt.Println("Recent searches cleared.")
	return nil
}

// cliQuery builds a query from the positional city or the -lat/-lon flags
func cliQuery(city, lat, lon string) (models.Query, error) {
	if lat == "" && lon == "" {
		return models.CityQuery(city), nil
	}
	latF, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return models.Query{}, fmt.Errorf("invalid -lat %q", lat)
	}
	lonF, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return models.Query{}, fmt.Errorf("invalid -lon %q", lon)
	}
	return models.CoordsQuery(latF, lonF), nil
}

// outputFlags selects how a dashboard state is printed
type outputFlags struct {
	json *bool
	dump *bool
}

func registerOutputFlags(fs *flag.FlagSet) outputFlags {
	return outputFlags{
		json: fs.Bool("json", false, "Print the state as JSON"),
		dump: fs.Bool("dump", false, "Dump the state with all Go types (debugging)"),
	}
}

func (o outputFlags) print(state dashboard.State) error {
	switch {
	case *o.dump:
		spew.Dump(state)
	case *o.json:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	default:
		printState(state)
	}
	return nil
}

// printState renders the dashboard as text
func printState(s dashboard.State) {
	if s.Demo {
		fmt.Println("[DEMO DATA - not live weather]")
	}
	if s.Snapshot != nil {
		w := s.Snapshot
		fmt.Printf("%s  (%s)\n", w.Location(), w.ObservedLocal)
		fmt.Printf("  %d°C, feels like %d°C, %s\n", w.Temperature, w.FeelsLike, w.Description)
		fmt.Printf("  humidity %d%%  wind %.1f m/s  clouds %d%%  pressure %d hPa\n", w.Humidity, w.WindSpeed, w.CloudCover, w.Pressure)
		fmt.Printf("  sunrise %s  sunset %s\n", w.Sunrise, w.Sunset)
	}
	if len(s.Daily) > 0 {
		fmt.Println()
		for _, d := range s.Daily {
			fmt.Printf("  %-9s %3.0f°C  %s  (low %.0f / high %.0f)\n", d.Weekday, d.Sample.Temperature, d.Sample.Description, d.Low, d.High)
		}
	}
	if len(s.History) > 0 {
		fmt.Printf("\nRecent: %s\n", strings.Join(s.History, ", "))
	}
}
