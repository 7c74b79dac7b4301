package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/salimbeni/soundtouch-hassistant/internal/adapters/soundtouch"
	"github.com/salimbeni/soundtouch-hassistant/internal/buildinfo"
	"github.com/salimbeni/soundtouch-hassistant/internal/catalog"
	"github.com/salimbeni/soundtouch-hassistant/internal/diagnostics"
	"github.com/salimbeni/soundtouch-hassistant/internal/discovery"
	"github.com/salimbeni/soundtouch-hassistant/internal/lifecycle"
	"github.com/salimbeni/soundtouch-hassistant/internal/manager"
	"github.com/salimbeni/soundtouch-hassistant/internal/registry"
	"github.com/salimbeni/soundtouch-hassistant/internal/web"
)

const (
	serverName      = "soundtouch-hassistant"
	defaultPort     = "5001"
	probeTimeout    = 3 * time.Second
	shutdownTimeout = 5 * time.Second
)

type selfTestOutput struct {
	Server struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"server"`
	Environment diagnostics.EnvironmentReport `json:"environment"`
}

func main() {
	selfTest := flag.Bool("self-test", false, "run environment diagnostics then exit")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(buildinfo.Version)
		return
	}

	dataDir := resolveDataDir(os.Getenv("SOUNDTOUCH_DATA_DIR"))
	knownPath := filepath.Join(dataDir, "known_devices.json")
	favoritesPath := filepath.Join(dataDir, "favorites.json")

	if *selfTest {
		out := selfTestOutput{
			Environment: diagnostics.InspectEnvironment(dataDir, knownPath, favoritesPath),
		}
		out.Server.Name = serverName
		out.Server.Version = buildinfo.Version

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(out); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	runCtx, stopSignals := signal.NotifyContext(context.Background(), lifecycle.TerminationSignals()...)
	defer stopSignals()

	logLevel := parseLogLevel(os.Getenv("SOUNDTOUCH_LOG_LEVEL"))
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	logger.Info(
		"server_start",
		slog.String("server", serverName),
		slog.String("version", buildinfo.Version),
		slog.String("log_level", logLevel.String()),
		slog.String("data_dir", dataDir),
	)

	known, err := registry.LoadKnownDevices(knownPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	favorites := registry.LoadFavorites(favoritesPath)

	deviceManager := manager.New(manager.Config{
		Factory:  soundtouch.NewFactory(probeTimeout),
		Known:    known,
		Browser:  discovery.NewMDNSListener(),
		Notifier: soundtouch.NewNotifier(),
		Logger:   logger,
	})
	defer deviceManager.Close()

	srv := web.NewServer(web.Config{
		Manager:   deviceManager,
		Favorites: favorites,
		Radio:     catalog.NewRadioBrowser(""),
		TuneIn:    catalog.NewTuneIn(""),
		Logger:    logger,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}
	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- httpServer.ListenAndServe()
	}()
	logger.Info("listening", slog.String("addr", httpServer.Addr))

	var runErr error
	select {
	case runErr = <-runErrCh:
	case <-runCtx.Done():
		logger.Info("server_stopping", slog.String("reason", "signal"))
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", slog.String("error", err.Error()))
	}

	if runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
		fmt.Fprintln(os.Stderr, runErr)
		os.Exit(1)
	}
	logger.Info("server_stopped")
}

func resolveDataDir(env string) string {
	if env != "" {
		return env
	}
	if info, err := os.Stat("/data"); err == nil && info.IsDir() {
		return "/data"
	}
	return "."
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return slog.LevelInfo
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		fmt.Fprintf(os.Stderr, "invalid SOUNDTOUCH_LOG_LEVEL=%q; defaulting to info\n", raw)
		return slog.LevelInfo
	}
}
