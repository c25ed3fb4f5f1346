// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/campusbgm/internal/api/connect"
	"github.com/osa030/campusbgm/internal/app/audiofile"
	"github.com/osa030/campusbgm/internal/app/filter"
	"github.com/osa030/campusbgm/internal/app/notification"
	"github.com/osa030/campusbgm/internal/app/playback"
	"github.com/osa030/campusbgm/internal/app/player"
	"github.com/osa030/campusbgm/internal/app/settings"
	"github.com/osa030/campusbgm/internal/app/unlock"
	"github.com/osa030/campusbgm/internal/infra/config"
	"github.com/osa030/campusbgm/internal/infra/logger"
	"github.com/osa030/campusbgm/internal/infra/storage"
)

var (
	app        = kingpin.New("campusbgm-server", "School website background music server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// check-config command
	checkConfigCmd = app.Command("check-config", "Validate the config file and exit")

	// list-rules command
	listRulesCmd = app.Command("list-rules", "List available upload rules and exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Handle list-rules command
	if command == listRulesCmd.FullCommand() {
		printRules()
		return
	}

	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = *logfile
	}
	logCloser, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logCloser.Close()

	// Load config
	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Error().Msgf("Failed to load config: %v", err)
		os.Exit(1)
	}

	if command == checkConfigCmd.FullCommand() {
		if _, err := filter.NewChainFromConfig(cfg); err != nil {
			zlog.Error().Msgf("Invalid upload rules: %v", err)
			os.Exit(1)
		}
		fmt.Println("Config OK")
		return
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		logCloser.Close()
		os.Exit(1)
	}
}

// run wires the services and blocks until a shutdown signal or a server error.
func run(cfg *config.Config) error {
	ctx := context.Background()

	// Upload rules
	chain, err := filter.NewChainFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("invalid upload rules: %w", err)
	}

	// Settings store
	store, err := settings.NewStoreFromConfig(ctx, cfg.SettingsStore)
	if err != nil {
		return fmt.Errorf("failed to create settings store: %w", err)
	}
	defer store.Close()
	settingsService := settings.NewService(store, settings.Config{})

	// Audio storage (optional)
	var audioStorage audiofile.Storage
	if cfg.UploadEnabled() {
		s, err := storage.New(storage.Config{
			Endpoint:      cfg.Storage.Endpoint,
			Bucket:        cfg.Storage.Bucket,
			AccessKey:     cfg.Storage.AccessKey,
			SecretKey:     cfg.Storage.SecretKey,
			UseSSL:        cfg.Storage.UseSSL,
			Region:        cfg.Storage.Region,
			PublicBaseURL: cfg.Storage.PublicBaseURL,
		})
		if err != nil {
			return fmt.Errorf("failed to create audio storage: %w", err)
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to prepare audio storage: %w", err)
		}
		audioStorage = s
	} else {
		zlog.Info().Msg("Audio storage not configured, uploads are disabled")
	}
	audioService := audiofile.NewService(audioStorage, chain)

	// Playback
	latch := unlock.New(cfg.TriggerKinds()...)
	open, playerCloser, err := player.NewOpenerFromConfig(cfg, latch)
	if err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}
	defer playerCloser.Close()

	controller := playback.NewController(playback.Config{
		RefreshInterval:     cfg.RefreshInterval(),
		FetchTimeout:        cfg.FetchTimeout(),
		WindowCheckInterval: cfg.WindowCheckInterval(),
	}, settingsService, open, latch)

	notifications := notification.NewManager()
	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()
	go notifications.Relay(relayCtx, controller.Events())

	// RPC surface
	done := make(chan struct{})
	adminService := apiconnect.NewAdminService(settingsService, controller, audioService, notifications, cfg, done)
	kioskService := apiconnect.NewKioskService(controller)

	mux := http.NewServeMux()

	adminAuthInterceptor := apiconnect.NewAdminAuthInterceptor(cfg.Admin.Token)
	adminPath, adminHandler := apiconnect.NewAdminServiceHandler(
		adminService,
		connect.WithInterceptors(adminAuthInterceptor),
	)
	kioskPath, kioskHandler := apiconnect.NewKioskServiceHandler(kioskService)

	mux.Handle(adminPath, adminHandler)
	mux.Handle(kioskPath, kioskHandler)
	mux.Handle(apiconnect.UploadPath, apiconnect.NewUploadHandler(audioService, cfg))

	serverAddr := cfg.Server.Addr
	server := &http.Server{
		Addr:    serverAddr,
		Handler: h2c.NewHandler(mux, &http2.Server{}),
	}

	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	// Mount the controller
	if err := controller.Start(ctx); err != nil {
		return fmt.Errorf("failed to start playback: %w", err)
	}

	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", serverAddr)
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	<-serverStartedCh
	time.Sleep(100 * time.Millisecond)

	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		runErr = fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// End watch streams, then unmount the controller so no playback survives
	close(done)
	controller.Close()
	notifications.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")

	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return runErr
}

// printRules prints available upload rules.
func printRules() {
	fmt.Println("Available Upload Rules:")
	registry := filter.GetRegistered()
	for _, name := range filter.Names() {
		r := registry[name]()
		codes := strings.Join(r.ReturnCodes(), ", ")
		fmt.Printf("  %-30s - %s [codes: %s]\n", r.Name(), r.Description(), codes)
	}
}

// executeHooks runs lifecycle hook commands through sh -c. Failures are logged only.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Running hooks: stage=%s count=%d", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Debug().Msgf("hook: %s", hook)
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Hook failed: stage=%s cmd=%s", stage, hook)
		}
	}
}
