// Package main provides the player entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/tubeplay/internal/api/connect"
	"github.com/osa030/tubeplay/internal/api/playerv1/playerv1connect"
	"github.com/osa030/tubeplay/internal/app/session"
	"github.com/osa030/tubeplay/internal/app/suggest"
	"github.com/osa030/tubeplay/internal/infra/audio"
	_ "github.com/osa030/tubeplay/internal/infra/audio/speaker"
	"github.com/osa030/tubeplay/internal/infra/backend"
	"github.com/osa030/tubeplay/internal/infra/config"
	"github.com/osa030/tubeplay/internal/infra/logger"
	"github.com/osa030/tubeplay/internal/infra/spotify"
	"github.com/osa030/tubeplay/internal/ui/console"
)

var (
	app        = kingpin.New("tubeplay", "Terminal music player for a search/streaming backend")
	configPath = app.Flag("config", "Path to config file (built-in defaults if omitted)").Short('c').String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stderr)").String()

	// start command (default)
	startCmd = app.Command("start", "Start the player (default)").Default()
	headless = startCmd.Flag("headless", "Run without the console; control through the remote API only").Bool()

	// search command
	searchCmd   = app.Command("search", "Search the backend and exit")
	searchQuery = searchCmd.Arg("query", "Search query").Required().Strings()

	// list-outputs command
	listOutputsCmd = app.Command("list-outputs", "List available audio outputs and exit")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == listOutputsCmd.FullCommand() {
		printOutputs()
		return
	}

	loggerConfig := logger.Config{Output: "stderr", Level: "info"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	logCloser, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logCloser.Close()

	zlog.Info().Msgf("Loading config: path=%q", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	switch command {
	case searchCmd.FullCommand():
		err = search(cfg, *searchQuery)
	default:
		err = run(cfg, *headless)
	}
	if err != nil {
		zlog.Error().Msgf("tubeplay error: %v", err)
		logCloser.Close()
		os.Exit(1)
	}
}

// run executes the player. Using a separate function ensures defer
// statements are executed even when returning with an error.
func run(cfg *config.Config, headless bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backendClient, err := backend.New(backend.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout(),
	})
	if err != nil {
		return errors.Wrap(err, "failed to create backend client")
	}

	var playlists suggest.PlaylistClient
	if cfg.HasProvider("spotify") {
		spotifyClient, err := spotify.New(ctx, spotify.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			RefreshToken: cfg.Spotify.RefreshToken,
			Market:       cfg.Spotify.Market,
		})
		if err != nil {
			return errors.Wrap(err, "failed to create Spotify client")
		}
		playlists = spotifyClient
	}

	output, err := audio.New(cfg.Audio.Type, cfg.Audio.InitialVolume(), cfg.Audio.Settings)
	if err != nil {
		return errors.Wrap(err, "failed to create audio output")
	}

	sessionMgr, err := session.NewManager(cfg, backendClient, output, playlists)
	if err != nil {
		_ = output.Close()
		return errors.Wrap(err, "failed to create session manager")
	}
	sessionMgr.Start()
	defer sessionMgr.Close()

	serverErrCh := make(chan error, 1)
	var server *http.Server
	if cfg.Remote.Enabled {
		server = newRemoteServer(cfg, sessionMgr)
		go func() {
			zlog.Info().Msgf("Starting remote server: addr=%s", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErrCh <- err
			}
		}()
	}

	if headless {
		if server == nil {
			return errors.New("headless mode requires remote.enabled")
		}
		select {
		case <-ctx.Done():
			zlog.Info().Msg("Received shutdown signal...")
		case err := <-serverErrCh:
			return errors.Wrap(err, "server error")
		}
	} else {
		con := console.New(sessionMgr, cfg.Console, os.Stdout)
		subscriptionID := sessionMgr.GetNotificationManager().Subscribe(con)
		defer sessionMgr.GetNotificationManager().Unsubscribe(subscriptionID)

		consoleErrCh := make(chan error, 1)
		go func() { consoleErrCh <- con.Run(ctx) }()

		select {
		case err := <-consoleErrCh:
			if err != nil {
				return err
			}
		case err := <-serverErrCh:
			return errors.Wrap(err, "server error")
		}
	}

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// Close the session first so notification streams end.
		sessionMgr.Close()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zlog.Error().Msgf("Failed to shutdown server: %v", err)
		}
	}

	zlog.Info().Msg("tubeplay stopped")
	return nil
}

// newRemoteServer creates the remote-control server with h2c (HTTP/2 cleartext) support.
func newRemoteServer(cfg *config.Config, sessionMgr *session.Manager) *http.Server {
	mux := http.NewServeMux()
	path, handler := playerv1connect.NewPlayerServiceHandler(
		apiconnect.NewPlayerService(sessionMgr),
		connect.WithInterceptors(apiconnect.NewRemoteAuthInterceptor(cfg.Remote.Token)),
	)
	mux.Handle(path, handler)

	return &http.Server{
		Addr:              cfg.Remote.Addr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// search prints backend search results without starting playback.
func search(cfg *config.Config, words []string) error {
	backendClient, err := backend.New(backend.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout(),
	})
	if err != nil {
		return errors.Wrap(err, "failed to create backend client")
	}

	tracks, err := backendClient.Search(context.Background(), strings.Join(words, " "))
	if err != nil {
		return err
	}
	if len(tracks) == 0 {
		fmt.Println("No results.")
		return nil
	}
	for i, t := range tracks {
		fmt.Printf("%2d. %s  [%s]", i+1, t.DisplayName(), t.ID)
		if t.Duration != "" {
			fmt.Printf(" (%s)", t.Duration)
		}
		fmt.Println()
	}
	return nil
}

// printOutputs prints available audio outputs.
func printOutputs() {
	fmt.Println("Available Audio Outputs:")
	for _, name := range audio.ListRegistered() {
		fmt.Printf("  %s\n", name)
	}
}
