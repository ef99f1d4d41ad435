// Package main provides the remote-control CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/tubeplay/internal/api/connect"
	playerv1 "github.com/osa030/tubeplay/internal/api/playerv1"
	"github.com/osa030/tubeplay/internal/api/playerv1/playerv1connect"
)

var (
	app    = kingpin.New("tubeplay-remote", "tubeplay remote-control client")
	server = app.Flag("server", "Server address").Default("http://127.0.0.1:8090").String()
	token  = app.Flag("token", "Remote token (or set TUBEPLAY_REMOTE_TOKEN env)").Envar("TUBEPLAY_REMOTE_TOKEN").String()

	// status command
	statusCmd = app.Command("status", "Show the player status")

	// search command
	searchCmd   = app.Command("search", "Search for songs")
	searchQuery = searchCmd.Arg("query", "Search query").Required().Strings()

	// enqueue command
	enqueueCmd    = app.Command("enqueue", "Add a song to the queue").Alias("add")
	enqueueID     = enqueueCmd.Arg("id", "Song ID").Required().String()
	enqueueTitle  = enqueueCmd.Arg("title", "Song title").Required().String()
	enqueueArtist = enqueueCmd.Arg("artist", "Artist").String()

	// navigation commands
	nextCmd   = app.Command("next", "Play the next song")
	prevCmd   = app.Command("prev", "Play the previous song")
	jumpCmd   = app.Command("jump", "Play the queue entry at a position")
	jumpIndex = jumpCmd.Arg("position", "Queue position (1-based)").Required().Int()

	// output commands
	pauseCmd    = app.Command("pause", "Toggle pause")
	volumeCmd   = app.Command("volume", "Set the volume")
	volumeValue = volumeCmd.Arg("percent", "Volume (0-100)").Required().Int()

	// suggest command
	suggestCmd   = app.Command("suggest", "Show song suggestions")
	suggestCount = suggestCmd.Flag("count", "Number of suggestions").Default("0").Int32()

	// subscribe command
	subscribeCmd = app.Command("subscribe", "Subscribe to notifications")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	client := playerv1connect.NewPlayerServiceClient(
		http.DefaultClient,
		*server,
	)

	ctx := context.Background()

	switch command {
	case statusCmd.FullCommand():
		status(ctx, client)
	case searchCmd.FullCommand():
		search(ctx, client, strings.Join(*searchQuery, " "))
	case enqueueCmd.FullCommand():
		enqueue(ctx, client, &playerv1.Track{Id: *enqueueID, Title: *enqueueTitle, Artist: *enqueueArtist})
	case nextCmd.FullCommand():
		resp, err := client.Next(ctx, withToken(&playerv1.NextRequest{}))
		exitOnError(err)
		printStatus(resp.Msg.Status)
	case prevCmd.FullCommand():
		resp, err := client.Previous(ctx, withToken(&playerv1.PreviousRequest{}))
		exitOnError(err)
		printStatus(resp.Msg.Status)
	case jumpCmd.FullCommand():
		resp, err := client.Jump(ctx, withToken(&playerv1.JumpRequest{Index: int32(*jumpIndex - 1)}))
		exitOnError(err)
		printStatus(resp.Msg.Status)
	case pauseCmd.FullCommand():
		resp, err := client.TogglePause(ctx, withToken(&playerv1.TogglePauseRequest{}))
		exitOnError(err)
		if resp.Msg.Paused {
			fmt.Println("Paused.")
		} else {
			fmt.Println("Resumed.")
		}
	case volumeCmd.FullCommand():
		resp, err := client.SetVolume(ctx, withToken(&playerv1.SetVolumeRequest{Volume: float64(*volumeValue) / 100}))
		exitOnError(err)
		fmt.Printf("Volume: %.0f%%\n", resp.Msg.Volume*100)
	case suggestCmd.FullCommand():
		resp, err := client.Suggest(ctx, withToken(&playerv1.SuggestRequest{Count: *suggestCount}))
		exitOnError(err)
		printTracks(resp.Msg.Tracks)
	case subscribeCmd.FullCommand():
		subscribe(ctx, client)
	}
}

// withToken wraps msg in a request carrying the remote token header.
func withToken[T any](msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	if *token != "" {
		req.Header().Set(apiconnect.RemoteTokenHeader, *token)
	}
	return req
}

func exitOnError(err error) {
	if err == nil {
		return
	}
	fmt.Printf("Error: %v\n", err)
	os.Exit(1)
}

func status(ctx context.Context, client playerv1connect.PlayerServiceClient) {
	resp, err := client.GetStatus(ctx, withToken(&playerv1.GetStatusRequest{}))
	exitOnError(err)
	printStatus(resp.Msg.Status)
}

func search(ctx context.Context, client playerv1connect.PlayerServiceClient, query string) {
	resp, err := client.Search(ctx, withToken(&playerv1.SearchRequest{Query: query}))
	exitOnError(err)
	printTracks(resp.Msg.Tracks)
}

func enqueue(ctx context.Context, client playerv1connect.PlayerServiceClient, t *playerv1.Track) {
	resp, err := client.Enqueue(ctx, withToken(&playerv1.EnqueueRequest{Track: t}))
	exitOnError(err)
	fmt.Printf("Queued (queue size %d, current %d)\n", resp.Msg.QueueSize, resp.Msg.CurrentIndex+1)
}

func subscribe(ctx context.Context, client playerv1connect.PlayerServiceClient) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stream, err := client.SubscribeNotifications(ctx, withToken(&playerv1.SubscribeNotificationsRequest{}))
	exitOnError(err)
	defer stream.Close()

	fmt.Println("Subscribed to notifications. Press Ctrl+C to exit.")

	for stream.Receive() {
		printNotification(stream.Msg())
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		fmt.Printf("Stream error: %v\n", err)
	}
}

func trackName(t *playerv1.Track) string {
	if t == nil {
		return "-"
	}
	artist := t.Artist
	if artist == "" {
		artist = "Unknown Artist"
	}
	return t.Title + " - " + artist
}

func printTracks(tracks []*playerv1.Track) {
	if len(tracks) == 0 {
		fmt.Println("No results.")
		return
	}
	for i, t := range tracks {
		fmt.Printf("%2d. %s  [%s]\n", i+1, trackName(t), t.Id)
	}
}

func printStatus(s *playerv1.Status) {
	if s == nil {
		return
	}
	fmt.Println("\n=== PLAYER STATUS ===")
	fmt.Printf("Current: %s\n", trackName(s.Current))
	fmt.Printf("Paused: %v\n", s.Paused)
	fmt.Printf("Volume: %.0f%%\n", s.Volume*100)
	fmt.Printf("Position: %ds / %ds\n", s.PositionMs/1000, s.LengthMs/1000)
	fmt.Printf("Fetch State: %s\n", s.FetchState)

	fmt.Printf("\nQueue (%d):\n", len(s.Queue))
	for i, t := range s.Queue {
		marker := " "
		if int32(i) == s.CurrentIndex {
			marker = ">"
		}
		fmt.Printf("%s %2d. %s\n", marker, i+1, trackName(t))
	}
	fmt.Println()
}

func printNotification(n *playerv1.Notification) {
	fmt.Printf("[Sequence: %d] %s ", n.SequenceNo, n.Timestamp.Format("15:04:05"))

	switch n.Type {
	case playerv1.NotificationTypeInitialState:
		fmt.Println("=== INITIAL STATE ===")
		printStatus(n.Status)
	case playerv1.NotificationTypeQueueChanged:
		fmt.Printf("Queue changed: %d entries\n", n.QueueSize)
	case playerv1.NotificationTypeTrackSelected:
		fmt.Printf("Loading #%d: %s\n", n.Index+1, trackName(n.Track))
	case playerv1.NotificationTypeTrackStarted:
		fmt.Printf("Now playing: %s\n", trackName(n.Track))
	case playerv1.NotificationTypeTrackEnded:
		fmt.Printf("Finished: %s\n", trackName(n.Track))
	case playerv1.NotificationTypePlaybackFailed:
		fmt.Printf("Playback failed: %s\n", n.Message)
	case playerv1.NotificationTypeLyricsLoaded:
		fmt.Printf("Lyrics loaded for %s\n", trackName(n.Track))
	case playerv1.NotificationTypePaused:
		fmt.Println("Paused")
	case playerv1.NotificationTypeResumed:
		fmt.Println("Resumed")
	case playerv1.NotificationTypeVolumeChanged:
		fmt.Printf("Volume: %.0f%%\n", n.Volume*100)
	default:
		fmt.Printf("Unknown event (%s)\n", n.Type)
	}
}
