// Package console provides the interactive command interpreter.
package console

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	playerv1 "github.com/osa030/tubeplay/internal/api/playerv1"
	"github.com/osa030/tubeplay/internal/app/session"
	"github.com/osa030/tubeplay/internal/app/suggest"
	"github.com/osa030/tubeplay/internal/domain/track"
	"github.com/osa030/tubeplay/internal/infra/config"
)

// Player is the part of the session the console drives.
type Player interface {
	Search(ctx context.Context, query string) ([]track.Track, error)
	Enqueue(ctx context.Context, t track.Track) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Jump(ctx context.Context, index int) error
	TogglePause() (bool, error)
	SetVolume(v float64) error
	Seek(fraction float64) error
	Suggest(ctx context.Context, count int) ([]suggest.Suggestion, error)
	Lyrics() (string, bool)
	Download(ctx context.Context) (string, error)
	GetStatus() *session.Status
	MessageFor(err error) string
}

type command struct {
	names   []string
	usage   string
	help    string
	handler func(ctx context.Context, args []string)
}

// Console reads commands and renders player state.
type Console struct {
	player Player
	config config.ConsoleConfig

	outMu sync.Mutex
	out   io.Writer

	resultsMu sync.Mutex
	results   []track.Track // Last search or suggest listing, for "add"

	commands []command
	byName   map[string]*command
	quit     bool
}

// New creates a console writing to out.
func New(player Player, cfg config.ConsoleConfig, out io.Writer) *Console {
	c := &Console{
		player: player,
		config: cfg,
		out:    out,
		byName: make(map[string]*command),
	}
	c.registerCommands()
	return c
}

func (c *Console) registerCommands() {
	c.commands = []command{
		{names: []string{"search", "s"}, usage: "search <query>", help: "Search for songs", handler: c.cmdSearch},
		{names: []string{"add", "a"}, usage: "add <n> [n...]", help: "Queue results from the last listing", handler: c.cmdAdd},
		{names: []string{"suggest"}, usage: "suggest [count]", help: "List suggested songs", handler: c.cmdSuggest},
		{names: []string{"queue", "q"}, usage: "queue", help: "Show the queue", handler: c.cmdQueue},
		{names: []string{"play", "j"}, usage: "play <n>", help: "Play queue entry n", handler: c.cmdPlay},
		{names: []string{"next", "n"}, usage: "next", help: "Play the next song", handler: c.cmdNext},
		{names: []string{"prev", "p"}, usage: "prev", help: "Play the previous song", handler: c.cmdPrev},
		{names: []string{"pause", "toggle"}, usage: "pause", help: "Toggle play/pause", handler: c.cmdPause},
		{names: []string{"vol"}, usage: "vol [0-100]", help: "Show or set the volume", handler: c.cmdVolume},
		{names: []string{"seek"}, usage: "seek <percent|M:SS>", help: "Jump within the song", handler: c.cmdSeek},
		{names: []string{"lyrics", "l"}, usage: "lyrics", help: "Show lyrics of the current song", handler: c.cmdLyrics},
		{names: []string{"download", "d"}, usage: "download", help: "Save the current song", handler: c.cmdDownload},
		{names: []string{"status"}, usage: "status", help: "Show what is playing", handler: c.cmdStatus},
		{names: []string{"help", "?"}, usage: "help", help: "Show this help", handler: c.cmdHelp},
		{names: []string{"quit", "exit"}, usage: "quit", help: "Exit", handler: func(context.Context, []string) { c.quit = true }},
	}
	for i := range c.commands {
		for _, name := range c.commands[i].names {
			c.byName[name] = &c.commands[i]
		}
	}
}

// Run reads commands until quit, EOF or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          c.config.Prompt,
		HistoryFile:     c.config.HistoryFile,
		AutoComplete:    c.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return errors.Wrap(err, "failed to start console")
	}
	defer rl.Close()

	c.setOutput(rl.Stdout())

	go func() {
		<-ctx.Done()
		_ = rl.Close()
	}()

	c.printf("Type 'help' for commands.\n")
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "failed to read command")
		}

		if c.Execute(ctx, line) {
			return nil
		}
	}
}

// Execute runs a single command line and reports whether the console should exit.
func (c *Console) Execute(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	name := strings.ToLower(fields[0])
	cmd, ok := c.byName[name]
	if !ok {
		c.printf("Unknown command %q. Type 'help' for commands.\n", name)
		return false
	}

	zlog.Debug().Msgf("console command: name=%s args=%d", name, len(fields)-1)
	cmd.handler(ctx, fields[1:])
	return c.quit
}

// Send renders a player notification. It lets the console subscribe to the
// session's notification manager.
func (c *Console) Send(n *playerv1.Notification) error {
	switch n.Type {
	case playerv1.NotificationTypeTrackStarted:
		if n.Track != nil {
			c.printf("Now playing: %s\n", displayName(session.TrackFromProto(n.Track)))
		}
	case playerv1.NotificationTypePlaybackFailed:
		c.printf("! %s\n", n.Message)
	case playerv1.NotificationTypeLyricsLoaded:
		c.printf("Lyrics loaded. Type 'lyrics' to show them.\n")
	}
	return nil
}

func (c *Console) cmdSearch(ctx context.Context, args []string) {
	results, err := c.player.Search(ctx, strings.Join(args, " "))
	if err != nil {
		c.printf("%s\n", c.messageFor(err))
		return
	}
	if len(results) == 0 {
		c.printf("No results.\n")
		return
	}

	c.setResults(results)
	for i, t := range results {
		line := fmt.Sprintf("%2d. %s", i+1, displayName(t))
		if t.Duration != "" {
			line += " (" + t.Duration + ")"
		}
		c.printf("%s\n", line)
	}
}

func (c *Console) cmdAdd(ctx context.Context, args []string) {
	if len(args) == 0 {
		c.printf("Usage: add <n> [n...]\n")
		return
	}

	results := c.lastResults()
	for _, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > len(results) {
			c.printf("No result %s. Search first, then add by number.\n", arg)
			continue
		}
		t := results[n-1]
		if err := c.player.Enqueue(ctx, t); err != nil {
			c.printf("%s\n", c.messageFor(err))
			continue
		}
		c.printf("Added: %s\n", displayName(t))
	}
}

func (c *Console) cmdSuggest(ctx context.Context, args []string) {
	count := 0
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			c.printf("Usage: suggest [count]\n")
			return
		}
		count = n
	}

	suggestions, err := c.player.Suggest(ctx, count)
	if err != nil {
		c.printf("%s\n", c.messageFor(err))
		return
	}
	if len(suggestions) == 0 {
		c.printf("No suggestions.\n")
		return
	}

	tracks := make([]track.Track, len(suggestions))
	for i, s := range suggestions {
		tracks[i] = s.Track
		c.printf("%2d. %s [%s]\n", i+1, displayName(s.Track), s.DisplayName)
	}
	c.setResults(tracks)
}

func (c *Console) cmdQueue(_ context.Context, _ []string) {
	status := c.player.GetStatus()
	if len(status.Queue) == 0 {
		c.printf("Queue is empty.\n")
		return
	}
	for _, line := range renderQueue(status.Queue, status.CurrentIndex) {
		c.printf("%s\n", line)
	}
}

func (c *Console) cmdPlay(ctx context.Context, args []string) {
	if len(args) != 1 {
		c.printf("Usage: play <n>\n")
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(c.player.GetStatus().Queue) {
		c.printf("No queue entry %s.\n", args[0])
		return
	}
	c.report(c.player.Jump(ctx, n-1))
}

func (c *Console) cmdNext(ctx context.Context, _ []string) {
	c.report(c.player.Next(ctx))
}

func (c *Console) cmdPrev(ctx context.Context, _ []string) {
	c.report(c.player.Previous(ctx))
}

func (c *Console) cmdPause(_ context.Context, _ []string) {
	paused, err := c.player.TogglePause()
	if err != nil {
		c.printf("Nothing is playing.\n")
		return
	}
	if paused {
		c.printf("Paused.\n")
	} else {
		c.printf("Playing.\n")
	}
}

func (c *Console) cmdVolume(_ context.Context, args []string) {
	if len(args) == 0 {
		c.printf("Volume: %d%%\n", percent(c.player.GetStatus().Volume))
		return
	}
	v, err := strconv.Atoi(strings.TrimSuffix(args[0], "%"))
	if err != nil || v < 0 || v > 100 {
		c.printf("Usage: vol [0-100]\n")
		return
	}
	if err := c.player.SetVolume(float64(v) / 100); err != nil {
		c.printf("%s\n", c.messageFor(err))
		return
	}
	c.printf("Volume: %d%%\n", v)
}

func (c *Console) cmdSeek(_ context.Context, args []string) {
	if len(args) != 1 {
		c.printf("Usage: seek <percent|M:SS>\n")
		return
	}

	fraction, err := seekFraction(args[0], c.player.GetStatus().Progress.Length)
	if err != nil {
		c.printf("Usage: seek <percent|M:SS>\n")
		return
	}
	if err := c.player.Seek(fraction); err != nil {
		c.printf("Nothing is playing.\n")
		return
	}
	c.printf("Seeked to %d%%.\n", percent(fraction))
}

func (c *Console) cmdLyrics(_ context.Context, _ []string) {
	if c.player.GetStatus().Current == nil {
		c.printf("Nothing is playing.\n")
		return
	}
	text, ok := c.player.Lyrics()
	if !ok {
		c.printf("Loading lyrics...\n")
		return
	}
	c.printf("%s\n", text)
}

func (c *Console) cmdDownload(ctx context.Context, _ []string) {
	path, err := c.player.Download(ctx)
	if err != nil {
		c.printf("%s\n", c.messageFor(err))
		return
	}
	c.printf("Saved to %s\n", path)
}

func (c *Console) cmdStatus(_ context.Context, _ []string) {
	status := c.player.GetStatus()
	if status.Current == nil {
		c.printf("Nothing is playing. Queue: %d\n", len(status.Queue))
		return
	}

	state := "Playing"
	if status.Paused {
		state = "Paused"
	}
	c.printf("%s: %s\n", state, displayName(*status.Current))
	c.printf("  %s / %s  vol %d%%  [%d/%d]  %s\n",
		formatDuration(status.Progress.Position),
		formatDuration(status.Progress.Length),
		percent(status.Volume),
		status.CurrentIndex+1, len(status.Queue),
		status.FetchState)
}

func (c *Console) cmdHelp(_ context.Context, _ []string) {
	for _, cmd := range c.commands {
		alias := ""
		if len(cmd.names) > 1 {
			alias = " (" + strings.Join(cmd.names[1:], ", ") + ")"
		}
		c.printf("  %-22s %s%s\n", cmd.usage, cmd.help, alias)
	}
}

// report prints the message for a failed navigation.
func (c *Console) report(err error) {
	if err != nil {
		c.printf("%s\n", c.messageFor(err))
	}
}

func (c *Console) messageFor(err error) string {
	return c.player.MessageFor(err)
}

func (c *Console) completer() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(c.commands))
	for _, cmd := range c.commands {
		items = append(items, readline.PcItem(cmd.names[0]))
	}
	return readline.NewPrefixCompleter(items...)
}

func (c *Console) setOutput(w io.Writer) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	c.out = w
}

func (c *Console) printf(format string, args ...any) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

func (c *Console) setResults(tracks []track.Track) {
	c.resultsMu.Lock()
	defer c.resultsMu.Unlock()
	c.results = tracks
}

func (c *Console) lastResults() []track.Track {
	c.resultsMu.Lock()
	defer c.resultsMu.Unlock()
	return c.results
}
