package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/vane/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "config file path (optional, defaults to ~/.config/vane/config.toml)")
	prefsPath := flag.String("prefs", "", "preferences file path (optional)")
	apiBase := flag.String("api", "", "telemetry API root, e.g. http://127.0.0.1:5000/api/v1 (optional)")
	transport := flag.String("transport", "", "live stream transport: sse or websocket (optional)")
	pollSeconds := flag.Int("poll", 0, "device directory refresh interval in seconds (optional, defaults to 30s)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath: *configPath,
		PrefsPath:  *prefsPath,
		APIBase:    *apiBase,
		Transport:  *transport,
	}
	if poll := *pollSeconds; poll > 0 {
		opts.PollEvery = poll
	}

	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "vane: %v\n", err)
		return 1
	}
	return 0
}
