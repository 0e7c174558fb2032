package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/ferry/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override ferry config path (optional)")
	prefsPath := flag.String("prefs", "", "override UI prefs path (optional)")
	pollSeconds := flag.Int("poll", 0, "status poll interval in seconds (optional, defaults to config)")
	headless := flag.Bool("headless", false, "upload the given files without the TUI and wait for results")
	download := flag.Bool("download", false, "with -headless, save completed results to download_dir")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: ferry [flags] [file.csv ...]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath: *configPath,
		PrefsPath:  *prefsPath,
		Headless:   *headless,
		Download:   *download,
		Files:      flag.Args(),
		Stdout:     os.Stdout,
	}
	if poll := *pollSeconds; poll > 0 {
		opts.PollEvery = poll
	}

	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "ferry: %v\n", err)
		return 1
	}
	return 0
}
