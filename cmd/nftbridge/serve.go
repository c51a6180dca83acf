package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/unftlabs/go-nftbridge/feed"
)

func serve(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	addr := fs.String("addr", "", "Listen address (overrides config feed_addr)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: nftbridge serve [options]

Run the websocket event feed. Clients connect to /ws for live journal
events; /events returns the full journal as JSON.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  nftbridge serve --addr :8480
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := openApp(*configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	listen := a.cfg.FeedAddr
	if *addr != "" {
		listen = *addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := feed.NewHub(a.events, a.log)
	srv := feed.NewServer(hub, a.events, a.log)
	return srv.Start(ctx, listen)
}
