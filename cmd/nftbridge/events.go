package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/unftlabs/go-nftbridge/eventlog"
)

func events(args []string) error {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	typeFilter := fs.String("type", "", "Filter by event type")
	verify := fs.Bool("verify", false, "Verify the journal hash chain")
	output := fs.String("output", "", "Export to file instead of printing")
	format := fs.String("format", "jsonl", "Export format: jsonl or csv")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: nftbridge events [options]

Display the event journal.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Show all events
  nftbridge events

  # Filter by type
  nftbridge events --type TransferInitiated

  # Check journal integrity
  nftbridge events --verify

  # Export for offline analysis
  nftbridge events --output journal.jsonl
  nftbridge events --output journal.csv --format csv
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

	all, err := a.events.Events(context.Background())
	if err != nil {
		return err
	}

	if *verify {
		if err := eventlog.Verify(all); err != nil {
			return fmt.Errorf("journal verification failed: %w", err)
		}
		fmt.Printf("Journal verified: %d events, chain intact\n", len(all))
		return nil
	}

	var display []eventlog.Event
	if *typeFilter != "" {
		for _, e := range all {
			if string(e.Type) == *typeFilter {
				display = append(display, e)
			}
		}
	} else {
		display = all
	}

	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		switch *format {
		case "jsonl":
			err = eventlog.WriteJSONL(f, display)
		case "csv":
			err = eventlog.WriteCSV(f, display)
		default:
			return fmt.Errorf("unknown format %q", *format)
		}
		if err != nil {
			return err
		}
		fmt.Printf("Exported %d events to %s\n", len(display), *output)
		return nil
	}

	if len(display) == 0 {
		fmt.Println("No events recorded")
		return nil
	}

	fmt.Printf("=== Event Journal (%d events) ===\n\n", len(display))
	for _, e := range display {
		ts := e.Timestamp.UTC().Format(time.RFC3339)
		fmt.Printf("#%-6d %-22s token=%-8d %s\n", e.Seq, e.Type, e.TokenID, ts)
		for key, value := range e.Attrs {
			fmt.Printf("        %s: %s\n", key, value)
		}
	}
	return nil
}
