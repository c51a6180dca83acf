package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/unftlabs/go-nftbridge/chain"
)

func receive(args []string) error {
	fs := flag.NewFlagSet("receive", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	payloadHex := fs.String("payload", "", "Hex-encoded transfer payload")
	senderHex := fs.String("sender", "", "Hex-encoded 20-byte source address (optional)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: nftbridge receive [options]

Apply an inbound transfer payload as the gateway would deliver it. Mints
the token for the receiver named inside the payload. Duplicate payloads
are ignored.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  nftbridge receive --payload 554e01...
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *payloadHex == "" {
		fs.Usage()
		return fmt.Errorf("--payload required")
	}
	payload, err := hex.DecodeString(*payloadHex)
	if err != nil {
		return fmt.Errorf("decode payload hex: %w", err)
	}
	var sender chain.ForeignAddress
	if *senderHex != "" {
		if sender, err = chain.ParseForeignAddress(*senderHex); err != nil {
			return err
		}
	}

	a, err := openApp(*configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	caller, err := a.gatewayCaller()
	if err != nil {
		return err
	}

	if err := a.bridge.OnReceive(context.Background(), caller, sender, payload); err != nil {
		return err
	}

	fmt.Println("Inbound transfer applied")
	return nil
}
