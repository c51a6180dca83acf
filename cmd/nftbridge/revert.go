package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/unftlabs/go-nftbridge/chain"
)

func revert(args []string) error {
	fs := flag.NewFlagSet("revert", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	payloadHex := fs.String("payload", "", "Hex-encoded original transfer payload")
	senderHex := fs.String("sender", "", "Hex-encoded 32-byte original sender identity")
	amountStr := fs.String("amount", "1", "Reverted amount (decimal or 0x hex)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: nftbridge revert [options]

Apply a revert for a failed outbound transfer. Restores the token when
the payload matches an in-transit pending transfer; otherwise records an
audit event and changes nothing.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  nftbridge revert --payload 554e01... --sender 0x0101...01
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
	var sender chain.Identity
	if *senderHex != "" {
		if sender, err = chain.ParseIdentity(*senderHex); err != nil {
			return err
		}
	}
	amount, err := chain.ParseAmount(*amountStr)
	if err != nil {
		return err
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

	if err := a.bridge.OnRevert(context.Background(), caller, sender, amount, payload); err != nil {
		return err
	}

	fmt.Println("Revert applied")
	return nil
}
