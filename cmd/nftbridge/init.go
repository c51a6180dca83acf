package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/unftlabs/go-nftbridge/chain"
)

func initCmd(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	authorityHex := fs.String("authority", "", "Hex-encoded 32-byte authority identity")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: nftbridge init [options]

One-time registry initialization. Sets the authority and starts the
token-id watermark.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  nftbridge init --authority 0x0101...01
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *authorityHex == "" {
		fs.Usage()
		return fmt.Errorf("--authority required")
	}
	authority, err := chain.ParseIdentity(*authorityHex)
	if err != nil {
		return err
	}

	a, err := openApp(*configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.bridge.Initialize(context.Background(), authority); err != nil {
		return err
	}

	fmt.Printf("Registry initialized\n")
	fmt.Printf("  authority: %s\n", authority)
	fmt.Printf("  store:     %s\n", a.cfg.StorePath)
	return nil
}
