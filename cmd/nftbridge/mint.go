package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/unftlabs/go-nftbridge/chain"
)

func mint(args []string) error {
	fs := flag.NewFlagSet("mint", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	ownerHex := fs.String("owner", "", "Hex-encoded 32-byte owner identity")
	tokenID := fs.Uint64("token", 0, "Token id (0 allocates the next id)")
	name := fs.String("name", "", "Token name")
	symbol := fs.String("symbol", "", "Token symbol")
	uri := fs.String("uri", "", "Metadata URI")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: nftbridge mint [options]

Mint a new token into the registry.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Allocate the next id
  nftbridge mint --owner 0x0101...01 --name "Ape" --symbol APE --uri ipfs://1

  # Pin an id above the watermark
  nftbridge mint --owner 0x0101...01 --token 42 --name "Ape"
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *ownerHex == "" {
		fs.Usage()
		return fmt.Errorf("--owner required")
	}
	owner, err := chain.ParseIdentity(*ownerHex)
	if err != nil {
		return err
	}

	a, err := openApp(*configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.bridge.Mint(context.Background(), owner, *tokenID, *name, *symbol, *uri)
	if err != nil {
		return err
	}

	fmt.Printf("Minted token %d\n", rec.TokenID)
	fmt.Printf("  owner:      %s\n", rec.Owner)
	fmt.Printf("  ledger ref: %s\n", rec.LedgerRef)
	if rec.URI != "" {
		fmt.Printf("  uri:        %s\n", rec.URI)
	}
	return nil
}
