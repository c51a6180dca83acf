package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/unftlabs/go-nftbridge/registry"
)

func status(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	tokenID := fs.Uint64("token", 0, "Show a single token record")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: nftbridge status [options]

Show registry state and token records.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Full registry
  nftbridge status

  # One token
  nftbridge status --token 1
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
	ctx := context.Background()

	st, err := a.reg.State(ctx)
	if err != nil {
		return err
	}

	if *tokenID != 0 {
		rec, err := a.reg.Record(ctx, *tokenID)
		if err != nil {
			return err
		}
		printRecord(rec)
		return nil
	}

	fmt.Printf("=== Registry ===\n")
	fmt.Printf("  authority:     %s\n", st.Authority)
	fmt.Printf("  total supply:  %d\n", st.TotalSupply)
	fmt.Printf("  next token id: %d\n", st.NextTokenID)

	records, err := a.reg.Records(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("\nNo tokens recorded")
		return nil
	}

	fmt.Printf("\n%-10s %-12s %-20s %s\n", "TOKEN", "STATUS", "NAME", "OWNER")
	for _, rec := range records {
		fmt.Printf("%-10d %-12s %-20s %s\n", rec.TokenID, rec.Status, rec.Name, rec.Owner)
	}
	return nil
}

func printRecord(rec *registry.TokenRecord) {
	fmt.Printf("Token %d\n", rec.TokenID)
	fmt.Printf("  status:     %s\n", rec.Status)
	fmt.Printf("  owner:      %s\n", rec.Owner)
	fmt.Printf("  ledger ref: %s\n", rec.LedgerRef)
	fmt.Printf("  name:       %s\n", rec.Name)
	fmt.Printf("  symbol:     %s\n", rec.Symbol)
	fmt.Printf("  uri:        %s\n", rec.URI)
	if rec.Pending != nil {
		fmt.Printf("  in transit to %s (receiver %s)\n",
			rec.Pending.DestinationChain, rec.Pending.Receiver)
	}
}
