package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/unftlabs/go-nftbridge/chain"
)

func transfer(args []string) error {
	fs := flag.NewFlagSet("transfer", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	callerHex := fs.String("caller", "", "Hex-encoded 32-byte owner identity")
	tokenID := fs.Uint64("token", 0, "Token id to transfer")
	dest := fs.Uint64("dest", 0, "Destination chain id")
	receiverHex := fs.String("receiver", "", "Hex-encoded 20-byte destination address")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: nftbridge transfer [options]

Burn a token locally and encode the outbound transfer payload. The
payload is printed for relaying; a revert restores the token if the
destination rejects it.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  nftbridge transfer --token 1 --caller 0x0101...01 --dest 7001 --receiver 0xdeadbeef...
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *callerHex == "" || *receiverHex == "" || *tokenID == 0 {
		fs.Usage()
		return fmt.Errorf("--token, --caller and --receiver required")
	}
	caller, err := chain.ParseIdentity(*callerHex)
	if err != nil {
		return err
	}
	receiver, err := chain.ParseForeignAddress(*receiverHex)
	if err != nil {
		return err
	}

	a, err := openApp(*configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	receipt, err := a.bridge.InitiateTransfer(context.Background(), caller, *tokenID, chain.ID(*dest), receiver)
	if err != nil {
		return err
	}

	fmt.Printf("Transfer initiated: token %d -> %s\n", *tokenID, receipt.DestinationChain)
	fmt.Printf("  receipt:  %s\n", receipt.ID)
	fmt.Printf("  receiver: %s\n", receiver)
	sent := a.gateway.Sent()
	if len(sent) > 0 {
		last := sent[len(sent)-1]
		fmt.Printf("  payload:  %s\n", hex.EncodeToString(last.Payload))
	}
	return nil
}
