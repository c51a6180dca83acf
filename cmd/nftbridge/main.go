package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "init":
		if err := initCmd(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "mint":
		if err := mint(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "transfer":
		if err := transfer(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "receive":
		if err := receive(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "revert":
		if err := revert(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "status":
		if err := status(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "events":
		if err := events(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "serve":
		if err := serve(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Println("nftbridge version 1.0.0")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`nftbridge - cross-chain NFT bridge registry and relay tool

Usage:
  nftbridge <command> [options]

Commands:
  init      Initialize the token registry
  mint      Mint a new token into the registry
  transfer  Burn a token and encode an outbound transfer
  receive   Apply an inbound transfer payload from the gateway
  revert    Apply a revert payload for a failed outbound transfer
  status    Show registry state and token records
  events    Show the event journal and verify its hash chain
  serve     Run the websocket event feed server
  help      Show this help message
  version   Show version information

Examples:
  # Initialize with an authority identity
  nftbridge init --authority 0x<64 hex chars>

  # Mint a token
  nftbridge mint --owner 0x<64 hex chars> --name "Ape" --symbol APE --uri ipfs://1

  # Send token 1 to chain 7001
  nftbridge transfer --token 1 --caller 0x<owner> --dest 7001 --receiver 0x<40 hex chars>

  # Replay a gateway delivery
  nftbridge receive --payload <hex>

For command-specific help, run:
  nftbridge <command> --help`)
}
