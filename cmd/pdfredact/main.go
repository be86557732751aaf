package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/digitorus/pdfredact/cli"
)

func main() {
	if len(os.Args) < 2 {
		cli.Usage()
		return
	}

	// Interrupts cancel a running export; no partial output is written.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "find":
		cli.FindCommand(ctx)
	case "redact":
		cli.RedactCommand(ctx)
	case "preview":
		cli.PreviewCommand(ctx)
	case "-h", "-help", "--help", "help":
		cli.Usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		cli.Usage()
	}
}
