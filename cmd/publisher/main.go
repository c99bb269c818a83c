package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"weatheragg/internal/publisher"
)

func main() {
	interval := flag.Duration("interval", 3*time.Second, "upload interval")
	flag.Parse()

	args := flag.Args()
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: publisher [-interval 3s] <server-url> <station-file>")
		os.Exit(1)
	}
	serverURL, filePath := args[0], args[1]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("publisher: uploading %s to %s every %s", filePath, serverURL, *interval)
	publisher.New(serverURL, filePath, *interval).Run(ctx)
}
