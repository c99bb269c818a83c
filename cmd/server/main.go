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

	"weatheragg/internal/server"
)

func main() {
	var (
		port     = flag.Int("port", 4567, "TCP port to listen on")
		snapshot = flag.String("snapshot", "weatherInfo.json", "path to the durable snapshot file")
		wal      = flag.String("wal", "", "path to the write-ahead log (default <snapshot>.wal)")
		workers  = flag.Int("workers", 5, "size of the connection worker pool")
	)
	flag.Parse()

	walPath := *wal
	if walPath == "" {
		walPath = *snapshot + ".wal"
	}

	srv, err := server.New(server.Config{
		Addr:         fmt.Sprintf(":%d", *port),
		SnapshotPath: *snapshot,
		WALPath:      walPath,
		Workers:      *workers,
	})
	if err != nil {
		log.Fatalf("server: %v", err)
	}

	if err := srv.Start(); err != nil {
		log.Fatalf("server: start: %v", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Printf("server: shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		log.Fatalf("server: stop: %v", err)
	}
}
