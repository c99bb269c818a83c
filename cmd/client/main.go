package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"weatheragg/internal/queryclient"
)

func main() {
	serverURL, stationID, err := queryclient.ParseArgs(os.Args[1:])
	if err != nil {
		if errors.Is(err, queryclient.ErrUsage) {
			fmt.Fprintln(os.Stderr, "usage: client <server-url> [station-id]")
		}
		os.Exit(1)
	}

	c := queryclient.New(serverURL, stationID)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	out, err := c.Fetch(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(out)
}
