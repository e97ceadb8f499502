// Command web runs the BrainDock entitlement service: a local HTTP API
// over the persisted license state.
package main

import (
	"context"
	"fmt"
	"os"

	"braindock/internal/app"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	application, err := app.NewApplication(context.Background())
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	return application.Run()
}
