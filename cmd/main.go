package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"strand.sh/cli/internal/interfaces/cli"
	"strand.sh/cli/internal/interfaces/di"
)

func main() {
	container, err := di.NewContainer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		container.Logger.Println("Received shutdown signal, exiting...")
		os.Exit(1)
	}()

	cli.Execute(container.GetCLIContainer())
}
