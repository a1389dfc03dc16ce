// Command train fits the event type encoder and the random forest on the
// event dataset, generating the dataset first when it does not exist.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/YuminosukeSato/foodcast/internal/config"
	"github.com/YuminosukeSato/foodcast/internal/forecast"
	"github.com/YuminosukeSato/foodcast/pkg/errors"
	"github.com/YuminosukeSato/foodcast/pkg/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) > 0 {
		return errors.Newf("train takes no arguments, got %q", args)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := log.Setup(cfg.LogConfig()); err != nil {
		return err
	}

	if _, err := forecast.NewTrainer(cfg).Run(ctx); err != nil {
		log.GetLogger().Error("Training failed", err)
		return err
	}
	fmt.Fprintln(stdout, "Model trained and saved successfully")
	return nil
}
