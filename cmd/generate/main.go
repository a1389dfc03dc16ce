// Command generate writes one synthetic event record per day of the
// configured date range to dummy_food_data.csv.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/YuminosukeSato/foodcast/internal/config"
	"github.com/YuminosukeSato/foodcast/internal/forecast"
	"github.com/YuminosukeSato/foodcast/pkg/errors"
	"github.com/YuminosukeSato/foodcast/pkg/log"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) > 0 {
		return errors.Newf("generate takes no arguments, got %q", args)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := log.Setup(cfg.LogConfig()); err != nil {
		return err
	}

	if _, err := forecast.GenerateDataset(cfg); err != nil {
		log.GetLogger().Error("Dataset generation failed", err)
		return err
	}
	fmt.Fprintf(stdout, "Dummy dataset generated and saved as '%s'\n", cfg.Data.CSVPath)
	return nil
}
