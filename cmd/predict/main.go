// Command predict prints the predicted food quantity for one event.
//
//	predict '{"date":"2024-06-15","event_type":"Wedding","attendees":150}'
//
// The prediction, rounded to two decimals, is the only line on stdout.
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

const usage = `usage: predict '{"date":"YYYY-MM-DD","event_type":"...","attendees":N}'`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return errors.New(usage)
	}

	cfg, err := config.Load(config.WithLogLevel("warn"))
	if err != nil {
		return err
	}
	if err := log.Setup(cfg.LogConfig()); err != nil {
		return err
	}

	req, err := forecast.ParseRequest([]byte(args[0]))
	if err != nil {
		return err
	}
	p, err := forecast.LoadPredictor(cfg.Artifacts)
	if err != nil {
		return err
	}
	v, err := p.Predict(req)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(stdout, forecast.FormatPrediction(v))
	return err
}
