package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/itchyny/gojq"

	"github.com/rendis/flowcanvas/internal/client"
	"github.com/rendis/flowcanvas/internal/render"
)

// cmdRun triggers a flow run against a running Flow Store Service and
// prints the formatted report, or a jq-filtered view of it.
func cmdRun(args []string) error {
	cfg := loadConfig()

	fs := flag.NewFlagSet("run", flag.ExitOnError)
	addr := fs.String("addr", cfg.BaseURL, "flow store service base URL")
	query := fs.String("query", "", "jq expression applied to the raw run report")
	timeout := fs.Duration("timeout", 60*time.Second, "request timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	report, err := client.New(*addr).RunFlow(ctx)
	if err != nil {
		return err
	}

	if *query == "" {
		fmt.Print(render.FormatRunReport(report))
		return nil
	}
	return printQuery(*query, report)
}

// printQuery runs a jq expression over the report and prints each result
// as a JSON line.
func printQuery(expression string, report any) error {
	q, err := gojq.Parse(expression)
	if err != nil {
		return fmt.Errorf("jq parse error in %q: %w", expression, err)
	}

	// Round-trip through JSON so gojq sees plain maps and slices.
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	iter := q.Run(doc)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if qErr, isErr := v.(error); isErr {
			return fmt.Errorf("jq evaluation error: %w", qErr)
		}
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
	return nil
}
