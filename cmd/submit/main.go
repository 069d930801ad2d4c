// Command submit ranks the scorer output for the test candidates and writes
// the submission file.
//
// Usage:
//
//	go run ./cmd/submit [-config configs/development.yaml] [partition] [params]
package main

import (
	"context"
	"io"
	"os"

	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/internal/app"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/internal/pipeline"
)

func main() {
	os.Exit(app.Main(app.Program{
		Name:    "submit",
		Usage:   "[-config path] [partition] [params]",
		MaxArgs: 2,
		Run: func(ctx context.Context, runner *pipeline.Runner, args app.Args, _ io.Writer) error {
			_, err := runner.Submit(ctx, args.Partition, args.Params)
			return err
		},
	}, os.Args[1:], os.Stdout))
}
