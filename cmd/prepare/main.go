// Command prepare loads the reference tables and writes the FFM train and
// test feature files for a dataset partition.
//
// Usage:
//
//	go run ./cmd/prepare [-config configs/development.yaml] [partition]
//
// With partition "cv" inputs are read from the for_cv/ sub-directories and
// the feature files land in libffm/for_cv/.
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
		Name:    "prepare",
		Usage:   "[-config path] [partition]",
		MaxArgs: 1,
		Run: func(ctx context.Context, runner *pipeline.Runner, args app.Args, _ io.Writer) error {
			_, err := runner.Prepare(ctx, args.Partition)
			return err
		},
	}, os.Args[1:], os.Stdout))
}
