// Command evaluate scores the scorer output for a partition with MAP@12 and
// prints the value, rounded to five decimals, on stdout.
//
// Usage:
//
//	go run ./cmd/evaluate [-config configs/development.yaml] [partition] [params]
//
// params selects the scorer output file libffm/for_<partition>/output_<params>.
// Enabled result sinks receive the report; a sink failure still prints the
// value but exits non-zero.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/internal/app"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/internal/pipeline"
)

func main() {
	os.Exit(app.Main(app.Program{
		Name:    "evaluate",
		Usage:   "[-config path] [partition] [params]",
		MaxArgs: 2,
		Run: func(ctx context.Context, runner *pipeline.Runner, args app.Args, stdout io.Writer) error {
			report, err := runner.Evaluate(ctx, args.Partition, args.Params)
			if report.K > 0 {
				fmt.Fprintln(stdout, strconv.FormatFloat(report.MAP, 'f', -1, 64))
			}
			return err
		},
	}, os.Args[1:], os.Stdout))
}
