// Command render decodes a locally stored VISSR IR sensor file and writes
// the false-color JPEG, without touching the archive server. Useful for
// inspecting previously downloaded files and for tuning the colormap.
//
// Usage:
//
//	go run ./cmd/render \
//	  -input VISSR_20000101_1200_IR1.A.IMG \
//	  -output 20000101_1200.jpg \
//	  -year 2000 -month 1 -day 1 -hour 12
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/couchcryptid/vissr-imagery-service/internal/domain"
	"github.com/couchcryptid/vissr-imagery-service/internal/observability"
	"github.com/couchcryptid/vissr-imagery-service/internal/render"
)

func main() {
	input := flag.String("input", "", "path to a raw IR1 sensor file")
	output := flag.String("output", "out.jpg", "path for the rendered JPEG")
	year := flag.Int("year", 0, "observation year, used for the caption and coverage lookup")
	month := flag.Int("month", 0, "observation month")
	day := flag.Int("day", 0, "observation day")
	hour := flag.Int("hour", 0, "observation hour (UTC)")
	quality := flag.Int("quality", 90, "JPEG quality in [1, 100]")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "-input is required")
		flag.Usage()
		os.Exit(2)
	}

	logger := observability.NewLogger("info", "text")

	req, err := domain.NewRequest(*year, *month, *day, *hour)
	if err != nil {
		fatal("invalid observation time: %v", err)
	}
	sat, ok := domain.Resolve(req.Time())
	if !ok {
		fatal("observation time %s is outside archive coverage", req)
	}

	raw, err := os.ReadFile(*input)
	if err != nil {
		fatal("read sensor file: %v", err)
	}

	result, err := domain.Decode(raw, domain.DefaultCalibration)
	if err != nil {
		fatal("decode sensor file: %v", err)
	}
	logger.Info("decoded sensor file",
		"strategy", result.Strategy,
		"width", result.Grid.Width,
		"height", result.Grid.Height,
	)

	renderer := render.New(render.DefaultOptions(), logger)
	img, err := renderer.Render(result.Grid, sat, req)
	if err != nil {
		fatal("render image: %v", err)
	}

	b, err := img.EncodeJPEG(*quality)
	if err != nil {
		fatal("encode jpeg: %v", err)
	}
	if err := os.WriteFile(*output, b, 0o644); err != nil {
		fatal("write output: %v", err)
	}

	logger.Info("wrote image", "path", *output, "bytes", len(b))
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
