package domain

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	// headerSize is the fixed VISSR record header length in bytes.
	headerSize = 352

	// geometryOffset is where the big-endian 16-bit width and height live.
	geometryOffset = 8

	// defaultWidth and defaultHeight are the nominal full-disk geometry,
	// substituted when the declared header geometry is implausible.
	defaultWidth  = 2366
	defaultHeight = 2366

	// minPlausibleDim and maxPlausibleDim bound a believable declared
	// dimension. Values outside mean the header field is garbage.
	minPlausibleDim = 100
	maxPlausibleDim = 5000

	// minFallbackHeight is the point below which a width-preserving height
	// recompute is abandoned in favor of a square geometry.
	minFallbackHeight = 100
)

// DecodeStrategy names which decoder produced a grid.
type DecodeStrategy string

const (
	StrategyStrict    DecodeStrategy = "strict"
	StrategyHeuristic DecodeStrategy = "heuristic"
)

// DecodeResult pairs a decoded grid with the strategy that produced it, so
// the caller handles both paths through one value instead of exception-style
// branching.
type DecodeResult struct {
	Strategy DecodeStrategy
	Grid     *TemperatureGrid
}

// DeclaredGeometry reads the width and height fields from the file header.
// ok is false when the file is too short to hold them or either value is
// outside plausible bounds.
func DeclaredGeometry(data []byte) (width, height int, ok bool) {
	if len(data) < geometryOffset+4 {
		return 0, 0, false
	}
	width = int(binary.BigEndian.Uint16(data[geometryOffset : geometryOffset+2]))
	height = int(binary.BigEndian.Uint16(data[geometryOffset+2 : geometryOffset+4]))
	if width < minPlausibleDim || width > maxPlausibleDim ||
		height < minPlausibleDim || height > maxPlausibleDim {
		return width, height, false
	}
	return width, height, true
}

// Decode runs the strict decoder and falls back to the heuristic decoder,
// returning whichever strategy succeeded. Both failing is terminal.
func Decode(data []byte, cal Calibration) (DecodeResult, error) {
	grid, strictErr := DecodeStrict(data, cal)
	if strictErr == nil {
		return DecodeResult{Strategy: StrategyStrict, Grid: grid}, nil
	}

	grid, heurErr := DecodeHeuristic(data, cal)
	if heurErr == nil {
		return DecodeResult{Strategy: StrategyHeuristic, Grid: grid}, nil
	}

	return DecodeResult{}, fmt.Errorf("%w (strict: %v; heuristic: %v)",
		ErrBothDecodersFailed, strictErr, heurErr)
}

// DecodeStrict decodes a well-formed file: the declared header geometry
// must be plausible, and rows are trusted up to the bytes actually present.
// Truncated files yield however many whole records fit — the byte-accurate
// record count — rather than an error, but a garbage header is refused so
// the heuristic decoder can take over.
func DecodeStrict(data []byte, cal Calibration) (*TemperatureGrid, error) {
	width, height, ok := DeclaredGeometry(data)
	if !ok {
		return nil, fmt.Errorf("implausible declared geometry %dx%d", width, height)
	}
	if len(data) <= headerSize {
		return nil, ErrInsufficientData
	}

	available := len(data) - headerSize
	rows := available / width
	if rows > height {
		rows = height
	}
	if rows < 1 {
		return nil, fmt.Errorf("%d pixel bytes cannot fill one %d-sample record", available, width)
	}
	return buildGrid(data[headerSize:], width, rows, cal), nil
}

// DecodeHeuristic recovers a grid from a malformed file. The declared
// geometry is replaced with the nominal full-disk default when implausible;
// a short pixel region first shrinks the height to the whole records
// present, and if that leaves fewer than minFallbackHeight rows the
// geometry collapses to the largest square that fits. The result always
// lies entirely within the bytes present.
func DecodeHeuristic(data []byte, cal Calibration) (*TemperatureGrid, error) {
	if len(data) <= headerSize {
		return nil, ErrInsufficientData
	}

	width, height, ok := DeclaredGeometry(data)
	if !ok {
		width, height = defaultWidth, defaultHeight
	}

	pixels := data[headerSize:]
	available := len(pixels)

	if available < width*height {
		height = available / width
		if height < minFallbackHeight {
			side := int(math.Sqrt(float64(available)))
			if side < 1 {
				return nil, ErrInsufficientData
			}
			width, height = side, side
		}
	}
	return buildGrid(pixels, width, height, cal), nil
}

func buildGrid(pixels []byte, width, height int, cal Calibration) *TemperatureGrid {
	data := make([]float32, width*height)
	for i := range data {
		data[i] = cal.Temperature(pixels[i])
	}
	return &TemperatureGrid{Width: width, Height: height, Data: data}
}
