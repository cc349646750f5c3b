package domain

// KelvinOffset converts brightness temperature to Celsius by subtraction.
const KelvinOffset = 273.15

// Calibration maps raw 8-bit samples linearly onto a brightness-temperature
// range in kelvin. This is an approximation of the instrument's dynamic
// range, not a radiance inversion; see the package doc. It is passed
// explicitly wherever samples are converted so tests can substitute
// alternate constants.
type Calibration struct {
	MinKelvin float64
	MaxKelvin float64
}

// DefaultCalibration is the documented VISSR IR1 proxy range.
var DefaultCalibration = Calibration{MinKelvin: 180.0, MaxKelvin: 320.0}

// Temperature converts one sample to kelvin.
func (c Calibration) Temperature(sample uint8) float32 {
	return float32(c.MinKelvin + (float64(sample)/255.0)*(c.MaxKelvin-c.MinKelvin))
}

// TemperatureGrid is a decoded image: row-major brightness temperatures in
// kelvin. Height*Width always equals len(Data).
type TemperatureGrid struct {
	Width  int
	Height int
	Data   []float32
}

// At returns the temperature at column x, row y.
func (g *TemperatureGrid) At(x, y int) float32 {
	return g.Data[y*g.Width+x]
}
