package domain

import (
	"fmt"
	"time"
)

// Satellite identifies which spacecraft captured an archive file.
type Satellite string

const (
	SatelliteGMS5  Satellite = "GMS5"
	SatelliteGOES9 Satellite = "GOES9"
)

// CoverageWindow is one satellite's span of hourly captures in the archive.
// Start and End are inclusive instants.
type CoverageWindow struct {
	Satellite Satellite
	Start     time.Time
	End       time.Time
	BasePath  string
}

// coverageWindows lists the archive's spans in chronological order.
// The windows are contiguous to within one hour and never overlap.
var coverageWindows = [2]CoverageWindow{
	{
		Satellite: SatelliteGMS5,
		Start:     time.Date(1995, 6, 13, 6, 0, 0, 0, time.UTC),
		End:       time.Date(2003, 5, 22, 0, 0, 0, 0, time.UTC),
		BasePath:  "/pub/GMS5/VISSR",
	},
	{
		Satellite: SatelliteGOES9,
		Start:     time.Date(2003, 5, 22, 1, 0, 0, 0, time.UTC),
		End:       time.Date(2005, 6, 28, 2, 0, 0, 0, time.UTC),
		BasePath:  "/pub/GOES9-Pacific/VISSR",
	},
}

// Resolve maps an instant to the satellite whose coverage window contains
// it. Both window boundaries are inclusive. The second return is false when
// the instant falls outside the archive entirely.
func Resolve(t time.Time) (Satellite, bool) {
	for _, w := range coverageWindows {
		if !t.Before(w.Start) && !t.After(w.End) {
			return w.Satellite, true
		}
	}
	return "", false
}

// Window returns the coverage window for a satellite.
func Window(sat Satellite) (CoverageWindow, bool) {
	for _, w := range coverageWindows {
		if w.Satellite == sat {
			return w, true
		}
	}
	return CoverageWindow{}, false
}

// ArchiveMemberSuffix marks the infrared band 1 member inside the hourly tar.
const ArchiveMemberSuffix = "IR1.A.IMG.gz"

// RemoteDir derives the FTP directory holding a request's hourly archive,
// e.g. "/pub/GMS5/VISSR/200001/01".
func RemoteDir(sat Satellite, r Request) string {
	w, _ := Window(sat)
	return fmt.Sprintf("%s/%04d%02d/%02d", w.BasePath, r.Year, r.Month, r.Day)
}

// ArchiveName derives the hourly tar filename,
// e.g. "VISSR_GMS5_200001010000.tar".
func ArchiveName(sat Satellite, r Request) string {
	return fmt.Sprintf("VISSR_%s_%04d%02d%02d%02d00.tar", sat, r.Year, r.Month, r.Day, r.Hour)
}

// ImageFileName derives the local name for the decompressed sensor file,
// e.g. "VISSR_20000101_0000_IR1.A.IMG".
func ImageFileName(r Request) string {
	return fmt.Sprintf("VISSR_%04d%02d%02d_%02d00_IR1.A.IMG", r.Year, r.Month, r.Day, r.Hour)
}
