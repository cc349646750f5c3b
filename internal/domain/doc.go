// Package domain models the GMS-5 / GOES-9 VISSR infrared archive.
//
// # Data Source
//
// Imagery comes from the Chiba University CEReS historical archive, an
// anonymous FTP server that holds hourly VISSR (Visible and Infrared Spin
// Scan Radiometer) captures from two geostationary satellites:
//
//	GMS-5  (140°E)          1995-06-13 06:00 UTC through 2003-05-22 00:00 UTC
//	GOES-9 (155°E, backup)  2003-05-22 01:00 UTC through 2005-06-28 02:00 UTC
//
// The two coverage windows are inclusive on both ends and do not overlap;
// GOES-9 took over one hour after the final GMS-5 capture.
//
// # Archive Layout
//
// Directory and file naming on the FTP server:
//
//	<base>/<YYYYMM>/<DD>/VISSR_<SATELLITE>_<YYYYMMDDHH>00.tar
//
// where <base> is /pub/GMS5/VISSR or /pub/GOES9-Pacific/VISSR. Each hourly
// tar holds one gzip-compressed file per band; the infrared band 1 member
// ends in "IR1.A.IMG.gz".
//
// # Sensor File Format
//
// A VISSR IMG file is a 352-byte header followed by row-major unsigned
// 8-bit pixel samples. Bytes 8-10 and 10-12 of the header hold the declared
// width and height as big-endian 16-bit integers. Three decades of archive
// handling have left many files with wrong or zeroed geometry fields and
// truncated pixel records, so decoding treats the header as a hint, never
// as ground truth. The nominal full-disk geometry is 2366x2366.
//
// # Calibration
//
// Samples are mapped to brightness temperature with a linear ramp over the
// instrument's dynamic range, 180 K at sample 0 to 320 K at sample 255.
// This is a proxy calibration, not a physical radiance inversion; the
// archive does not ship usable calibration tables for these years. See
// [Calibration].
package domain
