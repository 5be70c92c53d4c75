// Package domain models ground-magnetometer data from the EMBRACE/INPE
// station network and the pure logic that turns raw instrument counts into
// calibrated geomagnetic field components.
//
// # Data Source
//
// Each station records the geomagnetic field once per second and publishes
// one zipped text file per hour. The upstream downloader mirrors those
// archives to local storage; this package never touches the network. An
// archive member carries a short free-text header followed by
// whitespace-delimited rows:
//
//	HH MM SS  H(Ch2)  D(Ch4)  Z(Ch6)  [T1(Ch7)  T2(Ch8)]
//
// The channel columns are raw instrument counts, not physical units. The
// optional trailing columns are sensor temperatures and are frequently
// absent.
//
// # Calibration
//
// Two independently versioned tables convert counts to physical units:
// slope/offset factors (LS, LO plus per-axis offsets) applied first, then
// per-axis scaling factors (scale and bias). Both tables are append-only
// version histories keyed by station and effective-from date; the record in
// force for a given day is the one with the latest effective-from date not
// after that day. See [CalibrationStore.Resolve].
//
// The conversion formulas are a fixed station-network convention:
//
//	H = ((rawH*LS + LO + Hoff) / Hs) + Hb
//	D = (((rawD*LS + LO + Doff) / Ds) * (1/Hb) * (3438/60)) + Db
//	Z = ((rawZ*LS + LO + Zoff) / Zs) + Zb
//	F = sqrt(H² + (H·tan(radians(D/60)))² + Z²)
//
// The 3438/60 factor converts the D intermediate from arcminutes, and the
// division by Hb is a deliberate cross-axis coupling. Neither is an
// approximation to be tidied up; downstream consumers depend on bit-exact
// reproduction of the historical output.
//
// # Day Assembly
//
// A calendar day is exactly 86,400 per-second slots. Hourly records are
// merged onto that grid by absolute second-of-day; seconds with no
// contributing sample stay missing, and a day with no usable archives at
// all is still a valid (all-missing) day. See [Assemble].
package domain
