package domain

import "math"

// Converted holds one sample's calibrated field components in physical
// units: horizontal intensity H, declination D, vertical intensity Z, and
// the derived total field F.
type Converted struct {
	H float64
	D float64
	Z float64
	F float64
}

// ConvertedSample is a calibrated reading stamped with its absolute second
// of day, ready for day assembly.
type ConvertedSample struct {
	SecondOfDay int
	Values      Converted
}

// Convert applies the calibration convention to one raw reading. Pure and
// deterministic: same inputs always produce the same outputs. A zero
// denominator (Hs, Ds, Zs, Hb) propagates as a non-finite result for the
// sample; it never panics.
func Convert(slope SlopeOffset, scaling Scaling, rawH, rawD, rawZ float64) Converted {
	h := ((rawH*slope.LS + slope.LO + slope.H) / scaling.Hs) + scaling.Hb
	d := (((rawD*slope.LS + slope.LO + slope.D) / scaling.Ds) * (1 / scaling.Hb) * (3438.0 / 60.0)) + scaling.Db
	z := ((rawZ*slope.LS + slope.LO + slope.Z) / scaling.Zs) + scaling.Zb

	return Converted{H: h, D: d, Z: z, F: TotalField(h, d, z)}
}

// TotalField derives the total field magnitude F from calibrated H, D, Z.
// D is in the convention's arcminute-scaled units, hence the /60 before
// the degree-to-radian conversion.
func TotalField(h, d, z float64) float64 {
	tan := math.Tan(d / 60.0 * math.Pi / 180.0)
	return math.Sqrt(h*h + (h*tan)*(h*tan) + z*z)
}

// ConvertRecord calibrates every sample of an hourly record and stamps each
// with its second of day. Samples are converted element-wise in order;
// placement on the day grid (and dropping of out-of-range seconds) is the
// assembler's job.
func ConvertRecord(slope SlopeOffset, scaling Scaling, rec HourlyRecord) []ConvertedSample {
	out := make([]ConvertedSample, len(rec.Samples))
	for i, s := range rec.Samples {
		out[i] = ConvertedSample{
			SecondOfDay: s.SecondOfDay(),
			Values:      Convert(slope, scaling, s.H, s.D, s.Z),
		}
	}
	return out
}
