package record

// Plausible ranges. Values outside them are dropped by Clean.
const (
	maxSOG      = 50.0
	maxCourse   = 360.0
	maxROT      = 720.0
	maxManeuver = 2
)

func validLat(v float64) bool { return v >= -90 && v <= 90 }
func validLon(v float64) bool { return v >= -180 && v <= 180 }

func dropUnless(p **float64, ok func(float64) bool) {
	if *p != nil && !ok(**p) {
		*p = nil
	}
}

// Clean removes out-of-range values, including the pass-through "not
// available" encodings such as 102.3 knots or heading 511. Strings are left
// as decoded.
func (r *Row) Clean() *Row {
	dropUnless(&r.Lat, validLat)
	dropUnless(&r.Lon, validLon)
	if r.Lat == nil || r.Lon == nil {
		r.Lat, r.Lon = nil, nil
	}
	dropUnless(&r.SOG, func(v float64) bool { return v >= 0 && v <= maxSOG })
	dropUnless(&r.COG, func(v float64) bool { return v >= 0 && v <= maxCourse })
	dropUnless(&r.Heading, func(v float64) bool { return v >= 0 && v <= maxCourse })
	dropUnless(&r.ROT, func(v float64) bool { return v >= -maxROT && v <= maxROT })
	if r.Maneuver != nil && *r.Maneuver > maxManeuver {
		r.Maneuver = nil
	}
	r.updateGeohash()
	return r
}
