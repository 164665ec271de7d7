// Package record flattens decoded messages into the tabular row shape shared
// by every output writer.
package record

import (
	"strconv"
	"strings"
	"time"

	"github.com/gansidui/geohash"

	"ais_parser/internal/extractors/aton"
	"ais_parser/internal/extractors/basestation"
	"ais_parser/internal/extractors/classb"
	"ais_parser/internal/extractors/classbext"
	"ais_parser/internal/extractors/longrange"
	"ais_parser/internal/extractors/position"
	"ais_parser/internal/extractors/staticdata"
	"ais_parser/internal/extractors/voyage"
	"ais_parser/internal/registry"
)

// GeohashPrecision is the geohash length stored with each position.
const GeohashPrecision = 9

// Columns lists the row fields in output order.
var Columns = []string{
	"msg_type", "mmsi", "vessel_name", "call_sign", "imo", "ship_type", "time",
	"lat", "lon", "heading", "rot", "sog", "cog", "nav_status", "maneuver",
	"destination", "geohash", "raw",
}

// Row is one decoded message in tabular form. Pointer fields are nil when
// the message does not carry the value or it is not available.
type Row struct {
	MsgType     uint8      `json:"msg_type"`
	MMSI        uint32     `json:"mmsi"`
	VesselName  string     `json:"vessel_name,omitempty"`
	CallSign    string     `json:"call_sign,omitempty"`
	IMO         *uint32    `json:"imo,omitempty"`
	ShipType    *uint8     `json:"ship_type,omitempty"`
	Time        *time.Time `json:"time,omitempty"`
	Lat         *float64   `json:"lat,omitempty"`
	Lon         *float64   `json:"lon,omitempty"`
	Heading     *float64   `json:"heading,omitempty"`
	ROT         *float64   `json:"rot,omitempty"`
	SOG         *float64   `json:"sog,omitempty"`
	COG         *float64   `json:"cog,omitempty"`
	NavStatus   *uint8     `json:"nav_status,omitempty"`
	Maneuver    *uint8     `json:"maneuver,omitempty"`
	Destination string     `json:"destination,omitempty"`
	Geohash     string     `json:"geohash,omitempty"`
	Raw         string     `json:"raw,omitempty"`
}

// Meta is what the transport knows about a message.
type Meta struct {
	Timestamp string // Receiver timestamp, in any layout ParseTime accepts.
	Raw       string // Armored payload.
}

func f64(v float64) *float64 { return &v }
func u8(v uint8) *uint8      { return &v }

// FromMessage flattens msg into a Row.
func FromMessage(msg registry.Message, meta Meta) Row {
	row := Row{
		MsgType: msg.MsgType(),
		MMSI:    msg.UserID(),
		Raw:     meta.Raw,
	}
	if t, ok := ParseTime(meta.Timestamp); ok {
		row.Time = &t
	}

	switch m := msg.(type) {
	case *position.Result:
		row.Lat, row.Lon = m.Latitude, m.Longitude
		row.Heading = f64(float64(m.TrueHeading))
		row.ROT = m.RateOfTurn
		row.SOG = f64(m.SpeedOverGround)
		row.COG = f64(m.CourseOverGround)
		row.NavStatus = u8(m.NavStatus)
		row.Maneuver = u8(m.SpecialManeuver)

	case *basestation.Result:
		row.Lat, row.Lon = m.Latitude, m.Longitude
		if row.Time == nil {
			if t, ok := m.Time(); ok {
				row.Time = &t
			}
		}

	case *voyage.Result:
		row.VesselName = m.VesselName
		row.CallSign = m.CallSign
		if m.IMO != 0 {
			imo := m.IMO
			row.IMO = &imo
		}
		row.ShipType = u8(m.ShipType)
		row.Destination = m.Destination

	case *classb.Result:
		row.Lat, row.Lon = m.Latitude, m.Longitude
		row.Heading = f64(float64(m.TrueHeading))
		row.SOG = f64(m.SpeedOverGround)
		row.COG = f64(m.CourseOverGround)

	case *classbext.Result:
		row.Lat, row.Lon = m.Latitude, m.Longitude
		row.Heading = f64(float64(m.TrueHeading))
		row.SOG = f64(m.SpeedOverGround)
		row.COG = f64(m.CourseOverGround)
		row.VesselName = m.VesselName
		row.ShipType = u8(m.ShipType)

	case *aton.Result:
		row.Lat, row.Lon = m.Latitude, m.Longitude
		row.VesselName = m.FullName()

	case *staticdata.Result:
		switch m.PartNumber {
		case staticdata.PartA:
			row.VesselName = m.VesselName
		case staticdata.PartB:
			row.CallSign = m.CallSign
			row.ShipType = u8(m.ShipType)
		}

	case *longrange.Result:
		row.Lat, row.Lon = m.Latitude, m.Longitude
		row.SOG = f64(float64(m.SpeedOverGround))
		row.COG = f64(float64(m.CourseOverGround))
		row.NavStatus = u8(m.NavStatus)
	}

	row.updateGeohash()
	return row
}

func (r *Row) updateGeohash() {
	r.Geohash = ""
	if r.Lat != nil && r.Lon != nil && validLat(*r.Lat) && validLon(*r.Lon) {
		r.Geohash, _ = geohash.Encode(*r.Lat, *r.Lon, GeohashPrecision)
	}
}

// HasPosition reports whether both coordinates are present.
func (r *Row) HasPosition() bool {
	return r.Lat != nil && r.Lon != nil
}

// Static reports whether the row carries identity data rather than a
// position.
func (r *Row) Static() bool {
	return !r.HasPosition() && (r.VesselName != "" || r.CallSign != "" || r.ShipType != nil)
}

// timeLayouts are tried in order by ParseTime.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05.000",
	time.RFC3339Nano,
}

// ParseTime parses a receiver timestamp. Bare integers are unix seconds.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), true
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Values renders the row in Columns order. Absent values are empty strings.
func (r Row) Values() []string {
	return []string{
		strconv.Itoa(int(r.MsgType)),
		strconv.FormatUint(uint64(r.MMSI), 10),
		r.VesselName,
		r.CallSign,
		optUint(r.IMO),
		optUint8(r.ShipType),
		optTime(r.Time),
		optFloat(r.Lat),
		optFloat(r.Lon),
		optFloat(r.Heading),
		optFloat(r.ROT),
		optFloat(r.SOG),
		optFloat(r.COG),
		optUint8(r.NavStatus),
		optUint8(r.Maneuver),
		r.Destination,
		r.Geohash,
		r.Raw,
	}
}

func optFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func optUint(v *uint32) string {
	if v == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*v), 10)
}

func optUint8(v *uint8) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(int(*v))
}

func optTime(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.Format(time.RFC3339)
}
