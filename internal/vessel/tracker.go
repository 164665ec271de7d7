// Package vessel aggregates decoded rows per MMSI into a live picture of the
// vessels heard: identity, latest kinematics and track.
package vessel

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/golang/geo/s2"
	"github.com/patrickmn/go-cache"

	"ais_parser/internal/record"
)

// EarthRadius is the mean Earth radius in metres.
const EarthRadius = 6371008.8

// DefaultMaxTrack bounds the number of track points kept per vessel.
const DefaultMaxTrack = 10000

// Point is one position fix on a vessel's track.
type Point struct {
	Time time.Time `json:"time"`
	Lat  float64   `json:"lat"`
	Lon  float64   `json:"lon"`
	SOG  *float64  `json:"sog,omitempty"`
}

// Vessel is what is known about one MMSI.
type Vessel struct {
	MMSI        uint32    `json:"mmsi"`
	Name        string    `json:"name,omitempty"`
	CallSign    string    `json:"call_sign,omitempty"`
	IMO         uint32    `json:"imo,omitempty"`
	ShipType    *uint8    `json:"ship_type,omitempty"`
	Destination string    `json:"destination,omitempty"`
	Lat         *float64  `json:"lat,omitempty"`
	Lon         *float64  `json:"lon,omitempty"`
	SOG         *float64  `json:"sog,omitempty"`
	COG         *float64  `json:"cog,omitempty"`
	Heading     *float64  `json:"heading,omitempty"`
	NavStatus   *uint8    `json:"nav_status,omitempty"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	MsgCount    int       `json:"msg_count"`
	Distance    float64   `json:"distance_m"` // Along the track, in metres.
	Track       []Point   `json:"-"`
}

// ShipTypeLabel returns the ship type as text, or "" if unknown.
func (v *Vessel) ShipTypeLabel() string {
	if v.ShipType == nil {
		return ""
	}
	return record.ShipTypeLabel(*v.ShipType)
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithMaxTrack sets the per-vessel track limit. Older points are dropped.
func WithMaxTrack(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.maxTrack = n
		}
	}
}

// WithClock replaces time.Now for rows without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// Tracker holds per-vessel state. Vessels not heard from within the TTL are
// forgotten. It is safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	vessels  *cache.Cache
	maxTrack int
	now      func() time.Time

	onVesselNew func(*Vessel)
}

// NewTracker creates a Tracker. A ttl of zero keeps vessels forever.
func NewTracker(ttl time.Duration, opts ...Option) *Tracker {
	expiry, cleanup := cache.NoExpiration, time.Duration(0)
	if ttl > 0 {
		expiry, cleanup = ttl, ttl/2
	}
	t := &Tracker{
		vessels:  cache.New(expiry, cleanup),
		maxTrack: DefaultMaxTrack,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// OnVesselNew sets a callback for when a new MMSI is first heard.
func (t *Tracker) OnVesselNew(fn func(*Vessel)) {
	t.onVesselNew = fn
}

func key(mmsi uint32) string {
	return strconv.FormatUint(uint64(mmsi), 10)
}

// Observe folds row into the vessel's state and returns the row with
// identity fields filled from earlier static messages.
func (t *Tracker) Observe(row record.Row) record.Row {
	if row.MMSI == 0 {
		return row
	}

	seen := t.now()
	if row.Time != nil {
		seen = *row.Time
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var v *Vessel
	isNew := false
	if obj, ok := t.vessels.Get(key(row.MMSI)); ok {
		v = obj.(*Vessel)
	} else {
		v = &Vessel{MMSI: row.MMSI, FirstSeen: seen}
		isNew = true
	}

	v.MsgCount++
	if seen.After(v.LastSeen) {
		v.LastSeen = seen
	}

	// Identity: first non-empty value wins.
	if v.Name == "" {
		v.Name = row.VesselName
	}
	if v.CallSign == "" {
		v.CallSign = row.CallSign
	}
	if v.IMO == 0 && row.IMO != nil {
		v.IMO = *row.IMO
	}
	if row.ShipType != nil && (v.ShipType == nil || *v.ShipType == 0) {
		st := *row.ShipType
		v.ShipType = &st
	}
	if row.Destination != "" {
		v.Destination = row.Destination
	}

	if row.HasPosition() {
		p := Point{Time: seen, Lat: *row.Lat, Lon: *row.Lon, SOG: row.SOG}
		if n := len(v.Track); n > 0 {
			v.Distance += distance(v.Track[n-1], p)
		}
		v.Track = append(v.Track, p)
		if len(v.Track) > t.maxTrack {
			v.Track = append(v.Track[:0:0], v.Track[len(v.Track)-t.maxTrack:]...)
		}
		v.Lat, v.Lon = row.Lat, row.Lon
		v.SOG, v.COG, v.Heading = row.SOG, row.COG, row.Heading
		if row.NavStatus != nil {
			v.NavStatus = row.NavStatus
		}
	}

	t.vessels.SetDefault(key(row.MMSI), v)

	if row.VesselName == "" {
		row.VesselName = v.Name
	}
	if row.CallSign == "" {
		row.CallSign = v.CallSign
	}
	if row.IMO == nil && v.IMO != 0 {
		imo := v.IMO
		row.IMO = &imo
	}
	if row.ShipType == nil && v.ShipType != nil {
		st := *v.ShipType
		row.ShipType = &st
	}

	if isNew && t.onVesselNew != nil {
		t.onVesselNew(v.copy())
	}
	return row
}

// distance returns the great-circle distance between two fixes in metres.
func distance(a, b Point) float64 {
	pa := s2.LatLngFromDegrees(a.Lat, a.Lon)
	pb := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return pa.Distance(pb).Radians() * EarthRadius
}

func (v *Vessel) copy() *Vessel {
	c := *v
	c.Track = append([]Point(nil), v.Track...)
	return &c
}

// Get returns a snapshot of one vessel.
func (t *Tracker) Get(mmsi uint32) (*Vessel, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	obj, ok := t.vessels.Get(key(mmsi))
	if !ok {
		return nil, false
	}
	return obj.(*Vessel).copy(), true
}

// Track returns the recorded positions of one vessel, oldest first.
func (t *Tracker) Track(mmsi uint32) []Point {
	v, ok := t.Get(mmsi)
	if !ok {
		return nil
	}
	return v.Track
}

// Vessels returns snapshots of all live vessels, most active first.
func (t *Tracker) Vessels() []*Vessel {
	t.mu.Lock()
	items := t.vessels.Items()
	out := make([]*Vessel, 0, len(items))
	for _, it := range items {
		out = append(out, it.Object.(*Vessel).copy())
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].MsgCount != out[j].MsgCount {
			return out[i].MsgCount > out[j].MsgCount
		}
		return out[i].MMSI < out[j].MMSI
	})
	return out
}

// Count returns the number of live vessels.
func (t *Tracker) Count() int {
	return t.vessels.ItemCount()
}

// Summary totals the tracker's state.
type Summary struct {
	Vessels      []*Vessel `json:"vessels"`
	Messages     int       `json:"messages"`
	WithPosition int       `json:"with_position"`
	WithName     int       `json:"with_name"`
	Distance     float64   `json:"distance_m"`
}

// Summary returns totals and per-vessel snapshots.
func (t *Tracker) Summary() Summary {
	s := Summary{Vessels: t.Vessels()}
	for _, v := range s.Vessels {
		s.Messages += v.MsgCount
		s.Distance += v.Distance
		if v.Lat != nil {
			s.WithPosition++
		}
		if v.Name != "" {
			s.WithName++
		}
	}
	return s
}
