package export

// KML (Keyhole Markup Language) files can be viewed in Google Earth, Google
// Maps and other mapping applications.

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"ais_parser/internal/vessel"
)

// KML structures for XML marshalling.
// These follow the KML 2.2 specification: https://developers.google.com/kml/documentation/kmlreference

// KML is the root element of a KML document.
type KML struct {
	XMLName   xml.Name `xml:"kml"`
	Namespace string   `xml:"xmlns,attr"`
	Document  Document `xml:"Document"`
}

// Document contains the document metadata and features.
type Document struct {
	Name        string      `xml:"name"`
	Description string      `xml:"description,omitempty"`
	Styles      []Style     `xml:"Style,omitempty"`
	Placemarks  []Placemark `xml:"Placemark"`
}

// Style defines the visual appearance of features.
type Style struct {
	ID        string     `xml:"id,attr"`
	IconStyle *IconStyle `xml:"IconStyle,omitempty"`
	LineStyle *LineStyle `xml:"LineStyle,omitempty"`
}

// IconStyle defines how icons are displayed.
type IconStyle struct {
	Scale float64 `xml:"scale,omitempty"`
	Icon  Icon    `xml:"Icon"`
}

// Icon specifies the icon image.
type Icon struct {
	Href string `xml:"href"`
}

// LineStyle defines how tracks are drawn. Colours are aabbggrr.
type LineStyle struct {
	Color string  `xml:"color"`
	Width float64 `xml:"width"`
}

// Placemark is a vessel: its latest position and, optionally, its track.
type Placemark struct {
	Name         string        `xml:"name"`
	Description  string        `xml:"description,omitempty"`
	StyleURL     string        `xml:"styleUrl,omitempty"`
	Point        *Point        `xml:"Point,omitempty"`
	LineString   *LineString   `xml:"LineString,omitempty"`
	ExtendedData *ExtendedData `xml:"ExtendedData,omitempty"`
}

// Point represents a geographic location.
type Point struct {
	Coordinates string `xml:"coordinates"` // Format: lon,lat,altitude
}

// LineString is a track, one lon,lat,alt tuple per fix.
type LineString struct {
	Tessellate  int    `xml:"tessellate"`
	Coordinates string `xml:"coordinates"`
}

// ExtendedData holds custom data associated with a placemark.
type ExtendedData struct {
	Data []Data `xml:"Data"`
}

// Data represents a single piece of extended data.
type Data struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value"`
}

func coord(lon, lat float64) string {
	return fmt.Sprintf("%.6f,%.6f,0", lon, lat)
}

// vesselName is the display name for a vessel.
func vesselName(v *vessel.Vessel) string {
	if v.Name != "" {
		return v.Name
	}
	return fmt.Sprintf("MMSI %d", v.MMSI)
}

// BuildKML creates a KML document with one placemark per vessel that has a
// position. Vessels with at least two fixes also get a track placemark.
func BuildKML(vessels []*vessel.Vessel, generated time.Time) KML {
	var placemarks []Placemark
	for _, v := range vessels {
		if v.Lat == nil || v.Lon == nil {
			continue
		}

		data := []Data{
			{Name: "mmsi", Value: fmt.Sprint(v.MMSI)},
			{Name: "msg_count", Value: fmt.Sprint(v.MsgCount)},
			{Name: "last_seen", Value: v.LastSeen.Format(time.RFC3339)},
		}
		if v.CallSign != "" {
			data = append(data, Data{Name: "call_sign", Value: v.CallSign})
		}
		if label := v.ShipTypeLabel(); label != "" {
			data = append(data, Data{Name: "ship_type", Value: label})
		}

		placemarks = append(placemarks, Placemark{
			Name: vesselName(v),
			Description: fmt.Sprintf(
				"MMSI: %d\nMessages: %d\nLast seen: %s",
				v.MMSI, v.MsgCount, v.LastSeen.Format("2006-01-02 15:04:05 UTC"),
			),
			StyleURL:     "#vesselStyle",
			Point:        &Point{Coordinates: coord(*v.Lon, *v.Lat)},
			ExtendedData: &ExtendedData{Data: data},
		})

		if len(v.Track) < 2 {
			continue
		}
		coords := make([]string, len(v.Track))
		for i, p := range v.Track {
			coords[i] = coord(p.Lon, p.Lat)
		}
		placemarks = append(placemarks, Placemark{
			Name:        vesselName(v) + " track",
			Description: fmt.Sprintf("%d fixes, %.1f km", len(v.Track), v.Distance/1000),
			StyleURL:    "#trackStyle",
			LineString:  &LineString{Tessellate: 1, Coordinates: strings.Join(coords, " ")},
		})
	}

	return KML{
		Namespace: "http://www.opengis.net/kml/2.2",
		Document: Document{
			Name:        "AIS Vessels",
			Description: fmt.Sprintf("Vessel positions decoded from AIS messages. Generated %s.", generated.Format("2006-01-02 15:04:05")),
			Styles: []Style{
				{
					ID: "vesselStyle",
					IconStyle: &IconStyle{
						Scale: 0.8,
						Icon: Icon{
							Href: "http://maps.google.com/mapfiles/kml/shapes/sailing.png",
						},
					},
				},
				{
					ID:        "trackStyle",
					LineStyle: &LineStyle{Color: "ff0000ff", Width: 2},
				},
			},
			Placemarks: placemarks,
		},
	}
}

// WriteKML marshals doc with an XML header.
func WriteKML(w io.Writer, doc KML) error {
	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("generate kml: %w", err)
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}
