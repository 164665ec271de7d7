package export

import (
	"errors"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"ais_parser/internal/vessel"
)

// ErrNoTrack is returned when a vessel has no positions to plot.
var ErrNoTrack = errors.New("no track points")

// PlotSize is the default image edge length.
const PlotSize = 8 * vg.Inch

// TrackPlot builds a longitude/latitude plot of a track.
func TrackPlot(title string, track []vessel.Point) (*plot.Plot, error) {
	if len(track) == 0 {
		return nil, ErrNoTrack
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Longitude"
	p.Y.Label.Text = "Latitude"
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(track))
	for i, pt := range track {
		pts[i].X = pt.Lon
		pts[i].Y = pt.Lat
	}

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, fmt.Errorf("track line: %w", err)
	}
	p.Add(line, points)
	return p, nil
}

// SaveTrackPlot renders the track to file. The format follows the file
// extension (.png, .svg, .pdf...).
func SaveTrackPlot(file, title string, track []vessel.Point) error {
	p, err := TrackPlot(title, track)
	if err != nil {
		return err
	}
	if err := p.Save(PlotSize, PlotSize, file); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}
