package main

import (
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Activity is a colored box covering [Start, End] on the time axis.
type Activity struct {
	Start float64
	End   float64
	Color color.Color
	Label string
}

// Marker is a single glyph drawn at one instant on the time axis.
type Marker struct {
	Time  float64
	Glyph draw.GlyphStyle
}

// TimelinePlot renders activities and markers as a horizontal strip at a
// fixed Y location, so state machine history can share a plot with ordinary
// numeric series.
type TimelinePlot struct {
	Activities []Activity
	Markers    []Marker
	Location   float64
	Height     vg.Length
	BoxStyle   draw.LineStyle
	TextStyle  draw.TextStyle
}

var _ plot.Plotter = &TimelinePlot{}

func NewTimelinePlot(activities []Activity, markers []Marker, loc float64, height vg.Length) *TimelinePlot {
	return &TimelinePlot{
		Activities: activities,
		Markers:    markers,
		Location:   loc,
		Height:     height,
		BoxStyle:   plotter.DefaultLineStyle,
		TextStyle: text.Style{
			Font:     font.From(plotter.DefaultFont, plotter.DefaultFontSize),
			Rotation: 0,
			XAlign:   draw.XCenter,
			YAlign:   draw.YCenter,
			Handler:  plot.DefaultTextHandler,
		},
	}
}

func (t *TimelinePlot) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	y := trY(t.Location)
	if !c.ContainsY(y) {
		return
	}

	for _, activity := range t.Activities {
		xStart, xEnd := trX(activity.Start), trX(activity.End)
		pts := []vg.Point{
			{X: xStart, Y: y - t.Height/2},
			{X: xEnd, Y: y - t.Height/2},
			{X: xEnd, Y: y + t.Height/2},
			{X: xStart, Y: y + t.Height/2},
			{X: xStart, Y: y - t.Height/2},
		}
		c.FillPolygon(activity.Color, c.ClipPolygonX(pts[0:4]))
		c.StrokeLines(t.BoxStyle, c.ClipLinesX(pts)...)
		// only label boxes wide enough to hold their text
		if activity.Label != "" && xEnd-xStart >= t.TextStyle.Width(activity.Label) {
			c.FillText(t.TextStyle, vg.Point{
				X: (xStart + xEnd) / 2,
				Y: y,
			}, activity.Label)
		}
	}

	for _, marker := range t.Markers {
		c.DrawGlyph(marker.Glyph, vg.Point{
			X: trX(marker.Time),
			Y: y,
		})
	}
}

func (t *TimelinePlot) DataRange() (xmin, xmax, ymin, ymax float64) {
	if len(t.Activities) == 0 && len(t.Markers) == 0 {
		return t.Location, t.Location, t.Location, t.Location
	}
	xmin, xmax = math.Inf(1), math.Inf(-1)
	for _, activity := range t.Activities {
		xmin = math.Min(xmin, activity.Start)
		xmax = math.Max(xmax, activity.End)
	}
	for _, marker := range t.Markers {
		xmin = math.Min(xmin, marker.Time)
		xmax = math.Max(xmax, marker.Time)
	}
	return xmin, xmax, t.Location, t.Location
}
