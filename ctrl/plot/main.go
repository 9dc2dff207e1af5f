package main

import (
	"flag"
	"image/color"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/nocfab/nocsim/sim/noc/packetbuf"
	"github.com/nocfab/nocsim/sim/noc/trace"
)

var (
	output = flag.String("o", "", "write the plot to this file instead of opening a window")
	width  = flag.Float64("width", 12, "plot width in inches")
	height = flag.Float64("height", 4, "plot height in inches")
)

func stateColor(state packetbuf.EgressState) color.Color {
	switch state {
	case packetbuf.EgressReady:
		return color.RGBA{192, 192, 64, 255}
	case packetbuf.EgressStreaming:
		return color.RGBA{64, 192, 64, 255}
	case packetbuf.EgressDumping:
		return color.RGBA{192, 64, 64, 255}
	default:
		return color.RGBA{224, 224, 224, 255}
	}
}

func markerGlyph(shape draw.GlyphDrawer) draw.GlyphStyle {
	return draw.GlyphStyle{
		Color:  color.Black,
		Radius: vg.Points(4),
		Shape:  shape,
	}
}

// buildTimeline converts the drain state history into activity boxes, one per
// contiguous run of a non-idle state, and marks command and reset ticks.
func buildTimeline(samples []trace.Sample) *TimelinePlot {
	var activities []Activity
	start := 0
	for i := 1; i <= len(samples); i++ {
		if i < len(samples) && samples[i].Egress == samples[start].Egress {
			continue
		}
		if samples[start].Egress != packetbuf.EgressIdle {
			activities = append(activities, Activity{
				Start: float64(samples[start].Tick),
				End:   float64(samples[i-1].Tick + 1),
				Color: stateColor(samples[start].Egress),
				Label: samples[start].Egress.String(),
			})
		}
		start = i
	}

	var markers []Marker
	for i, sample := range samples {
		accepted := i > 0 && samples[i-1].Out.ControlReady && sample.In.ControlValid
		switch {
		case sample.In.Reset:
			markers = append(markers, Marker{
				Time:  float64(sample.Tick),
				Glyph: markerGlyph(draw.CrossGlyph{}),
			})
		case accepted && sample.In.Stream:
			markers = append(markers, Marker{
				Time:  float64(sample.Tick),
				Glyph: markerGlyph(draw.PyramidGlyph{}),
			})
		case accepted && sample.In.Drop:
			markers = append(markers, Marker{
				Time:  float64(sample.Tick),
				Glyph: markerGlyph(draw.RingGlyph{}),
			})
		}
	}

	return NewTimelinePlot(activities, markers, -2, vg.Points(14))
}

func occupancySeries(samples []trace.Sample) (flits, packets plotter.XYs) {
	flits = make(plotter.XYs, len(samples))
	packets = make(plotter.XYs, len(samples))
	for i, sample := range samples {
		flits[i] = plotter.XY{X: float64(sample.Tick), Y: float64(sample.Out.NFlits)}
		packets[i] = plotter.XY{X: float64(sample.Tick), Y: float64(sample.Out.NPackets)}
	}
	return flits, packets
}

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatalf("Usage: %s [-o plot.png] <trace.csv>", filepath.Base(os.Args[0]))
	}
	tracePath := flag.Arg(0)
	samples, err := trace.LoadCSV(tracePath)
	if err != nil {
		log.Fatalf("Cannot load trace: %v", err)
	}
	if len(samples) == 0 {
		log.Fatalf("Trace %q contains no samples", tracePath)
	}

	p := plot.New()
	p.Title.Text = "Link Trace: " + filepath.Base(tracePath)
	p.X.Label.Text = "Tick"
	p.Y.Label.Text = "Flits Buffered"

	flits, packets := occupancySeries(samples)
	flitLine, err := plotter.NewLine(flits)
	if err != nil {
		log.Fatal(err)
	}
	flitLine.Color = color.RGBA{64, 64, 255, 255}
	packetLine, err := plotter.NewLine(packets)
	if err != nil {
		log.Fatal(err)
	}
	packetLine.Color = color.RGBA{255, 128, 0, 255}
	packetLine.Dashes = []vg.Length{vg.Points(3), vg.Points(2)}
	p.Add(flitLine, packetLine)
	p.Legend.Add("flits", flitLine)
	p.Legend.Add("packets", packetLine)
	p.Legend.Top = true

	p.Add(buildTimeline(samples))

	if *output != "" {
		format := strings.TrimPrefix(filepath.Ext(*output), ".")
		if format == "" {
			format = "png"
		}
		w := vg.Length(*width) * vg.Inch
		h := vg.Length(*height) * vg.Inch
		if err := savePlot(p, w, h, *output, format); err != nil {
			log.Fatalf("Cannot save plot: %v", err)
		}
		log.Printf("Wrote %s.", *output)
		return
	}
	if err := DisplayPlot(p); err != nil {
		log.Fatal(err)
	}
}
