package plot

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/san-kum/pendulab/internal/dynamo"
	"github.com/san-kum/pendulab/internal/storage"
)

const DefaultDPI = 150

// History builds a plot of every column in h against time, with the
// actuator limits drawn as dashed guides.
func History(title string, h *storage.HistoryData) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "value"
	p.Legend.Top = true
	stylePlot(p)

	for i, name := range h.Names {
		values := h.Columns[name]
		pts := make(plotter.XYs, len(values))
		for j := range values {
			pts[j].X = h.Times[j]
			pts[j].Y = values[j]
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("cannot create line for %s: %w", name, err)
		}
		line.LineStyle.Width = vg.Points(1.5)
		line.LineStyle.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(name, line)
	}

	if len(h.Times) > 1 {
		for _, limit := range []float64{-dynamo.MaxControl, dynamo.MaxControl} {
			guide, err := plotter.NewLine(plotter.XYs{
				{X: h.Times[0], Y: limit},
				{X: h.Times[len(h.Times)-1], Y: limit},
			})
			if err != nil {
				return nil, err
			}
			guide.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
			p.Add(guide)
		}
	}

	return p, nil
}

func stylePlot(p *plot.Plot) {
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.Title.Padding = vg.Points(8)
	p.X.Label.TextStyle.Font.Size = vg.Points(12)
	p.Y.Label.TextStyle.Font.Size = vg.Points(12)
	p.X.Padding = vg.Points(10)
	p.Y.Padding = vg.Points(10)
	p.Add(plotter.NewGrid())
}

// SavePNG renders p to a raster PNG. widthIn and heightIn are in inches.
func SavePNG(p *plot.Plot, widthIn, heightIn float64, dpi int, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}

	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(widthIn)*vg.Inch, vg.Length(heightIn)*vg.Inch),
		vgimg.UseDPI(dpi),
	)
	p.Draw(draw.New(c))

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot create png: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	defer bw.Flush()

	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return nil
}

// SaveHistoryPNG plots h and writes it to filename at 8x5 inches.
func SaveHistoryPNG(filename, title string, h *storage.HistoryData) error {
	p, err := History(title, h)
	if err != nil {
		return err
	}
	return SavePNG(p, 8, 5, DefaultDPI, filename)
}
