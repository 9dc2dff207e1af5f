package main

import (
	"io"
	"os"

	"github.com/hashicorp/go-multierror"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
)

func combineErrors(errors ...error) (err error) {
	for _, e := range errors {
		switch {
		case e == nil:
			// ignore
		case err == nil:
			err = e
		default:
			err = multierror.Append(err, e)
		}
	}
	return err
}

func writePlot(p *plot.Plot, width, height vg.Length, output io.Writer, format string) error {
	w, err := p.WriterTo(width, height, format)
	if err != nil {
		return err
	}
	_, err = w.WriteTo(output)
	return err
}

func savePlot(p *plot.Plot, width, height vg.Length, path string, format string) (err error) {
	output, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = combineErrors(err, output.Close())
	}()
	return writePlot(p, width, height, output, format)
}
