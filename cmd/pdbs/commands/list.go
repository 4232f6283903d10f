package commands

import (
	"fmt"
	"io"

	"github.com/pd-buddy/pdbuddy-go/pkg/discovery"
)

// List prints every attached PD Buddy Sink.
func List(finder *discovery.Finder, out io.Writer) error {
	devices, err := finder.Find()
	if err != nil {
		return err
	}
	styles := NewStyles(out)
	if len(devices) == 0 {
		fmt.Fprintln(out, styles.Dim.Render("No PD Buddy Sink found"))
		return nil
	}
	for _, d := range devices {
		fmt.Fprintf(out, "%s\t%04X:%04X\t%s\t%s\n",
			styles.Label.Render(d.Port), d.VendorID, d.ProductID, d.SerialNumber, d.Product)
	}
	return nil
}
