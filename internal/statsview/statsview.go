// Package statsview serves live Go runtime charts (heap, GC, goroutines)
// while the emulator runs.
package statsview

import (
	"fmt"
	"io"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

// Address is used when Launch is given an empty address.
const Address = "localhost:12600"

const path = "/debug/statsview"

// URL returns where the charts of a server on addr can be viewed.
func URL(addr string) string {
	if addr == "" {
		addr = Address
	}
	return "http://" + addr + path
}

// Launch starts the stats server in a new goroutine and announces its URL
// on output.
func Launch(addr string, output io.Writer) {
	if addr == "" {
		addr = Address
	}
	go func() {
		viewer.SetConfiguration(viewer.WithAddr(addr))
		mgr := statsview.New()
		mgr.Start()
	}()

	fmt.Fprintf(output, "stats server available at %s\n", URL(addr))
}
