// Package pdftest reads back what the assemblers write, for tests.
package pdftest

import (
	"fmt"
	"regexp"
	"strconv"
)

var (
	pageRe  = regexp.MustCompile(`/Type\s*/Page[\s/>]`)
	imageRe = regexp.MustCompile(`/Filter\s*/DCTDecode\s*/Length\s+(\d+)\s*>>\s*stream\r?\n`)
)

// PageCount counts page objects. It understands uncompressed object
// dictionaries only, which is what gofpdf and img2pdf produce.
func PageCount(data []byte) int {
	return len(pageRe.FindAllIndex(data, -1))
}

// Images returns the embedded JPEG streams in file order.
func Images(data []byte) ([][]byte, error) {
	var out [][]byte
	for _, m := range imageRe.FindAllSubmatchIndex(data, -1) {
		n, err := strconv.Atoi(string(data[m[2]:m[3]]))
		if err != nil {
			return nil, err
		}
		start := m[1]
		if start+n > len(data) {
			return nil, fmt.Errorf("image stream at %d overruns file", start)
		}
		out = append(out, data[start:start+n])
	}
	return out, nil
}
