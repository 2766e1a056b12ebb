package excel

// RawData is a sheet or CSV file as trimmed strings
type RawData struct {
	Headers []string   // Column headers
	Rows    [][]string // Data rows, padded to len(Headers)
}

// Column returns the index of header, or -1
func (d *RawData) Column(header string) int {
	for i, h := range d.Headers {
		if h == header {
			return i
		}
	}
	return -1
}
