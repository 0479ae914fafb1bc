package export

// Dataset defines tabular export content. Missing row keys render as empty cells.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Record returns the row values ordered by Headers.
func (d Dataset) Record(row map[string]string) []string {
	record := make([]string, len(d.Headers))
	for i, header := range d.Headers {
		record[i] = row[header]
	}
	return record
}
