package utils

import (
	"encoding/csv"
	"errors"
	"io"
)

// ReadCSV calls row for every record, with its 1-based line number. Rows may
// have a varying number of fields. A record that cannot be parsed is handed to
// skip and reading goes on with the next line; only a failing reader stops it.
func ReadCSV(r io.Reader, row func(line int, fields []string), skip func(err *csv.ParseError)) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			if skip != nil {
				skip(parseErr)
			}
			continue
		}
		if err != nil {
			return err
		}
		line, _ := reader.FieldPos(0)
		row(line, fields)
	}
}
