// Package report renders a payload as a spreadsheet of daily first/last punches.
package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"axiapac.com/punchsync/model"
)

const SheetName = "Attendance"

var header = []any{"Date", "User ID", "User Name", "First Punch", "First Status", "Last Punch", "Last Status"}

// Workbook returns the xlsx bytes for payload. One row per person and date.
func Workbook(deviceIP string, payload model.SyncPayload) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetDocProps(&excelize.DocProperties{Title: "Attendance " + deviceIP}); err != nil {
		return nil, fmt.Errorf("set properties: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	row := 2
	for _, date := range payload.Dates() {
		for _, id := range payload.PersonIDs(date) {
			records := payload[date][id]
			if len(records) == 0 {
				continue
			}
			first := records[0]
			values := []any{date, id, first.PersonName, first.Time, first.Status}
			if len(records) > 1 {
				last := records[len(records)-1]
				values = append(values, last.Time, last.Status)
			}

			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
				return nil, fmt.Errorf("write row %d: %w", row, err)
			}
			row++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Rows reads a workbook produced by Workbook back into string rows, header
// excluded.
func Rows(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[1:], nil
}
