package dataset

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/YuminosukeSato/foodcast/pkg/errors"
)

// SheetName is the worksheet holding event rows in spreadsheet exports.
const SheetName = "events"

// SaveXLSX writes records to a spreadsheet with a single "events" sheet
// laid out like the CSV file. Numbers are stored as numbers.
func SaveXLSX(path string, records []EventRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return errors.Wrap(err, "failed to name sheet")
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return errors.Wrap(err, "failed to write header")
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrap(err, "failed to address row")
		}
		row := []interface{}{
			r.Date.Format(DateLayout),
			r.EventType,
			r.Attendees,
			r.FoodPrepared,
			r.FoodConsumed,
			r.WastedFood,
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return errors.Wrapf(err, "failed to write row %d", i+2)
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create directory %s", dir)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return errors.Wrapf(err, "failed to save %s", path)
	}
	return nil
}

// LoadXLSX reads records from the first sheet of a spreadsheet written by
// SaveXLSX (or edited by hand with the same header).
func LoadXLSX(path string) ([]EventRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	source := filepath.Base(path)
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.NewDataError(source, 1, "", "", errors.ErrEmptyData)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read sheet %s", sheets[0])
	}
	if len(rows) == 0 {
		return nil, errors.NewDataError(source, 1, "", "", errors.ErrEmptyData)
	}

	for i, name := range Columns {
		if i >= len(rows[0]) || strings.TrimSpace(rows[0][i]) != name {
			got := ""
			if i < len(rows[0]) {
				got = rows[0][i]
			}
			return nil, errors.NewDataError(source, 1, name, got, errors.New("unexpected header"))
		}
	}

	records := make([]EventRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		line := i + 2
		if len(row) == 0 {
			continue
		}
		if len(row) != len(Columns) {
			return nil, errors.NewDataError(source, line, "", "", errors.Newf("expected %d columns, got %d", len(Columns), len(row)))
		}
		rec, err := parseRow(row, source, line)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// LoadRecords reads a .xlsx file with LoadXLSX and anything else with LoadCSV.
func LoadRecords(path string) ([]EventRecord, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return LoadXLSX(path)
	}
	return LoadCSV(path)
}

// SaveRecords writes a .xlsx file with SaveXLSX and anything else with SaveCSV.
func SaveRecords(path string, records []EventRecord) error {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return SaveXLSX(path, records)
	}
	return SaveCSV(path, records)
}
