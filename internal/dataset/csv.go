package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/YuminosukeSato/foodcast/pkg/errors"
)

// WriteCSV writes records with a header row. Quantities use the shortest
// representation of their rounded value.
func WriteCSV(w io.Writer, records []EventRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return errors.Wrap(err, "failed to write csv header")
	}
	for _, r := range records {
		if err := cw.Write(r.fields()); err != nil {
			return errors.Wrap(err, "failed to write csv row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "failed to flush csv")
}

func (r EventRecord) fields() []string {
	return []string{
		r.Date.Format(DateLayout),
		r.EventType,
		strconv.Itoa(r.Attendees),
		formatQuantity(r.FoodPrepared),
		formatQuantity(r.FoodConsumed),
		formatQuantity(r.WastedFood),
	}
}

func formatQuantity(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ReadCSV parses records written by WriteCSV. source names the input in
// error messages. Any malformed row fails the whole read with a DataError
// carrying the line number.
func ReadCSV(r io.Reader, source string) ([]EventRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Columns)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.NewDataError(source, 1, "", "", errors.ErrEmptyData)
	}
	if err != nil {
		return nil, csvError(source, err)
	}
	for i, name := range Columns {
		if header[i] != name {
			return nil, errors.NewDataError(source, 1, name, header[i], errors.New("unexpected header"))
		}
	}

	var records []EventRecord
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, csvError(source, err)
		}
		line, _ := cr.FieldPos(0)

		rec, err := parseRow(row, source, line)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// parseRow は1行をEventRecordに変換する
func parseRow(row []string, source string, line int) (EventRecord, error) {
	var rec EventRecord
	var err error

	if rec.Date, err = ParseDate(row[0]); err != nil {
		return rec, errors.NewDataError(source, line, Columns[0], row[0], err)
	}
	if row[1] == "" {
		return rec, errors.NewDataError(source, line, Columns[1], row[1], errors.New("empty event type"))
	}
	rec.EventType = row[1]
	if rec.Attendees, err = strconv.Atoi(row[2]); err != nil {
		return rec, errors.NewDataError(source, line, Columns[2], row[2], err)
	}
	if rec.Attendees <= 0 {
		return rec, errors.NewDataError(source, line, Columns[2], row[2], errors.New("must be positive"))
	}

	quantities := []*float64{&rec.FoodPrepared, &rec.FoodConsumed, &rec.WastedFood}
	for i, dst := range quantities {
		col := 3 + i
		if *dst, err = strconv.ParseFloat(row[col], 64); err != nil {
			return rec, errors.NewDataError(source, line, Columns[col], row[col], err)
		}
	}
	return rec, nil
}

func csvError(source string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return errors.NewDataError(source, pe.Line, "", "", pe.Err)
	}
	return errors.Wrapf(err, "failed to read %s", source)
}

// SaveCSV writes records to path, replacing any existing file.
func SaveCSV(path string, records []EventRecord) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create directory %s", dir)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	if err := WriteCSV(f, records); err != nil {
		_ = f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "failed to close %s", path)
}

// LoadCSV reads records from path. A missing file is reported with an
// error that satisfies errors.Is(err, os.ErrNotExist).
func LoadCSV(path string) ([]EventRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()
	return ReadCSV(f, filepath.Base(path))
}
