package forecast

import (
	"github.com/YuminosukeSato/foodcast/internal/config"
	"github.com/YuminosukeSato/foodcast/internal/dataset"
	"github.com/YuminosukeSato/foodcast/pkg/log"
)

// GenerateDataset creates one synthetic record per day of the configured
// range and writes it to the CSV path, plus the spreadsheet export when
// data.xlsx_path is set. A .xlsx data path is written as a spreadsheet.
func GenerateDataset(cfg *config.Config) ([]dataset.EventRecord, error) {
	logger := log.GetLoggerWithName("forecast.generate")

	records := dataset.Generate(cfg.StartTime(), cfg.EndTime(), dataset.NewRand(cfg.Data.Seed))
	if err := dataset.SaveRecords(cfg.Data.CSVPath, records); err != nil {
		return nil, err
	}
	logger.Info("Dataset written",
		log.OperationKey, log.OperationGenerate,
		log.PathKey, cfg.Data.CSVPath,
		log.SamplesKey, len(records),
		log.DateRangeKey, cfg.Data.StartDate+".."+cfg.Data.EndDate,
	)

	if cfg.Data.XLSXPath != "" {
		if err := dataset.SaveXLSX(cfg.Data.XLSXPath, records); err != nil {
			return nil, err
		}
		logger.Info("Spreadsheet export written", log.PathKey, cfg.Data.XLSXPath)
	}
	return records, nil
}
