package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"enstats/internal"
)

// DataReader handles reading Excel and CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	config   ReaderConfig
	logger   *internal.Logger
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(filePath string, config ReaderConfig, logger *internal.Logger) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &DataReader{filePath: filePath, fileType: fileType, config: config, logger: logger}
}

// ReadData reads the vector table and, for workbooks, the optional metadata
// sheet. meta is nil when there is none.
func (r *DataReader) ReadData() (data, meta *RawData, err error) {
	r.logger.Debug("[DataReader] reading %s file %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	switch r.fileType {
	case "csv":
		data, err = r.readCSVData()
		return data, nil, err
	case "xlsx":
		return r.readExcelData()
	default:
		return nil, nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
}

func (r *DataReader) readExcelData() (*RawData, *RawData, error) {
	start := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := r.config.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	// raw values keep date cells as serial numbers instead of locale formatted text
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	r.logger.Debug("[DataReader] sheet %s read in %.2fms (%d rows)", sheet, float64(time.Since(start).Nanoseconds())/1e6, len(rows))
	if len(rows) < 1 {
		return nil, nil, fmt.Errorf("sheet %s has no header row", sheet)
	}
	data := processRows(rows)

	var meta *RawData
	if r.config.MetadataSheet != "" {
		if idx, _ := f.GetSheetIndex(r.config.MetadataSheet); idx >= 0 {
			metaRows, err := f.GetRows(r.config.MetadataSheet)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to read sheet %s: %w", r.config.MetadataSheet, err)
			}
			if len(metaRows) > 0 {
				meta = processRows(metaRows)
			}
		}
	}
	return data, meta, nil
}

func (r *DataReader) readCSVData() (*RawData, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	start := time.Now()
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	r.logger.Debug("[DataReader] CSV file read in %.2fms (%d rows)", float64(time.Since(start).Nanoseconds())/1e6, len(rows))
	if len(rows) < 1 {
		return nil, fmt.Errorf("CSV file %s has no header row", r.filePath)
	}
	return processRows(rows), nil
}

// processRows trims cells and pads short rows to the header width. Blank
// rows are skipped.
func processRows(rows [][]string) *RawData {
	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = strings.TrimSpace(header)
	}

	data := &RawData{Headers: headers}
	for _, row := range rows[1:] {
		cells := make([]string, len(headers))
		blank := true
		for j := range headers {
			if j < len(row) {
				cells[j] = strings.TrimSpace(row[j])
			}
			if cells[j] != "" {
				blank = false
			}
		}
		if !blank {
			data.Rows = append(data.Rows, cells)
		}
	}
	return data
}
