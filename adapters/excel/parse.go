package excel

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"enstats/domain/core"
	"enstats/domain/vector"
)

// ParseVectorTable converts long-format rows, one per (REAL, DATE) with a
// column per vector, into a vector table. DATE cells may be text dates or
// Excel serial numbers; empty vector cells become NaN.
func ParseVectorTable(data *RawData) (*vector.Table, error) {
	dateCol := data.Column(vector.DateColumnName)
	realCol := data.Column(vector.RealColumnName)
	if dateCol < 0 || realCol < 0 {
		return nil, fmt.Errorf("%w: header needs %s and %s columns, got %v",
			core.ErrInvalidTable, vector.DateColumnName, vector.RealColumnName, data.Headers)
	}

	var names []string
	var cols []int
	for i, h := range data.Headers {
		if i == dateCol || i == realCol || h == "" {
			continue
		}
		names = append(names, h)
		cols = append(cols, i)
	}

	table := vector.NewTable(names)
	values := make([]float64, len(cols))
	for n, row := range data.Rows {
		line := n + 2 // 1-based, after the header
		date, err := parseDate(row[dateCol])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", core.ErrInvalidTable, line, err)
		}
		real, err := strconv.Atoi(row[realCol])
		if err != nil || real < 0 {
			return nil, fmt.Errorf("%w: line %d: invalid realization %q", core.ErrInvalidTable, line, row[realCol])
		}
		for k, c := range cols {
			if values[k], err = parseValue(row[c]); err != nil {
				return nil, fmt.Errorf("%w: line %d column %s: %v", core.ErrInvalidTable, line, names[k], err)
			}
		}
		table.AppendRow(date, real, values...)
	}
	return table, nil
}

// ParseMetadata reads VECTOR, UNIT and IS_TOTAL columns. Vectors missing
// from the sheet are left to inference by the provider.
func ParseMetadata(meta *RawData) (map[string]vector.Metadata, error) {
	out := make(map[string]vector.Metadata)
	if meta == nil {
		return out, nil
	}
	nameCol := meta.Column("VECTOR")
	if nameCol < 0 {
		return nil, fmt.Errorf("%w: metadata needs a VECTOR column", core.ErrInvalidTable)
	}
	unitCol := meta.Column("UNIT")
	totalCol := meta.Column("IS_TOTAL")

	for _, row := range meta.Rows {
		name := row[nameCol]
		if name == "" {
			continue
		}
		m := vector.InferMetadata(name)
		if unitCol >= 0 {
			m.Unit = row[unitCol]
		}
		if totalCol >= 0 && row[totalCol] != "" {
			total, err := strconv.ParseBool(strings.ToLower(row[totalCol]))
			if err != nil {
				return nil, fmt.Errorf("%w: IS_TOTAL of %s: %v", core.ErrInvalidTable, name, err)
			}
			m.IsTotal = total
		}
		out[name] = m
	}
	return out, nil
}

func parseDate(s string) (time.Time, error) {
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		return excelize.ExcelDateToTime(serial, false)
	}
	return vector.ParseDate(s)
}

func parseValue(s string) (float64, error) {
	if s == "" || strings.EqualFold(s, "nan") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
