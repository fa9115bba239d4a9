package backend

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// EngineXLSX is the local spreadsheet engine name.
const EngineXLSX = "xlsx"

// XLSXSheet is one worksheet's cell grid.
type XLSXSheet struct {
	Name string
	Rows [][]string
}

// XLSXResult is the native payload of the spreadsheet engine.
type XLSXResult struct {
	Sheets []XLSXSheet
}

func (r *XLSXResult) Engine() string { return EngineXLSX }

// XLSXEngine extracts worksheet grids from .xlsx files with excelize.
type XLSXEngine struct{}

func (XLSXEngine) Name() string { return EngineXLSX }

func (XLSXEngine) Parse(ctx context.Context, req Request) (Native, error) {
	if err := ctx.Err(); err != nil {
		return nil, parseErr(EngineXLSX, KindTimeout, err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(req.Data))
	if err != nil {
		return nil, parseErr(EngineXLSX, KindMalformedInput, fmt.Errorf("open workbook: %w", err))
	}
	defer f.Close()

	result := &XLSXResult{}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, parseErr(EngineXLSX, KindMalformedInput, fmt.Errorf("read sheet %s: %w", name, err))
		}
		if len(rows) == 0 {
			continue
		}
		result.Sheets = append(result.Sheets, XLSXSheet{Name: name, Rows: rows})
	}

	if len(result.Sheets) == 0 {
		return nil, parseErr(EngineXLSX, KindMalformedInput, fmt.Errorf("no populated sheets"))
	}
	return result, nil
}
