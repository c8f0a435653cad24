package usage

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

var exportHeader = []string{
	"Created At", "User", "Content Type", "Content ID", "Configuration",
	"Provider", "Model", "Prompt Tokens", "Completion Tokens", "Total Tokens",
	"Cost (USD)", "Success", "Error",
}

// WriteXLSX renders usage entries as a spreadsheet for the admin console.
func WriteXLSX(entries []Entry, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Usage"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	for col, title := range exportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for i, e := range entries {
		row := i + 2
		values := []any{
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			e.UserID,
			e.ContentType,
			e.ContentID,
			e.ConfigName,
			e.Provider,
			e.Model,
			e.PromptTokens,
			e.CompletionTokens,
			e.TotalTokens,
			e.CostUSD,
			e.Success,
			e.ErrorMessage,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return fmt.Errorf("cell name: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", row, err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
