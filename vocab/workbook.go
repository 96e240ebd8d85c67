package vocab

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const defaultWorkbookSheet = "Vocabulary"

var workbookHeaders = []string{"Sheet", "Position", "Index", "Kind", "Value"}

// WorkbookWriter writes the sheet layout as an XLSX word list.
type WorkbookWriter struct {
	SheetName string
}

// Write streams one row per item, grouped by sheet, and returns the row count.
func (ww WorkbookWriter) Write(ctx context.Context, sheets []Sheet, w io.Writer) (int64, error) {
	if w == nil {
		return 0, NewError(KindValidation, "output writer is required", nil)
	}

	file := excelize.NewFile()
	defer func() {
		_ = file.Close()
	}()

	sheetName := ww.SheetName
	if sheetName == "" {
		sheetName = defaultWorkbookSheet
	}
	defaultSheet := file.GetSheetName(0)
	if defaultSheet != sheetName {
		file.SetSheetName(defaultSheet, sheetName)
	}

	stream, err := file.NewStreamWriter(sheetName)
	if err != nil {
		return 0, err
	}

	headerID, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return 0, err
	}

	headers := make([]interface{}, len(workbookHeaders))
	for i, label := range workbookHeaders {
		headers[i] = excelize.Cell{StyleID: headerID, Value: label}
	}
	if err := stream.SetRow("A1", headers); err != nil {
		return 0, err
	}

	rowIndex := 2
	var rows int64
	for _, sheet := range sheets {
		for position, item := range sheet.Items {
			if err := ctx.Err(); err != nil {
				return rows, err
			}
			cells := []interface{}{
				sheet.Index + 1,
				position + 1,
				sheet.GlobalIndex(position),
				string(item.Kind),
				workbookValue(item),
			}
			if err := stream.SetRow(fmt.Sprintf("A%d", rowIndex), cells); err != nil {
				return rows, err
			}
			rowIndex++
			rows++
		}
	}

	if err := stream.Flush(); err != nil {
		return rows, err
	}
	if _, err := file.WriteTo(w); err != nil {
		return rows, err
	}
	return rows, nil
}

func workbookValue(item Item) string {
	if item.IsImage() {
		return fmt.Sprintf("%s (%s, %d bytes)", displayName(item.Image.Name), item.Image.ContentType, item.Image.Size)
	}
	return item.Text
}
