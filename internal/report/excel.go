// Package report renders settled manager reports for accounting.
package report

import (
	"fmt"
	"io"

	"github.com/cleaning-crm/api/internal/database"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const SheetName = "Reports"

var headers = []string{
	"Report", "Order", "Date", "Address", "Cleaner",
	"Salary", "Bonus", "Bonus note", "Forfeit", "Forfeit note", "Credited",
}

// WriteManagerReports writes rows as an .xlsx workbook with a totals line.
func WriteManagerReports(w io.Writer, rows []database.ManagerReportRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"E0E0E0"}, Pattern: 1},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 2}},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return fmt.Errorf("money style: %w", err)
	}

	if err := f.SetSheetRow(SheetName, "A1", &headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	last := cellName(len(headers), 1)
	f.SetCellStyle(SheetName, "A1", last, headerStyle)

	salary, bonus, forfeit := decimal.Zero, decimal.Zero, decimal.Zero
	for i, r := range rows {
		credited := r.Salary.Add(r.Bonus).Sub(r.Forfeit)
		row := []any{
			r.ID,
			r.OrderID,
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.OrderAddress,
			r.CleanerName,
			r.Salary.InexactFloat64(),
			r.Bonus.InexactFloat64(),
			r.BonusDescription.String,
			r.Forfeit.InexactFloat64(),
			r.ForfeitDescription.String,
			credited.InexactFloat64(),
		}
		if err := f.SetSheetRow(SheetName, cellName(1, i+2), &row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
		salary = salary.Add(r.Salary)
		bonus = bonus.Add(r.Bonus)
		forfeit = forfeit.Add(r.Forfeit)
	}

	totalRow := len(rows) + 2
	f.SetCellValue(SheetName, cellName(5, totalRow), "Total")
	f.SetCellValue(SheetName, cellName(6, totalRow), salary.InexactFloat64())
	f.SetCellValue(SheetName, cellName(7, totalRow), bonus.InexactFloat64())
	f.SetCellValue(SheetName, cellName(9, totalRow), forfeit.InexactFloat64())
	f.SetCellValue(SheetName, cellName(11, totalRow), salary.Add(bonus).Sub(forfeit).InexactFloat64())
	f.SetCellStyle(SheetName, cellName(5, totalRow), cellName(11, totalRow), headerStyle)
	f.SetCellStyle(SheetName, "F2", cellName(7, totalRow), moneyStyle)
	f.SetCellStyle(SheetName, "I2", cellName(9, totalRow), moneyStyle)
	f.SetCellStyle(SheetName, "K2", cellName(11, totalRow), moneyStyle)

	f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
	})
	f.SetColWidth(SheetName, "C", "E", 22)
	f.SetColWidth(SheetName, "H", "H", 20)
	f.SetColWidth(SheetName, "J", "J", 20)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
