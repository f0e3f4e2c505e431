package cmd

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"kigurumi-cli/api"
)

const reservationsSheet = "Reservations"

var reservationHeaders = []string{"Date", "Item", "Office", "Place", "Concierge", "Status"}

func exportReservationsXLSX(path string, records []api.ReservationRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(reservationsSheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	pendingStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFF2CC"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	for i, header := range reservationHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(reservationsSheet, cell, header); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(reservationHeaders), 1)
	if err := f.SetCellStyle(reservationsSheet, "A1", last, headerStyle); err != nil {
		return err
	}

	for i, r := range records {
		row := i + 2
		values := []any{r.Date, r.Character, r.Office, r.Place, r.Concierge, r.StatusLabel()}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(reservationsSheet, cell, value); err != nil {
				return err
			}
		}
		if r.Status == api.StatusPending {
			cell, _ := excelize.CoordinatesToCellName(len(values), row)
			if err := f.SetCellStyle(reservationsSheet, cell, cell, pendingStyle); err != nil {
				return err
			}
		}
	}

	_ = f.SetColWidth(reservationsSheet, "A", "A", 12)
	_ = f.SetColWidth(reservationsSheet, "B", "B", 40)
	_ = f.SetColWidth(reservationsSheet, "C", "F", 16)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
