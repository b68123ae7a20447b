package service

import (
	"context"
	"fmt"
	"time"

	"github.com/SergeiKhy/linktrack/internal/models"
	"github.com/xuri/excelize/v2"
)

const (
	sheetEvents  = "Events"
	sheetDaily   = "Daily"
	sheetDevices = "Devices"
)

// Export renders every analytics view of the user's links as an XLSX workbook.
func (s *analyticsService) Export(ctx context.Context, user *models.User) ([]byte, error) {
	events, err := s.analyticsRepo.ListAllForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	days, err := s.DateWise(ctx, user)
	if err != nil {
		return nil, err
	}
	devices, err := s.DeviceWise(ctx, user)
	if err != nil {
		return nil, err
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	// NewFile starts with "Sheet1"; rename it rather than leave an empty tab.
	if err := xl.SetSheetName(xl.GetSheetName(0), sheetEvents); err != nil {
		return nil, fmt.Errorf("failed to prepare workbook: %w", err)
	}
	for _, name := range []string{sheetDaily, sheetDevices} {
		if _, err := xl.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to add sheet %s: %w", name, err)
		}
	}

	eventRows := make([][]any, 0, len(events))
	for _, e := range events {
		eventRows = append(eventRows, []any{
			e.ID, e.ShortCode, e.OriginalURL, e.IPAddress, string(e.DeviceType), e.UserAgent,
			e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	if err := writeSheet(xl, sheetEvents,
		[]any{"ID", "Short Link", "Original Link", "IP Address", "Device", "User Agent", "Created At"},
		eventRows); err != nil {
		return nil, err
	}

	dayRows := make([][]any, 0, len(days))
	for _, d := range days {
		dayRows = append(dayRows, []any{d.Date, d.DailyClicks, d.CumulativeTotal})
	}
	if err := writeSheet(xl, sheetDaily, []any{"Date", "Clicks", "Cumulative Total"}, dayRows); err != nil {
		return nil, err
	}

	deviceRows := make([][]any, 0, len(devices))
	for _, d := range devices {
		deviceRows = append(deviceRows, []any{string(d.DeviceType), d.TotalClicks})
	}
	if err := writeSheet(xl, sheetDevices, []any{"Device", "Total Clicks"}, deviceRows); err != nil {
		return nil, err
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(xl *excelize.File, sheet string, header []any, rows [][]any) error {
	if err := xl.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := xl.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}
