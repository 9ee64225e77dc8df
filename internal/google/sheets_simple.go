package google

import (
	"context"
	"fmt"
	"os"

	"zanara/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsService mirrors bookings into a back-office spreadsheet.
type SheetsService struct {
	service         *sheets.Service
	bookingsSheetID string
}

func NewSimpleSheetsService(credentialsFile, bookingsSheetID string) (*SheetsService, error) {
	ctx := context.Background()

	// Читаем файл учетных данных сервисного аккаунта
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %v", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %v", err)
	}

	client := config.Client(ctx)

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %v", err)
	}

	return &SheetsService{
		service:         srv,
		bookingsSheetID: bookingsSheetID,
	}, nil
}

// TestConnection проверяет подключение к таблице
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.bookingsSheetID, "Bookings!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %v", err)
	}
	return nil
}

// ReplaceBookingsSheet полностью перезаписывает лист бронирований
func (s *SheetsService) ReplaceBookingsSheet(ctx context.Context, bookings []*models.Booking) error {
	var values [][]interface{}

	headers := []interface{}{"Reference", "Client", "Professional", "Service", "Start", "End", "Status", "Amount", "Currency", "Created At"}
	values = append(values, headers)

	for _, b := range bookings {
		row := []interface{}{
			b.Reference,
			b.ClientID,
			b.ProfessionalID,
			b.ServiceType,
			b.StartTime.Format("2006-01-02 15:04"),
			b.EndTime.Format("2006-01-02 15:04"),
			b.Status,
			b.Pricing.TotalAmount,
			b.Pricing.Currency,
			b.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		values = append(values, row)
	}

	// Сначала очищаем лист, затем записываем данные целиком
	_, err := s.service.Spreadsheets.Values.Clear(s.bookingsSheetID, "Bookings!A:J", &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to clear bookings sheet: %v", err)
	}

	rangeData := fmt.Sprintf("Bookings!A1:J%d", len(values))
	valueRange := &sheets.ValueRange{Values: values}

	_, err = s.service.Spreadsheets.Values.Update(s.bookingsSheetID, rangeData, valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}
