package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// GoogleConfig configures access to one spreadsheet.
type GoogleConfig struct {
	SpreadsheetID   string
	CredentialsFile string
	CredentialsJSON string
	APIKey          string
	Timeout         time.Duration

	// Endpoint and HTTPClient override the API transport; used by tests.
	Endpoint   string
	HTTPClient *http.Client
}

// GoogleClient talks to the Google Sheets v4 REST API.
type GoogleClient struct {
	spreadsheetID string
	timeout       time.Duration
	svc           *sheetsapi.Service
}

// NewGoogleClient builds a client authenticated with a service account (read/write) or an API key (read only).
func NewGoogleClient(ctx context.Context, cfg GoogleConfig) (*GoogleClient, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("sheets: spreadsheet id is required")
	}

	var opts []option.ClientOption
	switch {
	case cfg.HTTPClient != nil:
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	case cfg.CredentialsJSON != "" || cfg.CredentialsFile != "":
		data := []byte(cfg.CredentialsJSON)
		if len(data) == 0 {
			raw, err := os.ReadFile(cfg.CredentialsFile)
			if err != nil {
				return nil, fmt.Errorf("sheets: read credentials: %w", err)
			}
			data = raw
		}
		creds, err := google.CredentialsFromJSON(ctx, data, sheetsapi.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("sheets: parse credentials: %w", err)
		}
		opts = append(opts, option.WithCredentials(creds))
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	default:
		return nil, errors.New("sheets: no credentials configured")
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GoogleClient{spreadsheetID: cfg.SpreadsheetID, timeout: timeout, svc: svc}, nil
}

// Values implements Client.
func (c *GoogleClient) Values(ctx context.Context, sheet string) ([][]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, QuoteSheet(sheet)).
		MajorDimension("ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, translateError("get values", sheet, err)
	}

	rows := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = fmt.Sprint(cell)
		}
		rows[i] = cells
	}
	return rows, nil
}

// WriteRow implements Client.
func (c *GoogleClient) WriteRow(ctx context.Context, sheet string, start Cell, values []string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	body := &sheetsapi.ValueRange{
		MajorDimension: "ROWS",
		Values:         [][]interface{}{row},
	}

	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, Range(sheet, RowRange(start, len(values))), body).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return translateError("update values", sheet, err)
	}
	return nil
}

// Clear implements Client.
func (c *GoogleClient) Clear(ctx context.Context, sheet string, cell Cell) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, Range(sheet, cell.A1()), &sheetsapi.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return translateError("clear values", sheet, err)
	}
	return nil
}

func translateError(op, sheet string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusNotFound ||
			(apiErr.Code == http.StatusBadRequest && strings.Contains(apiErr.Message, "Unable to parse range")) {
			return fmt.Errorf("%w: %s", ErrSheetNotFound, sheet)
		}
	}
	return fmt.Errorf("sheets %s (%s): %w", op, sheet, err)
}
