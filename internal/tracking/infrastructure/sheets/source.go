// Package sheets ingests tracked tasks from a spreadsheet CSV export.
package sheets

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/application/commands"
	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/domain"
)

// ErrMissingColumn is returned when the header lacks a required column.
var ErrMissingColumn = errors.New("sheet header is missing a required column")

// Column names, matched case-insensitively against the header row.
const (
	ColumnCategory   = "category"
	ColumnTitle      = "title"
	ColumnStatus     = "status"
	ColumnDiscoverer = "discoverer"
	ColumnDeliverer  = "deliverer"
	ColumnURL        = "url"
	ColumnID         = "id"
)

var requiredColumns = []string{ColumnCategory, ColumnTitle, ColumnStatus}

// minColumns is the smallest row that is not skipped as malformed.
const minColumns = 3

// Source downloads a CSV export and turns its rows into raw records.
type Source struct {
	client *http.Client
	url    string
	logger *slog.Logger
}

// NewSource creates a sheet source reading the CSV at url.
func NewSource(url string, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		client: &http.Client{Timeout: 30 * time.Second},
		url:    url,
		logger: logger,
	}
}

// WithTimeout sets the download timeout.
func (s *Source) WithTimeout(timeout time.Duration) *Source {
	if timeout > 0 {
		s.client.Timeout = timeout
	}
	return s
}

// Name implements commands.Source.
func (s *Source) Name() string {
	return "sheet"
}

// Fetch implements commands.Source.
func (s *Source) Fetch(ctx context.Context) ([]domain.RawRecord, error) {
	if s.url == "" {
		return nil, &commands.TransportError{Source: s.Name(), Err: errors.New("sheet CSV url is not configured")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, &commands.TransportError{Source: s.Name(), Err: err}
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &commands.TransportError{Source: s.Name(), Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &commands.TransportError{Source: s.Name(), Err: responseError(resp)}
	}

	records, skipped, err := Parse(resp.Body)
	if err != nil {
		return nil, &commands.TransportError{Source: s.Name(), Err: err}
	}
	if skipped > 0 {
		s.logger.WarnContext(ctx, "skipped short sheet rows", "rows", skipped)
	}
	return records, nil
}

func responseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("sheet download failed: status=%d body=%s", resp.StatusCode, string(body))
}

// Parse reads a CSV export with a header row. Rows with fewer than three
// columns are counted in skipped and left out. Owner cells hold
// comma-separated tokens.
func Parse(r io.Reader) (records []domain.RawRecord, skipped int, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []domain.RawRecord{}, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read sheet header: %w", err)
	}
	index := headerIndex(header)
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, 0, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	records = []domain.RawRecord{}
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("read sheet row %d: %w", line, err)
		}
		if len(row) < minColumns {
			skipped++
			continue
		}

		value := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		externalID := value(ColumnID)
		if externalID == "" {
			externalID = value(ColumnURL)
		}
		records = append(records, domain.RawRecord{
			Source:              "sheet",
			CategoryLabel:       value(ColumnCategory),
			ExternalID:          externalID,
			Title:               value(ColumnTitle),
			Status:              value(ColumnStatus),
			DiscoveryCandidates: domain.SplitTokens(value(ColumnDiscoverer)),
			DeliveryCandidates:  domain.SplitTokens(value(ColumnDeliverer)),
			URL:                 value(ColumnURL),
		})
	}
	return records, skipped, nil
}

func headerIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	return index
}
