// Package notion ingests tracked tasks from Notion databases.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/application/commands"
	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/domain"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBaseURL  = "https://api.notion.com"
	defaultVersion  = "2022-06-28"
	defaultPageSize = 100
)

// Source queries every configured database and returns their pages as raw
// records. A failure in any database fails the whole fetch.
type Source struct {
	client    *http.Client
	baseURL   string
	version   string
	pageSize  int
	databases []DatabaseSpec
	logger    *slog.Logger
}

// NewSource creates a Notion source authenticated with an integration token.
func NewSource(token string, databases []DatabaseSpec, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &oauth2.Transport{
				Base:   http.DefaultTransport,
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			},
		},
		baseURL:   defaultBaseURL,
		version:   defaultVersion,
		pageSize:  defaultPageSize,
		databases: databases,
		logger:    logger,
	}
}

// WithBaseURL overrides the API endpoint.
func (s *Source) WithBaseURL(baseURL string) *Source {
	if baseURL != "" {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
	return s
}

// WithVersion sets the Notion-Version header.
func (s *Source) WithVersion(version string) *Source {
	if version != "" {
		s.version = version
	}
	return s
}

// WithTimeout sets the per-request timeout.
func (s *Source) WithTimeout(timeout time.Duration) *Source {
	if timeout > 0 {
		s.client.Timeout = timeout
	}
	return s
}

// Name implements commands.Source.
func (s *Source) Name() string {
	return "notion"
}

// Fetch implements commands.Source. Records keep database order, then page
// order within each database.
func (s *Source) Fetch(ctx context.Context) ([]domain.RawRecord, error) {
	results := make([][]domain.RawRecord, len(s.databases))

	g, ctx := errgroup.WithContext(ctx)
	for i, db := range s.databases {
		g.Go(func() error {
			records, err := s.queryDatabase(ctx, db)
			if err != nil {
				return &commands.TransportError{Source: "notion:" + db.Name, Err: err}
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var records []domain.RawRecord
	for _, r := range results {
		records = append(records, r...)
	}
	return records, nil
}

type queryRequest struct {
	PageSize    int            `json:"page_size,omitempty"`
	StartCursor string         `json:"start_cursor,omitempty"`
	Filter      map[string]any `json:"filter,omitempty"`
}

type queryResponse struct {
	Results    []page  `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

type page struct {
	ID         string              `json:"id"`
	URL        string              `json:"url"`
	Properties map[string]property `json:"properties"`
}

type property struct {
	Type     string     `json:"type"`
	Title    []richText `json:"title"`
	RichText []richText `json:"rich_text"`
	Select   *option    `json:"select"`
	Status   *option    `json:"status"`
	People   []person   `json:"people"`
}

type richText struct {
	PlainText string `json:"plain_text"`
}

type option struct {
	Name string `json:"name"`
}

type person struct {
	ID string `json:"id"`
}

func (s *Source) queryDatabase(ctx context.Context, db DatabaseSpec) ([]domain.RawRecord, error) {
	var (
		records []domain.RawRecord
		cursor  string
	)
	for {
		resp, err := s.query(ctx, db, cursor)
		if err != nil {
			return nil, err
		}
		for _, p := range resp.Results {
			records = append(records, toRawRecord(db, p))
		}
		if !resp.HasMore || resp.NextCursor == nil || *resp.NextCursor == "" {
			break
		}
		cursor = *resp.NextCursor
	}

	s.logger.DebugContext(ctx, "notion database queried", "database", db.Name, "pages", len(records))
	return records, nil
}

func (s *Source) query(ctx context.Context, db DatabaseSpec, cursor string) (*queryResponse, error) {
	body, err := json.Marshal(queryRequest{
		PageSize:    s.pageSize,
		StartCursor: cursor,
		Filter:      db.Filter,
	})
	if err != nil {
		return nil, err
	}

	queryURL := fmt.Sprintf("%s/v1/databases/%s/query", s.baseURL, db.DatabaseID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, queryURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", s.version)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, responseError(resp)
	}

	var payload queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode query response: %w", err)
	}
	return &payload, nil
}

func responseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("notion query failed: status=%d body=%s", resp.StatusCode, string(body))
}

func toRawRecord(db DatabaseSpec, p page) domain.RawRecord {
	title := plainText(p.Properties[db.TitleProperty].Title)
	if strings.TrimSpace(title) == "" {
		title = db.Untitled
	}
	return domain.RawRecord{
		Source:              "notion:" + db.Name,
		CategoryLabel:       db.Category.String(),
		ExternalID:          p.ID,
		Title:               title,
		Status:              statusName(p.Properties[db.StatusProperty]),
		DiscoveryCandidates: peopleIDs(p.Properties, db.DiscoveryProperties),
		DeliveryCandidates:  peopleIDs(p.Properties, db.DeliveryProperties),
		URL:                 p.URL,
	}
}

func plainText(parts []richText) string {
	var b strings.Builder
	for _, part := range parts {
		b.WriteString(part.PlainText)
	}
	return b.String()
}

// statusName reads a select or status property, falling back to rich text.
func statusName(prop property) string {
	switch {
	case prop.Status != nil:
		return prop.Status.Name
	case prop.Select != nil:
		return prop.Select.Name
	default:
		return plainText(prop.RichText)
	}
}

// peopleIDs concatenates the people of each named property in order.
func peopleIDs(props map[string]property, names []string) []string {
	var ids []string
	for _, name := range names {
		for _, p := range props[name].People {
			ids = append(ids, p.ID)
		}
	}
	return ids
}
