package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/sierra-distribution/sierra/internal/shared"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxRange        = 90 * 24 * time.Hour
)

// Repository provides audit rows.
type Repository interface {
	Entries(ctx context.Context, q Query) ([]Entry, error)
}

// Service coordinates audit trail reads.
type Service struct {
	repo Repository
}

// NewService builds the audit trail service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline returns one page of entries.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, errors.New("audit: repository not configured")
	}
	if err := validateRange(filters); err != nil {
		return Result{}, err
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	q := toQuery(filters)
	q.Limit = pageSize + 1
	q.Offset = (page - 1) * pageSize
	rows, err := s.repo.Entries(ctx, q)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	if rows == nil {
		rows = []Entry{}
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// Export returns every entry matching filters.
func (s *Service) Export(ctx context.Context, filters TimelineFilters) ([]Entry, error) {
	if s.repo == nil {
		return nil, errors.New("audit: repository not configured")
	}
	if err := validateRange(filters); err != nil {
		return nil, err
	}
	return s.repo.Entries(ctx, toQuery(filters))
}

// WriteCSV renders entries as CSV with a header row.
func WriteCSV(rows []Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"id", "at", "actor", "action", "entity", "entity_id", "meta"}); err != nil {
		return nil, err
	}
	for _, row := range rows {
		record := []string{
			strconv.FormatInt(row.ID, 10),
			row.At.UTC().Format(time.RFC3339),
			row.Actor,
			row.Action,
			row.Entity,
			row.EntityID,
			string(row.Meta),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func validateRange(f TimelineFilters) error {
	if f.From.IsZero() || f.To.IsZero() {
		return nil
	}
	if f.From.After(f.To) {
		return shared.Invalid("from must not be after to")
	}
	if f.To.Sub(f.From) > maxRange {
		return shared.Invalid("range cannot exceed 90 days")
	}
	return nil
}

func toQuery(f TimelineFilters) Query {
	q := Query{
		From:     f.From,
		Actor:    strings.TrimSpace(f.Actor),
		Entity:   strings.TrimSpace(f.Entity),
		EntityID: strings.TrimSpace(f.EntityID),
		Action:   strings.TrimSpace(f.Action),
	}
	if !f.To.IsZero() {
		// To is inclusive of the whole day.
		q.To = f.To.AddDate(0, 0, 1)
	}
	return q
}
