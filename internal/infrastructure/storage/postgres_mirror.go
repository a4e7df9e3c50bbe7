package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/bobmatnyc/ai-power-rankings/internal/domain"
	"github.com/bobmatnyc/ai-power-rankings/internal/ports"
)

// PostgresMirror replicates archived news records into Postgres. The JSON
// archive stays the source of truth; the mirror exists for SQL querying.
type PostgresMirror struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.ArticleMirror = (*PostgresMirror)(nil)

// NewPostgresMirror wires a sql.DB implementation.
func NewPostgresMirror(db *sql.DB) *PostgresMirror {
	return &PostgresMirror{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// SavePublished upserts each record keyed on its archive id. Payload
// updates keep the mirror consistent after reclassification.
func (m *PostgresMirror) SavePublished(ctx context.Context, records []domain.ArticleRecord) error {
	if m.db == nil || len(records) == 0 {
		return nil
	}

	for _, rec := range records {
		query, args, err := m.builder.
			Insert("news_articles").
			Columns("id", "slug", "title", "content", "summary", "source", "source_url",
				"tags", "tool_mentions", "published_at", "created_at", "updated_at").
			Values(rec.ID, rec.Slug, rec.Title, rec.Content, rec.Summary, rec.Source, rec.SourceURL,
				pq.Array(rec.Tags), pq.Array(rec.ToolMentions), rec.Date, rec.CreatedAt, rec.UpdatedAt).
			Suffix(`ON CONFLICT (id) DO UPDATE
				SET title = EXCLUDED.title,
				    content = EXCLUDED.content,
				    summary = EXCLUDED.summary,
				    tags = EXCLUDED.tags,
				    tool_mentions = EXCLUDED.tool_mentions,
				    updated_at = EXCLUDED.updated_at`).
			ToSql()
		if err != nil {
			return fmt.Errorf("build upsert for %s: %w", rec.ID, err)
		}

		if _, err := m.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert article %s: %w", rec.ID, err)
		}
	}

	return nil
}

// CountByMonth reports how many mirrored records fall into each month
// bucket, newest first.
func (m *PostgresMirror) CountByMonth(ctx context.Context) ([]domain.MonthCount, error) {
	if m.db == nil {
		return nil, nil
	}

	query, args, err := m.builder.
		Select("to_char(published_at, 'YYYY-MM') AS month", "count(*)").
		From("news_articles").
		GroupBy("month").
		OrderBy("month DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build month counts: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query month counts: %w", err)
	}
	defer rows.Close()

	var counts []domain.MonthCount
	for rows.Next() {
		var mc domain.MonthCount
		if err := rows.Scan(&mc.Month, &mc.Count); err != nil {
			return nil, fmt.Errorf("scan month count: %w", err)
		}
		counts = append(counts, mc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return counts, nil
}
