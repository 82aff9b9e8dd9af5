package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/pavelzubkov/qrlink/internal/entity"
)

const uniqueViolationErrCode = "23505"

func isUniqueViolationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.SQLState() == uniqueViolationErrCode
}

// variantURLsDB stores per-device destination overrides as a jsonb column.
type variantURLsDB map[string]string

func (v variantURLsDB) Value() (driver.Value, error) {
	if len(v) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(v)
}

func (v *variantURLsDB) Scan(src any) error {
	switch data := src.(type) {
	case nil:
		*v = nil
		return nil
	case []byte:
		return json.Unmarshal(data, v)
	case string:
		return json.Unmarshal([]byte(data), v)
	default:
		return fmt.Errorf("unsupported variant_urls source type %T", src)
	}
}

type linkDB struct {
	ID          int64         `db:"id"`
	LinkID      string        `db:"link_id"`
	DefaultURL  string        `db:"default_url"`
	VariantURLs variantURLsDB `db:"variant_urls"`
	Theme       string        `db:"theme"`
	ExpiresAt   *time.Time    `db:"expires_at"`
	ScanCount   int64         `db:"scan_count"`
	LastScanAt  *time.Time    `db:"last_scan_at"`
	CreatedAt   time.Time     `db:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at"`
}

func (l *linkDB) toEntity() *entity.Link {
	variants := make(entity.VariantURLs, len(l.VariantURLs))
	for device, url := range l.VariantURLs {
		variants[entity.DeviceClass(device)] = url
	}

	return &entity.Link{
		ID:          l.ID,
		LinkID:      l.LinkID,
		DefaultURL:  l.DefaultURL,
		VariantURLs: variants,
		Theme:       l.Theme,
		ExpiresAt:   l.ExpiresAt,
		LinkStats: entity.LinkStats{
			ScanCount:  l.ScanCount,
			LastScanAt: l.LastScanAt,
		},
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

func toVariantURLsDB(variants entity.VariantURLs) variantURLsDB {
	out := make(variantURLsDB, len(variants))
	for device, url := range variants {
		out[string(device)] = url
	}
	return out
}

type LinkRepository struct {
	db *sqlx.DB
}

func NewLinkRepository(db *sqlx.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

func (r *LinkRepository) Save(ctx context.Context, link *entity.Link) (*entity.Link, error) {
	const op = "adapter.repository.postgres.LinkRepository.Save"
	const query = `INSERT INTO links(link_id, default_url, variant_urls, theme, expires_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING *`

	var rec linkDB

	err := r.db.GetContext(ctx, &rec, query,
		link.LinkID, link.DefaultURL, toVariantURLsDB(link.VariantURLs), link.Theme, link.ExpiresAt)
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrLinkExists)
		}

		return nil, fmt.Errorf("%s: failed to insert into links table: %w", op, err)
	}

	return rec.toEntity(), nil
}

func (r *LinkRepository) RetrieveByLinkID(ctx context.Context, linkID string) (*entity.Link, error) {
	const op = "adapter.repository.postgres.LinkRepository.RetrieveByLinkID"
	const query = `SELECT * FROM links WHERE link_id = $1`

	var rec linkDB

	if err := r.db.GetContext(ctx, &rec, query, linkID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get row from links table: %w", op, err)
	}

	return rec.toEntity(), nil
}

func (r *LinkRepository) List(ctx context.Context) ([]*entity.Link, error) {
	const op = "adapter.repository.postgres.LinkRepository.List"
	const query = `SELECT * FROM links ORDER BY created_at DESC`

	var recs []linkDB

	if err := r.db.SelectContext(ctx, &recs, query); err != nil {
		return nil, fmt.Errorf("%s: failed to select from links table: %w", op, err)
	}

	links := make([]*entity.Link, len(recs))
	for i := range recs {
		links[i] = recs[i].toEntity()
	}

	return links, nil
}

func (r *LinkRepository) Update(ctx context.Context, linkID, defaultURL string, variants entity.VariantURLs, expiresAt *time.Time) (*entity.Link, error) {
	const op = "adapter.repository.postgres.LinkRepository.Update"
	const query = `UPDATE links
		SET default_url = $1, variant_urls = $2, expires_at = $3, updated_at = now()
		WHERE link_id = $4 RETURNING *`

	var rec linkDB

	err := r.db.GetContext(ctx, &rec, query, defaultURL, toVariantURLsDB(variants), expiresAt, linkID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to update links table row: %w", op, err)
	}

	return rec.toEntity(), nil
}

func (r *LinkRepository) Remove(ctx context.Context, linkID string) error {
	const op = "adapter.repository.postgres.LinkRepository.Remove"
	const query = `DELETE FROM links WHERE link_id = $1`

	res, err := r.db.ExecContext(ctx, query, linkID)
	if err != nil {
		return fmt.Errorf("%s: failed to delete from links table: %w", op, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get number of affected rows: %w", op, err)
	}

	if rowsAffected != 1 {
		return fmt.Errorf("%s: %w", op, entity.ErrLinkNotFound)
	}

	return nil
}

// RecordScan applies one scan to the link's statistics as a single in-place
// update. The increment happens inside the database, never as a fetch
// followed by a write, so concurrent scans of the same link cannot lose
// updates. last_scan_at keeps the larger of the stored and observed
// timestamps, so late-arriving events never move it backwards.
func (r *LinkRepository) RecordScan(ctx context.Context, linkID string, scannedAt time.Time) error {
	const op = "adapter.repository.postgres.LinkRepository.RecordScan"
	const query = `UPDATE links
		SET scan_count = scan_count + 1,
			last_scan_at = GREATEST(COALESCE(last_scan_at, 'epoch'::timestamptz), $2)
		WHERE link_id = $1`

	res, err := r.db.ExecContext(ctx, query, linkID, scannedAt)
	if err != nil {
		return fmt.Errorf("%s: failed to update scan stats: %w", op, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get number of affected rows: %w", op, err)
	}

	if rowsAffected != 1 {
		return fmt.Errorf("%s: %w", op, entity.ErrLinkNotFound)
	}

	return nil
}
