package shares

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrijs2005/filedrop/internal/common"
	"github.com/dmitrijs2005/filedrop/internal/dbx"
	"github.com/dmitrijs2005/filedrop/internal/server/models"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint error.
const uniqueViolation = "23505"

// PostgresRepository implements Repository over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, share *models.Share) error {
	query := `
		INSERT INTO shares (id, object_id, filename, mime_type, content_hash, code,
			size_bytes, is_ephemeral, is_encrypted, due_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		share.ID, share.ObjectID, share.Filename, share.MimeType, share.ContentHash,
		share.Code, share.SizeBytes, share.IsEphemeral, share.IsEncrypted,
		share.DueAt, share.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return common.ErrorCodeTaken
		}
		return fmt.Errorf("insert share: %w", err)
	}
	return nil
}

const selectColumns = `id, object_id, filename, mime_type, content_hash, code,
	size_bytes, is_ephemeral, is_encrypted, due_at, created_at`

func scanShare(row interface{ Scan(...any) error }) (*models.Share, error) {
	var s models.Share
	err := row.Scan(&s.ID, &s.ObjectID, &s.Filename, &s.MimeType, &s.ContentHash,
		&s.Code, &s.SizeBytes, &s.IsEphemeral, &s.IsEncrypted, &s.DueAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan share: %w", err)
	}
	return &s, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Share, error) {
	query := `SELECT ` + selectColumns + ` FROM shares WHERE id = $1`
	return scanShare(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByCode(ctx context.Context, code string) (*models.Share, error) {
	query := `SELECT ` + selectColumns + ` FROM shares WHERE code = $1`
	return scanShare(r.db.QueryRowContext(ctx, query, strings.ToUpper(code)))
}

func (r *PostgresRepository) ExistingCodes(ctx context.Context, codes []string) (map[string]struct{}, error) {
	if len(codes) == 0 {
		return map[string]struct{}{}, nil
	}

	placeholders := make([]string, len(codes))
	args := make([]any, len(codes))
	for i, c := range codes {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = c
	}

	query := `SELECT code FROM shares WHERE code IN (` + strings.Join(placeholders, ", ") + `)`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select codes: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]struct{})
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		existing[code] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return existing, nil
}

func (r *PostgresRepository) ForceExpire(ctx context.Context, id string) error {
	query := `UPDATE shares SET due_at = to_timestamp(0) WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("force expire: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteDue(ctx context.Context, now time.Time) ([]string, error) {
	query := `DELETE FROM shares WHERE due_at <= $1 RETURNING object_id`
	return r.deleteReturningObjectIDs(ctx, query, now)
}

func (r *PostgresRepository) DeleteByIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := `DELETE FROM shares WHERE id IN (` + strings.Join(placeholders, ", ") + `) RETURNING object_id`
	return r.deleteReturningObjectIDs(ctx, query, args...)
}

func (r *PostgresRepository) deleteReturningObjectIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("delete shares: %w", err)
	}
	defer rows.Close()

	var objectIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		objectIDs = append(objectIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return objectIDs, nil
}

// listColumns whitelists admin ordering columns; anything else falls back to
// created_at to keep ORDER BY out of injection territory.
var listColumns = map[string]struct{}{
	"code": {}, "filename": {}, "size_bytes": {}, "due_at": {}, "created_at": {},
}

func (r *PostgresRepository) List(ctx context.Context, p ListParams) ([]*models.Share, error) {
	orderBy := p.OrderBy
	if _, ok := listColumns[orderBy]; !ok {
		orderBy = "created_at"
	}
	direction := "ASC"
	if p.Desc {
		direction = "DESC"
	}

	query := `SELECT ` + selectColumns + ` FROM shares ORDER BY ` + orderBy + ` ` + direction + ` LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, p.Limit, p.Offset)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	defer rows.Close()

	var result []*models.Share
	for rows.Next() {
		item, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM shares`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count shares: %w", err)
	}
	return count, nil
}
