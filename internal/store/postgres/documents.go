package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tresorerie/backend/internal/models"
)

const documentColumns = `id, transaction_id, file_name, content_type, size, path, uploaded_at`

func scanDocument(row interface{ Scan(...any) error }) (*models.Document, error) {
	var d models.Document
	err := row.Scan(&d.ID, &d.TransactionID, &d.FileName, &d.ContentType, &d.Size, &d.Path, &d.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}
	return &d, nil
}

func (q *queries) queryDocuments(ctx context.Context, query string, args ...any) ([]models.Document, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

func (q *queries) InsertDocument(ctx context.Context, d *models.Document) error {
	if err := q.db.QueryRowContext(ctx, `
		INSERT INTO documents (id, transaction_id, file_name, content_type, size, path)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING uploaded_at`,
		d.ID, d.TransactionID, d.FileName, d.ContentType, d.Size, d.Path,
	).Scan(&d.UploadedAt); err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

func (q *queries) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	return scanDocument(q.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
}

func (q *queries) ListDocuments(ctx context.Context, transactionID string) ([]models.Document, error) {
	return q.queryDocuments(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE transaction_id = $1 ORDER BY uploaded_at`, transactionID)
}

func (q *queries) DeleteDocument(ctx context.Context, id string) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	return nil
}

func (q *queries) DeleteDocumentsForTransaction(ctx context.Context, transactionID string) ([]models.Document, error) {
	return q.queryDocuments(ctx,
		`DELETE FROM documents WHERE transaction_id = $1 RETURNING `+documentColumns, transactionID)
}
