package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tresorerie/backend/internal/models"
)

// The tiers balance is derived: receipts minus expenses and purchases.
const selectTiers = `
	SELECT ti.id, ti.name, ti.kind, ti.email, ti.phone, ti.created_at,
	       COALESCE(SUM(CASE
	           WHEN t.type = 'recette' THEN t.amount
	           WHEN t.type IN ('depense', 'achat') THEN -t.amount
	           ELSE 0 END), 0)
	FROM tiers ti
	LEFT JOIN transactions t ON t.tiers_id = ti.id`

func scanTiers(row interface{ Scan(...any) error }) (*models.Tiers, error) {
	var t models.Tiers
	err := row.Scan(&t.ID, &t.Name, &t.Kind, &t.Email, &t.Phone, &t.CreatedAt, &t.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan tiers: %w", err)
	}
	return &t, nil
}

func (q *queries) CreateTiers(ctx context.Context, t *models.Tiers) error {
	if err := q.db.QueryRowContext(ctx, `
		INSERT INTO tiers (id, name, kind, email, phone)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		t.ID, t.Name, t.Kind, t.Email, t.Phone,
	).Scan(&t.CreatedAt); err != nil {
		return fmt.Errorf("failed to create tiers: %w", err)
	}
	return nil
}

func (q *queries) GetTiers(ctx context.Context, id string) (*models.Tiers, error) {
	return scanTiers(q.db.QueryRowContext(ctx, selectTiers+` WHERE ti.id = $1 GROUP BY ti.id`, id))
}

func (q *queries) ListTiers(ctx context.Context) ([]models.Tiers, error) {
	rows, err := q.db.QueryContext(ctx, selectTiers+` GROUP BY ti.id ORDER BY ti.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tiers: %w", err)
	}
	defer rows.Close()

	var out []models.Tiers
	for rows.Next() {
		t, err := scanTiers(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func scanCategory(row interface{ Scan(...any) error }) (*models.Category, error) {
	var c models.Category
	err := row.Scan(&c.ID, &c.Name, &c.Kind, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan category: %w", err)
	}
	return &c, nil
}

func (q *queries) CreateCategory(ctx context.Context, c *models.Category) error {
	if err := q.db.QueryRowContext(ctx,
		`INSERT INTO categories (id, name, kind) VALUES ($1, $2, $3) RETURNING created_at`,
		c.ID, c.Name, c.Kind,
	).Scan(&c.CreatedAt); err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

func (q *queries) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	return scanCategory(q.db.QueryRowContext(ctx,
		`SELECT id, name, kind, created_at FROM categories WHERE id = $1`, id))
}

func (q *queries) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id, name, kind, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var out []models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
