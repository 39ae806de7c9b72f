package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/tresorerie/backend/internal/models"
	"github.com/tresorerie/backend/internal/store"
)

// TiersService manages clients and suppliers. Their balance is derived on read.
type TiersService struct {
	store  store.Store
	logger *slog.Logger
}

func NewTiersService(st store.Store, logger *slog.Logger) *TiersService {
	return &TiersService{store: st, logger: logger}
}

func (s *TiersService) Create(ctx context.Context, name string, kind models.TiersKind, email, phone string) (*models.Tiers, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, missing("name")
	}
	if kind != models.TiersClient && kind != models.TiersFournisseur {
		return nil, invalid("kind", "must be client or fournisseur; got %q", kind)
	}

	t := &models.Tiers{
		ID:    uuid.NewString(),
		Name:  name,
		Kind:  kind,
		Email: optional(email),
		Phone: optional(phone),
	}
	if err := s.store.WithTx(ctx, func(q store.Queries) error {
		return q.CreateTiers(ctx, t)
	}); err != nil {
		return nil, err
	}

	s.logger.Info("tiers created", "id", t.ID, "kind", t.Kind)
	return t, nil
}

// Get returns the third party with its derived balance, or nil if absent.
func (s *TiersService) Get(ctx context.Context, id string) (*models.Tiers, error) {
	var t *models.Tiers
	err := s.store.View(ctx, func(q store.Queries) error {
		var err error
		t, err = q.GetTiers(ctx, id)
		return err
	})
	return t, err
}

func (s *TiersService) List(ctx context.Context) ([]models.Tiers, error) {
	var out []models.Tiers
	err := s.store.View(ctx, func(q store.Queries) error {
		var err error
		out, err = q.ListTiers(ctx)
		return err
	})
	return out, err
}

// CategoryService manages reporting categories.
type CategoryService struct {
	store  store.Store
	logger *slog.Logger
}

func NewCategoryService(st store.Store, logger *slog.Logger) *CategoryService {
	return &CategoryService{store: st, logger: logger}
}

func (s *CategoryService) Create(ctx context.Context, name string, kind models.TransactionType) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, missing("name")
	}
	if kind != models.TypeRecette && kind != models.TypeDepense {
		return nil, invalid("kind", "must be recette or depense; got %q", kind)
	}

	c := &models.Category{ID: uuid.NewString(), Name: name, Kind: kind}
	if err := s.store.WithTx(ctx, func(q store.Queries) error {
		return q.CreateCategory(ctx, c)
	}); err != nil {
		return nil, err
	}

	s.logger.Info("category created", "id", c.ID, "kind", c.Kind)
	return c, nil
}

func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	err := s.store.View(ctx, func(q store.Queries) error {
		var err error
		out, err = q.ListCategories(ctx)
		return err
	})
	return out, err
}
