package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tresorerie/backend/internal/models"
	"github.com/tresorerie/backend/internal/services"
)

// AccountHandler serves accounts, third parties and categories.
type AccountHandler struct {
	accounts   *services.AccountService
	tiers      *services.TiersService
	categories *services.CategoryService
	validator  *services.ValidationHelper
	logger     *slog.Logger
}

func NewAccountHandler(accounts *services.AccountService, tiers *services.TiersService, categories *services.CategoryService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accounts:   accounts,
		tiers:      tiers,
		categories: categories,
		validator:  services.NewValidationHelper(),
		logger:     logger,
	}
}

type createAccountRequest struct {
	Name string `json:"name" validate:"required,max=100"`
	Type string `json:"type" validate:"required,oneof=cash bank"`
}

// CreateAccount
// @Summary Create account
// @Tags Accounts
// @Accept json
// @Produce json
// @Param request body createAccountRequest true "Account"
// @Success 201 {object} models.Account
// @Failure 400 {object} services.ErrorResponse
// @Router /accounts [post]
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}
	a, err := h.accounts.Create(r.Context(), req.Name, models.AccountType(req.Type))
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// ListAccounts
// @Summary List accounts
// @Tags Accounts
// @Produce json
// @Param all query bool false "Include inactive accounts"
// @Success 200 {array} models.Account
// @Router /accounts [get]
func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.List(r.Context(), r.URL.Query().Get("all") == "true")
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	if accounts == nil {
		accounts = []models.Account{}
	}
	writeJSON(w, http.StatusOK, accounts)
}

// GetAccount
// @Summary Get account
// @Tags Accounts
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} models.Account
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{id} [get]
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, err := h.accounts.Get(r.Context(), id)
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	if a == nil {
		notFound(w, "account", id)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// DeleteAccount soft-deletes an account without transactions
// @Summary Delete account
// @Tags Accounts
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} object{success=bool}
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{id} [delete]
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.Deactivate(r.Context(), chi.URLParam(r, "id")); err != nil {
		fail(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type createTiersRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Kind  string `json:"kind" validate:"required,oneof=client fournisseur"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone" validate:"omitempty,max=30"`
}

// CreateTiers
// @Summary Create client or supplier
// @Tags Tiers
// @Accept json
// @Produce json
// @Param request body createTiersRequest true "Third party"
// @Success 201 {object} models.Tiers
// @Failure 400 {object} services.ErrorResponse
// @Router /tiers [post]
func (h *AccountHandler) CreateTiers(w http.ResponseWriter, r *http.Request) {
	var req createTiersRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}
	t, err := h.tiers.Create(r.Context(), req.Name, models.TiersKind(req.Kind), req.Email, req.Phone)
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// ListTiers
// @Summary List clients and suppliers
// @Tags Tiers
// @Produce json
// @Success 200 {array} models.Tiers
// @Router /tiers [get]
func (h *AccountHandler) ListTiers(w http.ResponseWriter, r *http.Request) {
	list, err := h.tiers.List(r.Context())
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	if list == nil {
		list = []models.Tiers{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GetTiers
// @Summary Get client or supplier with balance
// @Tags Tiers
// @Produce json
// @Param id path string true "Tiers ID"
// @Success 200 {object} models.Tiers
// @Failure 404 {object} services.ErrorResponse
// @Router /tiers/{id} [get]
func (h *AccountHandler) GetTiers(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, err := h.tiers.Get(r.Context(), id)
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	if t == nil {
		notFound(w, "tiers", id)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type createCategoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
	Kind string `json:"kind" validate:"required,oneof=recette depense"`
}

// CreateCategory
// @Summary Create category
// @Tags Categories
// @Accept json
// @Produce json
// @Param request body createCategoryRequest true "Category"
// @Success 201 {object} models.Category
// @Failure 400 {object} services.ErrorResponse
// @Router /categories [post]
func (h *AccountHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}
	c, err := h.categories.Create(r.Context(), req.Name, models.TransactionType(req.Kind))
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// ListCategories
// @Summary List categories
// @Tags Categories
// @Produce json
// @Success 200 {array} models.Category
// @Router /categories [get]
func (h *AccountHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	list, err := h.categories.List(r.Context())
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	if list == nil {
		list = []models.Category{}
	}
	writeJSON(w, http.StatusOK, list)
}
