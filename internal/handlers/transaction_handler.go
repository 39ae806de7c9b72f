package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/tresorerie/backend/internal/models"
	"github.com/tresorerie/backend/internal/services"
)

type TransactionHandler struct {
	ledger    *services.LedgerService
	validator *services.ValidationHelper
	logger    *slog.Logger
}

func NewTransactionHandler(ledger *services.LedgerService, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{
		ledger:    ledger,
		validator: services.NewValidationHelper(),
		logger:    logger,
	}
}

type metadataRequest struct {
	Reference     string `json:"reference"`
	PaymentMethod string `json:"payment_method"`
	Status        string `json:"status"`
	BankNotes     string `json:"bank_notes"`
	Comments      string `json:"comments"`
	ValueDate     string `json:"value_date" validate:"omitempty,datetime=2006-01-02"`
	EffectiveDate string `json:"effective_date" validate:"omitempty,datetime=2006-01-02"`
}

func (m metadataRequest) toMetadata() services.Metadata {
	vd, _ := optionalDay("value_date", m.ValueDate)
	ed, _ := optionalDay("effective_date", m.EffectiveDate)
	return services.Metadata{
		Reference:     m.Reference,
		PaymentMethod: m.PaymentMethod,
		Status:        m.Status,
		BankNotes:     m.BankNotes,
		Comments:      m.Comments,
		ValueDate:     vd,
		EffectiveDate: ed,
	}
}

type createTransactionRequest struct {
	Type        string          `json:"type" validate:"omitempty,oneof=recette depense achat"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	AccountID   string          `json:"account_id"`
	TiersID     string          `json:"tiers_id"`
	CategoryID  string          `json:"category_id"`
	metadataRequest
}

type transferRequest struct {
	FromAccountID string          `json:"from_account_id"`
	ToAccountID   string          `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	Date          string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	TiersID       string          `json:"tiers_id"`
	CategoryID    string          `json:"category_id"`
	metadataRequest
}

type updateTransactionRequest struct {
	Type          *string          `json:"type" validate:"omitempty,oneof=recette depense virement_debit virement_credit achat"`
	Description   *string          `json:"description"`
	Amount        *decimal.Decimal `json:"amount"`
	Date          *string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	AccountID     *string          `json:"account_id"`
	TiersID       *string          `json:"tiers_id"`
	CategoryID    *string          `json:"category_id"`
	Reference     *string          `json:"reference"`
	PaymentMethod *string          `json:"payment_method"`
	ValueDate     *string          `json:"value_date"`
	EffectiveDate *string          `json:"effective_date"`
	Status        *string          `json:"status"`
	BankNotes     *string          `json:"bank_notes"`
	Comments      *string          `json:"comments"`
}

// Create records a receipt, expense or purchase
// @Summary Create transaction
// @Tags Transactions
// @Accept json
// @Produce json
// @Param request body createTransactionRequest true "Transaction"
// @Success 201 {object} models.Transaction
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /transactions [post]
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	in := services.CreateTransactionInput{
		Type:        models.TransactionType(req.Type),
		Description: req.Description,
		Amount:      req.Amount,
		AccountID:   req.AccountID,
		TiersID:     req.TiersID,
		CategoryID:  req.CategoryID,
		Metadata:    req.toMetadata(),
	}
	if d, _ := optionalDay("date", req.Date); d != nil {
		in.Date = *d
	}

	tx, err := h.ledger.Create(r.Context(), in)
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

// CreateTransfer moves money between two accounts
// @Summary Create transfer
// @Tags Transactions
// @Accept json
// @Produce json
// @Param request body transferRequest true "Transfer"
// @Success 201 {object} models.TransferResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /transfers [post]
func (h *TransactionHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	in := services.TransferInput{
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
		Description:   req.Description,
		TiersID:       req.TiersID,
		CategoryID:    req.CategoryID,
		Metadata:      req.toMetadata(),
	}
	if d, _ := optionalDay("date", req.Date); d != nil {
		in.Date = *d
	}

	res, err := h.ledger.CreateTransfer(r.Context(), in)
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// List returns transactions, newest first
// @Summary List transactions
// @Tags Transactions
// @Produce json
// @Param search query string false "Text search"
// @Param type query string false "Transaction type"
// @Param account_id query string false "Account"
// @Param month query string false "YYYY-MM"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Param limit query int false "Max rows"
// @Success 200 {array} models.Transaction
// @Router /transactions [get]
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.TransactionFilter{
		Search:     q.Get("search"),
		Type:       models.TransactionType(q.Get("type")),
		AccountID:  q.Get("account_id"),
		TiersID:    q.Get("tiers_id"),
		CategoryID: q.Get("category_id"),
		Month:      q.Get("month"),
	}

	var err error
	if f.From, err = queryDay(r, "from"); err != nil {
		services.SendError(w, err)
		return
	}
	if f.To, err = queryDay(r, "to"); err != nil {
		services.SendError(w, err)
		return
	}
	if f.Limit, err = queryInt(r, "limit"); err != nil {
		services.SendError(w, err)
		return
	}

	txs, err := h.ledger.GetAll(r.Context(), f)
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

// Stats returns counts and totals
// @Summary Transaction statistics
// @Tags Transactions
// @Produce json
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Success 200 {object} models.Stats
// @Router /transactions/stats [get]
func (h *TransactionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var f models.StatsFilter
	var err error
	if f.From, err = queryDay(r, "from"); err != nil {
		services.SendError(w, err)
		return
	}
	if f.To, err = queryDay(r, "to"); err != nil {
		services.SendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.ledger.GetStats(r.Context(), f))
}

// Get returns one transaction with its documents
// @Summary Get transaction
// @Tags Transactions
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} models.Transaction
// @Failure 404 {object} services.ErrorResponse
// @Router /transactions/{id} [get]
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tx, err := h.ledger.GetByID(r.Context(), id)
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	if tx == nil {
		notFound(w, "transaction", id)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// Update applies a partial update
// @Summary Update transaction
// @Tags Transactions
// @Accept json
// @Produce json
// @Param id path string true "Transaction ID"
// @Param request body updateTransactionRequest true "Fields to change"
// @Success 200 {object} models.Transaction
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /transactions/{id} [put]
func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateTransactionRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	upd := services.TransactionUpdate{
		Description:   req.Description,
		Amount:        req.Amount,
		AccountID:     req.AccountID,
		TiersID:       req.TiersID,
		CategoryID:    req.CategoryID,
		Reference:     req.Reference,
		PaymentMethod: req.PaymentMethod,
		ValueDate:     req.ValueDate,
		EffectiveDate: req.EffectiveDate,
		Status:        req.Status,
		BankNotes:     req.BankNotes,
		Comments:      req.Comments,
	}
	if req.Type != nil {
		typ := models.TransactionType(*req.Type)
		upd.Type = &typ
	}
	if req.Date != nil && *req.Date != "" {
		d, _ := models.ParseDay(*req.Date)
		upd.Date = &d
	}

	tx, err := h.ledger.Update(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// Delete removes a transaction or a whole transfer
// @Summary Delete transaction
// @Tags Transactions
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} object{success=bool}
// @Failure 404 {object} services.ErrorResponse
// @Router /transactions/{id} [delete]
func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		fail(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GetTransfer returns both legs of a transfer
// @Summary Get transfer legs
// @Tags Transactions
// @Produce json
// @Param ref path string true "Transfer reference"
// @Success 200 {array} models.Transaction
// @Failure 404 {object} services.ErrorResponse
// @Router /transfers/{ref} [get]
func (h *TransactionHandler) GetTransfer(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	legs, err := h.ledger.GetByTransferRef(r.Context(), ref)
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	if len(legs) == 0 {
		notFound(w, "transfer", ref)
		return
	}
	writeJSON(w, http.StatusOK, legs)
}

type recalculateRequest struct {
	From string `json:"from" validate:"omitempty,datetime=2006-01-02"`
}

// Recalculate rebuilds the running balances of an account
// @Summary Recalculate account balances
// @Tags Accounts
// @Accept json
// @Produce json
// @Param id path string true "Account ID"
// @Param request body recalculateRequest false "Start day, defaults to the beginning"
// @Success 200 {object} object{success=bool}
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{id}/recalculate [post]
func (h *TransactionHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	var req recalculateRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, h.validator, &req) {
		return
	}

	var from time.Time
	if d, _ := optionalDay("from", req.From); d != nil {
		from = *d
	}
	if err := h.ledger.RecalculateBalances(r.Context(), chi.URLParam(r, "id"), from); err != nil {
		fail(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
