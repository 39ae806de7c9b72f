package handlers

import (
	"github.com/go-chi/chi/v5"
)

// Register mounts the API routes on r, which is expected to sit under /api/v1.
func Register(r chi.Router, tx *TransactionHandler, accounts *AccountHandler, docs *DocumentHandler) {
	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", tx.List)
		r.Post("/", tx.Create)
		r.Get("/stats", tx.Stats)
		r.Get("/{id}", tx.Get)
		r.Put("/{id}", tx.Update)
		r.Delete("/{id}", tx.Delete)
		r.Post("/{id}/documents", docs.Upload)
	})

	r.Post("/transfers", tx.CreateTransfer)
	r.Get("/transfers/{ref}", tx.GetTransfer)

	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", accounts.ListAccounts)
		r.Post("/", accounts.CreateAccount)
		r.Get("/{id}", accounts.GetAccount)
		r.Delete("/{id}", accounts.DeleteAccount)
		r.Post("/{id}/recalculate", tx.Recalculate)
	})

	r.Get("/tiers", accounts.ListTiers)
	r.Post("/tiers", accounts.CreateTiers)
	r.Get("/tiers/{id}", accounts.GetTiers)

	r.Get("/categories", accounts.ListCategories)
	r.Post("/categories", accounts.CreateCategory)

	r.Get("/documents/{id}", docs.Download)
	r.Delete("/documents/{id}", docs.Delete)
}
