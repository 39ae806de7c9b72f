package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/tresorerie/backend/internal/config"
	"github.com/tresorerie/backend/internal/models"
	"github.com/tresorerie/backend/internal/store"
)

// DocumentService stores transaction attachments on disk and their metadata in the store.
type DocumentService struct {
	store    store.Store
	dir      string
	maxBytes int64
	logger   *slog.Logger
}

func NewDocumentService(st store.Store, cfg config.DocumentsConfig, logger *slog.Logger) (*DocumentService, error) {
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create documents dir: %w", err)
	}
	return &DocumentService{store: st, dir: cfg.Dir, maxBytes: cfg.MaxUploadBytes, logger: logger}, nil
}

// Upload attaches the content of r to an existing transaction.
func (s *DocumentService) Upload(ctx context.Context, transactionID, fileName, contentType string, r io.Reader) (*models.Document, error) {
	fileName = filepath.Base(strings.TrimSpace(fileName))
	if fileName == "" || fileName == "." || fileName == string(filepath.Separator) {
		return nil, missing("file_name")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var exists bool
	if err := s.store.View(ctx, func(q store.Queries) error {
		t, err := q.GetTransaction(ctx, transactionID)
		exists = t != nil
		return err
	}); err != nil {
		return nil, err
	}
	if !exists {
		return nil, &NotFoundError{Kind: "transaction", ID: transactionID}
	}

	id := uuid.NewString()
	path := filepath.Join(s.dir, id+strings.ToLower(filepath.Ext(fileName)))

	size, err := s.write(path, r)
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		ID:            id,
		TransactionID: transactionID,
		FileName:      fileName,
		ContentType:   contentType,
		Size:          size,
		Path:          path,
	}
	if err := s.store.WithTx(ctx, func(q store.Queries) error {
		// the transaction may have been deleted while the file was written
		t, err := q.GetTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		if t == nil {
			return &NotFoundError{Kind: "transaction", ID: transactionID}
		}
		return q.InsertDocument(ctx, doc)
	}); err != nil {
		s.remove(path)
		return nil, err
	}

	s.logger.Info("document uploaded", "id", id, "transaction_id", transactionID, "size", size)
	return doc, nil
}

func (s *DocumentService) write(path string, r io.Reader) (int64, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return 0, fmt.Errorf("failed to create document file: %w", err)
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		s.remove(path)
		return 0, fmt.Errorf("failed to write document file: %w", err)
	}
	if s.maxBytes > 0 && n > s.maxBytes {
		s.remove(path)
		return 0, invalid("file", "exceeds the %d byte limit", s.maxBytes)
	}
	return n, nil
}

// Open returns the document metadata and its content. The caller closes the file.
func (s *DocumentService) Open(ctx context.Context, id string) (*models.Document, *os.File, error) {
	doc, err := s.get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(doc.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, &NotFoundError{Kind: "document file", ID: id}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open document: %w", err)
	}
	return doc, f, nil
}

func (s *DocumentService) Delete(ctx context.Context, id string) error {
	doc, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.WithTx(ctx, func(q store.Queries) error {
		return q.DeleteDocument(ctx, id)
	}); err != nil {
		return err
	}
	s.remove(doc.Path)
	s.logger.Info("document deleted", "id", id)
	return nil
}

// CascadeDeleteForTransaction drops every attachment of a deleted transaction.
func (s *DocumentService) CascadeDeleteForTransaction(ctx context.Context, transactionID string) error {
	var removed []models.Document
	if err := s.store.WithTx(ctx, func(q store.Queries) error {
		var err error
		removed, err = q.DeleteDocumentsForTransaction(ctx, transactionID)
		return err
	}); err != nil {
		return err
	}
	for _, d := range removed {
		s.remove(d.Path)
	}
	if len(removed) > 0 {
		s.logger.Info("documents cascaded", "transaction_id", transactionID, "count", len(removed))
	}
	return nil
}

func (s *DocumentService) get(ctx context.Context, id string) (*models.Document, error) {
	var doc *models.Document
	if err := s.store.View(ctx, func(q store.Queries) error {
		var err error
		doc, err = q.GetDocument(ctx, id)
		return err
	}); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, &NotFoundError{Kind: "document", ID: id}
	}
	return doc, nil
}

func (s *DocumentService) remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("failed to remove document file", "path", path, "error", err)
	}
}

var _ DocumentCascader = (*DocumentService)(nil)
