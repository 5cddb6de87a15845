package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/studydesk-backend/internal/data/repos"
	"github.com/yungbote/studydesk-backend/internal/documents"
	"github.com/yungbote/studydesk-backend/internal/domain/notes"
	"github.com/yungbote/studydesk-backend/internal/observability"
	apperr "github.com/yungbote/studydesk-backend/internal/pkg/errors"
	"github.com/yungbote/studydesk-backend/internal/platform/logger"
)

// ObjectStore keeps the original uploaded bytes. *supabase.Storage
// implements it.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Remove(ctx context.Context, key string) error
}

type DocumentService interface {
	// Upload stores and extracts one file. Extraction problems do not fail
	// the call: the document is returned with status failed and its error.
	Upload(ctx context.Context, f documents.File) (*notes.Document, error)
	// UploadMany processes files concurrently. The returned slice keeps
	// input order; entries are nil where Upload itself failed.
	UploadMany(ctx context.Context, files []documents.File) ([]*notes.Document, error)
	List(ctx context.Context) ([]*notes.Document, error)
	Delete(ctx context.Context, documentID string) error
}

type documentService struct {
	log     *logger.Logger
	docs    repos.DocumentRepo
	store   ObjectStore
	metrics *observability.Metrics
}

// NewDocumentService builds the service; store may be nil, in which case
// only the extracted text is kept.
func NewDocumentService(log *logger.Logger, docs repos.DocumentRepo, store ObjectStore, metrics *observability.Metrics) DocumentService {
	return &documentService{
		log:     log.With("service", "DocumentService"),
		docs:    docs,
		store:   store,
		metrics: metrics,
	}
}

func (s *documentService) Upload(ctx context.Context, f documents.File) (*notes.Document, error) {
	ownerID, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	name := path.Base(strings.TrimSpace(strings.ReplaceAll(f.Name, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return nil, fmt.Errorf("%w: file name is required", apperr.ErrInvalidArgument)
	}
	if len(f.Data) > documents.MaxUploadBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", apperr.ErrInvalidArgument, name, documents.MaxUploadBytes)
	}
	f.Name = name

	doc := &notes.Document{
		OwnerID:   ownerID,
		FileName:  name,
		MimeType:  strings.TrimSpace(f.MimeType),
		SizeBytes: int64(len(f.Data)),
		Status:    notes.StatusUploading,
	}
	if err := s.docs.Create(dbc(ctx), doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	if s.store != nil {
		key := fmt.Sprintf("%s/%s/%s", ownerID, doc.ID, name)
		if err := s.store.Put(ctx, key, contentTypeOr(f.MimeType), f.Data); err != nil {
			return s.fail(ctx, doc, "", fmt.Errorf("store original: %w", err))
		}
		doc.StorageKey = key
	}

	doc.Status = notes.StatusProcessing
	if err := s.docs.UpdateFields(dbc(ctx), doc.ID, map[string]interface{}{
		"status":      doc.Status,
		"storage_key": doc.StorageKey,
	}); err != nil {
		return nil, fmt.Errorf("mark processing: %w", err)
	}

	ex, err := documents.Extract(f)
	if err != nil {
		return s.fail(ctx, doc, ex.Kind, err)
	}
	doc.Text = ex.Text
	doc.Status = notes.StatusComplete
	if err := s.docs.UpdateFields(dbc(ctx), doc.ID, map[string]interface{}{
		"status": doc.Status,
		"text":   doc.Text,
	}); err != nil {
		return nil, fmt.Errorf("save extracted text: %w", err)
	}
	s.metrics.ObserveUpload(string(ex.Kind), doc.Status)
	s.log.Info("document processed", "document_id", doc.ID, "kind", ex.Kind, "chars", len(doc.Text))
	return doc, nil
}

// fail records cause on the document and returns it with status failed.
func (s *documentService) fail(ctx context.Context, doc *notes.Document, kind documents.Kind, cause error) (*notes.Document, error) {
	doc.Status = notes.StatusFailed
	doc.Error = cause.Error()
	s.log.Warn("document processing failed", "document_id", doc.ID, "error", cause)
	s.metrics.ObserveUpload(string(kind), doc.Status)
	if err := s.docs.UpdateFields(dbc(ctx), doc.ID, map[string]interface{}{
		"status": doc.Status,
		"error":  doc.Error,
	}); err != nil {
		return nil, fmt.Errorf("mark failed: %w", err)
	}
	return doc, nil
}

func (s *documentService) UploadMany(ctx context.Context, files []documents.File) ([]*notes.Document, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files", apperr.ErrInvalidArgument)
	}
	out := make([]*notes.Document, len(files))
	var (
		mu   sync.Mutex
		errs *multierror.Error
	)
	var g errgroup.Group
	g.SetLimit(4)
	for i := range files {
		i := i
		g.Go(func() error {
			doc, err := s.Upload(ctx, files[i])
			if err != nil {
				mu.Lock()
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", files[i].Name, err))
				mu.Unlock()
				return nil
			}
			out[i] = doc
			return nil
		})
	}
	_ = g.Wait()
	return out, errs.ErrorOrNil()
}

func (s *documentService) List(ctx context.Context) ([]*notes.Document, error) {
	ownerID, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	return s.docs.ListByOwner(dbc(ctx), ownerID)
}

// Delete removes the row and then the stored original. A failure to remove
// the object is only logged; the row is already gone.
func (s *documentService) Delete(ctx context.Context, documentID string) error {
	ownerID, err := requireOwner(ctx)
	if err != nil {
		return err
	}
	id, err := parseID(documentID, "document")
	if err != nil {
		return err
	}
	doc, err := s.docs.Delete(dbc(ctx), ownerID, id)
	if err != nil {
		return err
	}
	if s.store == nil || doc.StorageKey == "" {
		return nil
	}
	if err := s.store.Remove(ctx, doc.StorageKey); err != nil {
		s.log.Warn("stored object not removed", "document_id", doc.ID, "key", doc.StorageKey, "error", err)
	}
	return nil
}

func contentTypeOr(mt string) string {
	if mt = strings.TrimSpace(mt); mt != "" {
		return mt
	}
	return "application/octet-stream"
}
