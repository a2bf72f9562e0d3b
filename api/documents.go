package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/opshq/backoffice/internal/models"
	"github.com/opshq/backoffice/pkg/repository"
	"github.com/opshq/backoffice/pkg/storage"
)

// maxUploadBytes caps document uploads at 32 MiB.
const maxUploadBytes = 32 << 20

type DocumentsHandler struct {
	repo  repository.DocumentRepo
	store storage.Store
	audit repository.AuditRepo
}

func NewDocumentsHandler(dr repository.DocumentRepo, store storage.Store, ar repository.AuditRepo) *DocumentsHandler {
	return &DocumentsHandler{repo: dr, store: store, audit: ar}
}

type documentRequest struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Tags     string `json:"tags"`
}

func (h *DocumentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if !decode(w, r, &req) {
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Category = strings.TrimSpace(req.Category)
	if req.Title == "" || req.Category == "" {
		writeError(w, "title and category are required", http.StatusBadRequest)
		return
	}

	d := &models.Document{
		OrgID:     orgID(r),
		Title:     req.Title,
		Category:  req.Category,
		Tags:      req.Tags,
		CreatedBy: userID(r),
		UpdatedBy: userID(r),
	}
	id, err := h.repo.CreateDocument(r.Context(), d)
	if err != nil {
		logHandlerError("create document", err)
		writeError(w, "failed to create document", http.StatusInternalServerError)
		return
	}
	d.ID = id

	recordAudit(r, h.audit, "create", "document", strconv.FormatInt(id, 10))
	writeData(w, d, http.StatusCreated)
}

func (h *DocumentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	d, err := h.repo.GetDocument(r.Context(), orgID(r), id)
	if err != nil {
		logHandlerError("get document", err)
		writeError(w, "failed to get document", http.StatusInternalServerError)
		return
	}
	if d == nil {
		writeError(w, "document not found", http.StatusNotFound)
		return
	}

	writeData(w, d, http.StatusOK)
}

func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := pageParams(q)

	items, total, err := h.repo.ListDocuments(r.Context(), repository.ListFilter{
		OrgID:    orgID(r),
		Category: q.Get("category"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		logHandlerError("list documents", err)
		writeError(w, "failed to list documents", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []models.Document{}
	}

	writeData(w, listEnvelope{Total: total, Limit: limit, Offset: offset, Items: items}, http.StatusOK)
}

func (h *DocumentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req documentRequest
	if !decode(w, r, &req) {
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Category = strings.TrimSpace(req.Category)
	if req.Title == "" || req.Category == "" {
		writeError(w, "title and category are required", http.StatusBadRequest)
		return
	}

	existing, err := h.repo.GetDocument(r.Context(), orgID(r), id)
	if err != nil {
		logHandlerError("get document", err)
		writeError(w, "failed to update document", http.StatusInternalServerError)
		return
	}
	if existing == nil {
		writeError(w, "document not found", http.StatusNotFound)
		return
	}

	existing.Title = req.Title
	existing.Category = req.Category
	existing.Tags = req.Tags
	existing.UpdatedBy = userID(r)

	if err := h.repo.UpdateDocument(r.Context(), existing); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, "document not found", http.StatusNotFound)
			return
		}
		logHandlerError("update document", err)
		writeError(w, "failed to update document", http.StatusInternalServerError)
		return
	}

	recordAudit(r, h.audit, "update", "document", strconv.FormatInt(id, 10))
	writeData(w, existing, http.StatusOK)
}

// Upload attaches a file to an existing document via multipart form field
// "file". Re-uploading replaces the previous object.
func (h *DocumentsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	d, err := h.repo.GetDocument(r.Context(), orgID(r), id)
	if err != nil {
		logHandlerError("get document", err)
		writeError(w, "failed to upload", http.StatusInternalServerError)
		return
	}
	if d == nil {
		writeError(w, "document not found", http.StatusNotFound)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	key, size, err := h.store.Put(r.Context(), header.Filename, file)
	if err != nil {
		logHandlerError("store object", err)
		writeError(w, "failed to store file", http.StatusInternalServerError)
		return
	}

	oldKey := d.FileKey
	if err := h.repo.AttachFile(r.Context(), orgID(r), id, key, header.Filename, size); err != nil {
		_ = h.store.Delete(r.Context(), key)
		logHandlerError("attach file", err)
		writeError(w, "failed to store file", http.StatusInternalServerError)
		return
	}
	if oldKey != nil {
		_ = h.store.Delete(r.Context(), *oldKey)
	}

	d, err = h.repo.GetDocument(r.Context(), orgID(r), id)
	if err != nil || d == nil {
		logHandlerError("reload document", err)
		writeError(w, "failed to store file", http.StatusInternalServerError)
		return
	}

	recordAudit(r, h.audit, "upload", "document", strconv.FormatInt(id, 10))
	writeData(w, d, http.StatusOK)
}

// Download streams the attached file.
func (h *DocumentsHandler) Download(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	d, err := h.repo.GetDocument(r.Context(), orgID(r), id)
	if err != nil {
		logHandlerError("get document", err)
		writeError(w, "failed to download", http.StatusInternalServerError)
		return
	}
	if d == nil || d.FileKey == nil {
		writeError(w, "no file attached", http.StatusNotFound)
		return
	}

	rc, err := h.store.Get(r.Context(), *d.FileKey)
	if err != nil {
		logHandlerError("open object", err)
		writeError(w, "failed to download", http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	name := "document"
	if d.FileName != nil {
		name = *d.FileName
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(name))
	if d.FileSize > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(d.FileSize, 10))
	}

	if _, err := io.Copy(w, rc); err != nil {
		logHandlerError("stream object", err)
	}
}

// Delete removes the metadata row and its stored object.
func (h *DocumentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	d, err := h.repo.GetDocument(r.Context(), orgID(r), id)
	if err != nil {
		logHandlerError("get document", err)
		writeError(w, "failed to delete document", http.StatusInternalServerError)
		return
	}
	if d == nil {
		writeError(w, "document not found", http.StatusNotFound)
		return
	}

	if err := h.repo.DeleteDocument(r.Context(), orgID(r), id); err != nil {
		logHandlerError("delete document", err)
		writeError(w, "failed to delete document", http.StatusInternalServerError)
		return
	}
	if d.FileKey != nil {
		_ = h.store.Delete(r.Context(), *d.FileKey)
	}

	recordAudit(r, h.audit, "delete", "document", strconv.FormatInt(id, 10))
	writeData(w, map[string]string{"message": "deleted"}, http.StatusOK)
}
