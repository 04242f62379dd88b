package handlers

import (
	"net/http"

	"procurement/db"
	"procurement/internal/apperr"
	"procurement/internal/middleware"
)

// UploadDocumentHandler handles POST /api/bids/{bidId}/documents. Only the
// candidate who owns the bid may attach documents to it.
func (h *Handler) UploadDocumentHandler(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())

	bidID, err := urlParamID(r, "bidId")
	if err != nil {
		writeError(w, err)
		return
	}

	candidate, err := h.Store.GetCandidateByUserID(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	bid, err := h.Store.GetBid(r.Context(), bidID)
	if err != nil {
		writeError(w, err)
		return
	}
	if bid.CandidateID != candidate.ID {
		writeError(w, apperr.E(apperr.Authorization, "Unauthorized"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, apperr.Wrap(apperr.Validation, "Invalid multipart form", err))
		return
	}

	documentType := r.FormValue("document_type")
	if documentType == "" {
		writeError(w, apperr.E(apperr.Validation, "document_type is required"))
		return
	}

	if r.MultipartForm == nil || len(r.MultipartForm.File["file"]) == 0 {
		writeError(w, apperr.E(apperr.Validation, "file is required"))
		return
	}

	attachment, err := readAttachment(r.MultipartForm.File["file"][0], documentType)
	if err != nil {
		writeError(w, err)
		return
	}

	path, err := h.Files.Save(h.Files.StoredName(bidID, attachment.FileName), attachment.Data)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "failed to store document", err))
		return
	}

	doc := &db.Document{
		BidID:        bidID,
		DocumentType: documentType,
		FileName:     attachment.FileName,
		FilePath:     path,
		FileSize:     int64(len(attachment.Data)),
	}
	if err := h.Store.CreateDocument(r.Context(), doc); err != nil {
		_ = h.Files.Remove(path)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":     "Document uploaded successfully",
		"document_id": doc.ID,
	})
}

type verifyDocumentRequest struct {
	Verified *bool  `json:"verified" validate:"required"`
	Notes    string `json:"notes"`
}

// VerifyDocumentHandler handles PUT /api/admin/documents/{documentId}/verify
// (admin). The toggle is idempotent.
func (h *Handler) VerifyDocumentHandler(w http.ResponseWriter, r *http.Request) {
	documentID, err := urlParamID(r, "documentId")
	if err != nil {
		writeError(w, err)
		return
	}

	var req verifyDocumentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.checkRequest(&req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.Store.SetDocumentVerification(r.Context(), documentID, *req.Verified, req.Notes); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Document verification updated")
}

// DownloadDocumentHandler handles GET /api/documents/{documentId}/download
// (any authenticated user). A missing row and a missing file on disk are
// surfaced identically.
func (h *Handler) DownloadDocumentHandler(w http.ResponseWriter, r *http.Request) {
	documentID, err := urlParamID(r, "documentId")
	if err != nil {
		writeError(w, err)
		return
	}

	doc, err := h.Store.GetDocument(r.Context(), documentID)
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := h.Files.Read(doc.FilePath)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.FileName+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
