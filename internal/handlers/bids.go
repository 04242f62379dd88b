package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"procurement/db"
	"procurement/internal/apperr"
	"procurement/internal/filestore"
	"procurement/internal/middleware"
)

// Multipart file fields accepted on bid submission; the field name is the
// document type.
var bidAttachmentFields = []string{"technical_proposal", "financial_proposal"}

type submitBidRequest struct {
	ProposedAmount   float64 `json:"proposed_amount" validate:"required,gt=0"`
	ProposedTimeline string  `json:"proposed_timeline" validate:"max=100"`
	Notes            string  `json:"notes"`
}

// SubmitBidHandler handles POST /api/projects/{projectId}/bids (candidate).
// Accepts multipart form data (amount/timeline/notes plus file parts) or a
// plain JSON body. The storage layer runs the whole workflow in one
// transaction; a second bid by the same candidate conflicts.
func (h *Handler) SubmitBidHandler(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())

	candidate, err := h.Store.GetCandidateByUserID(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	projectID, err := urlParamID(r, "projectId")
	if err != nil {
		writeError(w, err)
		return
	}

	sub := &db.BidSubmission{ProjectID: projectID, CandidateID: candidate.ID}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := h.parseBidForm(w, r, sub); err != nil {
			writeError(w, err)
			return
		}
	} else {
		var req submitBidRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
		if err := h.checkRequest(&req); err != nil {
			writeError(w, err)
			return
		}
		sub.ProposedAmount = req.ProposedAmount
		sub.ProposedTimeline = req.ProposedTimeline
		sub.Notes = req.Notes
	}

	bidID, err := h.Store.SubmitBid(r.Context(), sub, h.Files)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Bid submitted successfully",
		"bid_id":  bidID,
	})
}

func (h *Handler) parseBidForm(w http.ResponseWriter, r *http.Request, sub *db.BidSubmission) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return apperr.Wrap(apperr.Validation, "Invalid multipart form", err)
	}

	amount, err := strconv.ParseFloat(r.FormValue("proposed_amount"), 64)
	if err != nil || amount <= 0 {
		return apperr.E(apperr.Validation, "proposed_amount must be a positive number")
	}
	sub.ProposedAmount = amount
	sub.ProposedTimeline = r.FormValue("proposed_timeline")
	sub.Notes = r.FormValue("notes")

	for _, field := range bidAttachmentFields {
		if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
			continue
		}
		attachment, err := readAttachment(r.MultipartForm.File[field][0], field)
		if err != nil {
			return err
		}
		sub.Attachments = append(sub.Attachments, *attachment)
	}
	return nil
}

func readAttachment(header *multipart.FileHeader, documentType string) (*db.Attachment, error) {
	if !filestore.AllowedExtension(header.Filename) {
		return nil, apperr.E(apperr.Validation, "File type not allowed")
	}
	file, err := header.Open()
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, "Failed to read uploaded file", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, "Failed to read uploaded file", err)
	}
	return &db.Attachment{
		DocumentType: documentType,
		FileName:     header.Filename,
		Data:         data,
	}, nil
}

// GetMyBidsHandler handles GET /api/bids (candidate). A user without a
// profile simply has no bids.
func (h *Handler) GetMyBidsHandler(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())

	candidate, err := h.Store.GetCandidateByUserID(r.Context(), id.UserID)
	if err != nil {
		if apperr.KindOf(err) == apperr.NotFound {
			writeJSON(w, http.StatusOK, []db.BidSummary{})
			return
		}
		writeError(w, err)
		return
	}

	bids, err := h.Store.GetBidsByCandidate(r.Context(), candidate.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bids)
}

// GetAllBidsHandler handles GET /api/admin/bids?project_id= (admin).
func (h *Handler) GetAllBidsHandler(w http.ResponseWriter, r *http.Request) {
	projectID := 0
	if raw := r.URL.Query().Get("project_id"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, apperr.E(apperr.Validation, "Invalid project_id"))
			return
		}
		projectID = n
	}

	bids, err := h.Store.GetAllBids(r.Context(), projectID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bids)
}

// GetBidDetailHandler handles GET /api/admin/bids/{bidId} (admin).
func (h *Handler) GetBidDetailHandler(w http.ResponseWriter, r *http.Request) {
	bidID, err := urlParamID(r, "bidId")
	if err != nil {
		writeError(w, err)
		return
	}

	detail, err := h.Store.GetBidDetail(r.Context(), bidID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

type updateBidStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=under_review accepted rejected"`
	Notes  string `json:"notes"`
}

// UpdateBidStatusHandler handles PUT /api/admin/bids/{bidId}/status (admin).
// Accepted and rejected bids are final; reviewed_at is stamped on the first
// transition away from submitted.
func (h *Handler) UpdateBidStatusHandler(w http.ResponseWriter, r *http.Request) {
	bidID, err := urlParamID(r, "bidId")
	if err != nil {
		writeError(w, err)
		return
	}

	var req updateBidStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.checkRequest(&req); err != nil {
		writeError(w, err)
		return
	}

	bid, err := h.Store.GetBid(r.Context(), bidID)
	if err != nil {
		writeError(w, err)
		return
	}
	if bid.Status == db.BidStatusAccepted || bid.Status == db.BidStatusRejected {
		writeError(w, apperr.E(apperr.InvalidState, "Bid review is already finalized"))
		return
	}

	if err := h.Store.UpdateBidStatus(r.Context(), bidID, req.Status, req.Notes); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Bid status updated successfully")
}
