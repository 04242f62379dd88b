package handlers_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"procurement/db"
	"procurement/internal/handlers/testutils"
)

func documentForm(t *testing.T, documentType, fileName string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if documentType != "" {
		require.NoError(t, form.WriteField("document_type", documentType))
	}
	if fileName != "" {
		part, err := form.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, form.Close())
	return &buf, form.FormDataContentType()
}

func TestUploadDocumentHandler(t *testing.T) {
	mockStore := &MockStorage{
		candidate: testCandidate(),
		bid:       &db.Bid{ID: 3, ProjectID: 1, CandidateID: 7, Status: db.BidStatusSubmitted},
	}
	handler, files := newTestHandler(mockStore)

	body, contentType := documentForm(t, "insurance_certificate", "cert.pdf", []byte("%PDF cert"))
	req := asCandidate(httptest.NewRequest(http.MethodPost, "/api/bids/3/documents", body))
	req.Header.Set("Content-Type", contentType)
	req = testutils.WithChiURLParams(req, map[string]string{"bidId": "3"})
	w := httptest.NewRecorder()

	handler.UploadDocumentHandler(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Contains(t, w.Body.String(), "Document uploaded successfully")
	require.Contains(t, w.Body.String(), `"document_id":5`)

	data, err := files.Read("/uploads/bid_3_cert.pdf")
	require.NoError(t, err)
	require.Equal(t, []byte("%PDF cert"), data)
}

func TestUploadDocumentHandlerNotOwner(t *testing.T) {
	mockStore := &MockStorage{
		candidate: testCandidate(),
		bid:       &db.Bid{ID: 3, ProjectID: 1, CandidateID: 99, Status: db.BidStatusSubmitted},
	}
	handler, files := newTestHandler(mockStore)

	body, contentType := documentForm(t, "insurance_certificate", "cert.pdf", []byte("x"))
	req := asCandidate(httptest.NewRequest(http.MethodPost, "/api/bids/3/documents", body))
	req.Header.Set("Content-Type", contentType)
	req = testutils.WithChiURLParams(req, map[string]string{"bidId": "3"})
	w := httptest.NewRecorder()

	handler.UploadDocumentHandler(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "Unauthorized")
	require.Empty(t, files.files)
}

func TestUploadDocumentHandlerMissingType(t *testing.T) {
	mockStore := &MockStorage{
		candidate: testCandidate(),
		bid:       &db.Bid{ID: 3, CandidateID: 7, Status: db.BidStatusSubmitted},
	}
	handler, _ := newTestHandler(mockStore)

	body, contentType := documentForm(t, "", "cert.pdf", []byte("x"))
	req := asCandidate(httptest.NewRequest(http.MethodPost, "/api/bids/3/documents", body))
	req.Header.Set("Content-Type", contentType)
	req = testutils.WithChiURLParams(req, map[string]string{"bidId": "3"})
	w := httptest.NewRecorder()

	handler.UploadDocumentHandler(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "document_type is required")
}

func TestUploadDocumentHandlerBadExtension(t *testing.T) {
	mockStore := &MockStorage{
		candidate: testCandidate(),
		bid:       &db.Bid{ID: 3, CandidateID: 7, Status: db.BidStatusSubmitted},
	}
	handler, files := newTestHandler(mockStore)

	body, contentType := documentForm(t, "other", "script.sh", []byte("#!/bin/sh"))
	req := asCandidate(httptest.NewRequest(http.MethodPost, "/api/bids/3/documents", body))
	req.Header.Set("Content-Type", contentType)
	req = testutils.WithChiURLParams(req, map[string]string{"bidId": "3"})
	w := httptest.NewRecorder()

	handler.UploadDocumentHandler(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "File type not allowed")
	require.Empty(t, files.files)
}

func TestVerifyDocumentHandler(t *testing.T) {
	mockStore := &MockStorage{
		document: &db.Document{ID: 5, BidID: 3, DocumentType: "insurance_certificate", FileName: "cert.pdf"},
	}
	handler, _ := newTestHandler(mockStore)

	reqBody := `{"verified": true, "notes": "checked against registry"}`
	req := asAdmin(httptest.NewRequest(http.MethodPut, "/api/admin/documents/5/verify", strings.NewReader(reqBody)))
	req = testutils.WithChiURLParams(req, map[string]string{"documentId": "5"})
	w := httptest.NewRecorder()

	handler.VerifyDocumentHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mockStore.lastVerified)
	require.True(t, *mockStore.lastVerified)
	require.Equal(t, "checked against registry", mockStore.lastVerifyNotes)
}

func TestVerifyDocumentHandlerMissingFlag(t *testing.T) {
	mockStore := &MockStorage{
		document: &db.Document{ID: 5},
	}
	handler, _ := newTestHandler(mockStore)

	reqBody := `{"notes": "no decision"}`
	req := asAdmin(httptest.NewRequest(http.MethodPut, "/api/admin/documents/5/verify", strings.NewReader(reqBody)))
	req = testutils.WithChiURLParams(req, map[string]string{"documentId": "5"})
	w := httptest.NewRecorder()

	handler.VerifyDocumentHandler(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Nil(t, mockStore.lastVerified)
}

func TestDownloadDocumentHandler(t *testing.T) {
	mockStore := &MockStorage{
		document: &db.Document{ID: 5, BidID: 3, FileName: "cert.pdf", FilePath: "/uploads/bid_3_cert.pdf"},
	}
	handler, files := newTestHandler(mockStore)
	_, err := files.Save("bid_3_cert.pdf", []byte("%PDF cert"))
	require.NoError(t, err)

	req := asCandidate(httptest.NewRequest(http.MethodGet, "/api/documents/5/download", nil))
	req = testutils.WithChiURLParams(req, map[string]string{"documentId": "5"})
	w := httptest.NewRecorder()

	handler.DownloadDocumentHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), `filename="cert.pdf"`)
	require.Equal(t, []byte("%PDF cert"), w.Body.Bytes())
}

func TestDownloadDocumentHandlerFileGone(t *testing.T) {
	mockStore := &MockStorage{
		document: &db.Document{ID: 5, FileName: "cert.pdf", FilePath: "/uploads/missing.pdf"},
	}
	handler, _ := newTestHandler(mockStore)

	req := asCandidate(httptest.NewRequest(http.MethodGet, "/api/documents/5/download", nil))
	req = testutils.WithChiURLParams(req, map[string]string{"documentId": "5"})
	w := httptest.NewRecorder()

	handler.DownloadDocumentHandler(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "Document not found")
}
