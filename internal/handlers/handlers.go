package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"procurement/internal/apperr"
	"procurement/internal/auth"
	"procurement/pkg/logger"
)

// Request bodies are capped at 1 MiB, uploads at 16 MiB.
const (
	maxBodyBytes   = 1 << 20
	maxUploadBytes = 16 << 20
)

// FileStore is the attachment storage the handlers need: saving for
// uploads, reading for downloads. Satisfied by *filestore.Store.
type FileStore interface {
	StoredName(bidID int, original string) string
	Save(name string, data []byte) (string, error)
	Read(path string) ([]byte, error)
	Remove(path string) error
}

// Handler wires the storage layer, the attachment store and the token
// manager into the HTTP surface.
type Handler struct {
	Store    StorageInterface
	Files    FileStore
	Tokens   *auth.TokenManager
	validate *validator.Validate
}

func NewHandler(store StorageInterface, files FileStore, tokens *auth.TokenManager) *Handler {
	return &Handler{
		Store:    store,
		Files:    files,
		Tokens:   tokens,
		validate: validator.New(),
	}
}

// HealthHandler responds to GET /api/health.
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// DashboardHandler responds to GET /api/admin/dashboard with aggregate counts.
func (h *Handler) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Store.GetDashboardStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// writeError maps an error through the taxonomy to its status code and a
// client-safe message. Internal failures are logged with their cause and
// surfaced generically.
func writeError(w http.ResponseWriter, err error) {
	status := apperr.Status(err)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Msg("request failed")
	}
	writeMessage(w, status, apperr.Message(err))
}

// decodeJSON reads a size-capped JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return apperr.Wrap(apperr.Validation, "Failed to read request body", err)
	}
	defer r.Body.Close()

	if err := json.Unmarshal(body, dst); err != nil {
		return apperr.Wrap(apperr.Validation, "Invalid JSON format", err)
	}
	return nil
}

// checkRequest runs the validate tags on a request struct and converts the
// first failure into a Validation error naming the field.
func (h *Handler) checkRequest(req interface{}) error {
	err := h.validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return apperr.E(apperr.Validation, "Invalid field '"+fe.Field()+"' (rule: "+fe.Tag()+")")
	}
	return apperr.Wrap(apperr.Validation, "Invalid request", err)
}

func urlParamID(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		return 0, apperr.E(apperr.Validation, "Invalid "+name)
	}
	return id, nil
}
