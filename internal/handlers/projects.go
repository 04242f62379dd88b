package handlers

import (
	"net/http"
	"time"

	"procurement/db"
	"procurement/internal/apperr"
)

// parseDeadline accepts RFC3339 and the common ISO-8601 variants the
// frontend sends. Past deadlines are accepted.
func parseDeadline(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperr.E(apperr.Validation, "deadline must be an ISO-8601 timestamp")
}

// GetProjectsHandler returns the catalog, optionally filtered by status.
// Public, newest first.
func (h *Handler) GetProjectsHandler(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	projects, err := h.Store.GetProjects(r.Context(), status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// GetProjectHandler returns one project. Public.
func (h *Handler) GetProjectHandler(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r, "projectId")
	if err != nil {
		writeError(w, err)
		return
	}

	project, err := h.Store.GetProject(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

type createProjectRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"required"`
	ProjectType string   `json:"project_type" validate:"required,max=50"`
	Budget      *float64 `json:"budget" validate:"omitempty,gt=0"`
	Deadline    string   `json:"deadline" validate:"required"`
}

// CreateProjectHandler handles POST /api/projects (admin). Status is
// forced to "open" on creation.
func (h *Handler) CreateProjectHandler(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.checkRequest(&req); err != nil {
		writeError(w, err)
		return
	}

	deadline, err := parseDeadline(req.Deadline)
	if err != nil {
		writeError(w, err)
		return
	}

	project := &db.Project{
		Title:       req.Title,
		Description: req.Description,
		ProjectType: req.ProjectType,
		Budget:      req.Budget,
		Deadline:    deadline,
		Status:      db.ProjectStatusOpen,
	}

	if err := h.Store.CreateProject(r.Context(), project); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":    "Project created successfully",
		"project_id": project.ID,
	})
}

type updateProjectRequest struct {
	Title       *string  `json:"title" validate:"omitempty,max=200"`
	Description *string  `json:"description"`
	ProjectType *string  `json:"project_type" validate:"omitempty,max=50"`
	Budget      *float64 `json:"budget" validate:"omitempty,gt=0"`
	Deadline    *string  `json:"deadline"`
	Status      *string  `json:"status" validate:"omitempty,oneof=open under_review awarded closed"`
}

// UpdateProjectHandler handles PUT /api/admin/projects/{projectId} (admin).
// Only supplied fields are mutated.
func (h *Handler) UpdateProjectHandler(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r, "projectId")
	if err != nil {
		writeError(w, err)
		return
	}

	var req updateProjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.checkRequest(&req); err != nil {
		writeError(w, err)
		return
	}

	project, err := h.Store.GetProject(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	if req.Title != nil {
		project.Title = *req.Title
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.ProjectType != nil {
		project.ProjectType = *req.ProjectType
	}
	if req.Budget != nil {
		project.Budget = req.Budget
	}
	if req.Deadline != nil {
		deadline, err := parseDeadline(*req.Deadline)
		if err != nil {
			writeError(w, err)
			return
		}
		project.Deadline = deadline
	}
	if req.Status != nil {
		project.Status = *req.Status
	}

	if err := h.Store.UpdateProject(r.Context(), project); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Project updated successfully")
}

// DeleteProjectHandler handles DELETE /api/projects/{projectId} (admin).
// Bids and their documents are removed with the project.
func (h *Handler) DeleteProjectHandler(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r, "projectId")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.Store.DeleteProject(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Project deleted successfully")
}
