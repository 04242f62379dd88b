package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"procurement/internal/apperr"
)

type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

// Role and status enums, matching the CHECK constraints in the schema.
const (
	RoleAdmin     = "admin"
	RoleCandidate = "candidate"

	ProjectStatusOpen        = "open"
	ProjectStatusUnderReview = "under_review"
	ProjectStatusAwarded     = "awarded"
	ProjectStatusClosed      = "closed"

	BidStatusSubmitted   = "submitted"
	BidStatusUnderReview = "under_review"
	BidStatusAccepted    = "accepted"
	BidStatusRejected    = "rejected"
)

// User (identity record)
type User struct {
	ID           int       `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Candidate (company profile, 1:1 with a candidate user)
type Candidate struct {
	ID                 int       `db:"id" json:"id"`
	UserID             int       `db:"user_id" json:"user_id"`
	CompanyName        string    `db:"company_name" json:"company_name"`
	Phone              string    `db:"phone" json:"phone"`
	Address            string    `db:"address" json:"address"`
	RegistrationNumber string    `db:"registration_number" json:"registration_number"`
	Status             string    `db:"status" json:"status"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// Project (tenderable work item)
type Project struct {
	ID          int       `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	ProjectType string    `db:"project_type" json:"project_type"`
	Budget      *float64  `db:"budget" json:"budget"`
	Deadline    time.Time `db:"deadline" json:"deadline"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Bid (candidate proposal for a project)
type Bid struct {
	ID               int        `db:"id" json:"id"`
	ProjectID        int        `db:"project_id" json:"project_id"`
	CandidateID      int        `db:"candidate_id" json:"candidate_id"`
	ProposedAmount   float64    `db:"proposed_amount" json:"proposed_amount"`
	ProposedTimeline string     `db:"proposed_timeline" json:"proposed_timeline"`
	Status           string     `db:"status" json:"status"`
	Notes            string     `db:"notes" json:"notes"`
	SubmittedAt      time.Time  `db:"submitted_at" json:"submitted_at"`
	ReviewedAt       *time.Time `db:"reviewed_at" json:"reviewed_at"`
}

// Document (file attached to a bid)
type Document struct {
	ID                int       `db:"id" json:"id"`
	BidID             int       `db:"bid_id" json:"bid_id"`
	DocumentType      string    `db:"document_type" json:"document_type"`
	FileName          string    `db:"file_name" json:"file_name"`
	FilePath          string    `db:"file_path" json:"-"`
	FileSize          int64     `db:"file_size" json:"file_size"`
	UploadedAt        time.Time `db:"uploaded_at" json:"uploaded_at"`
	Verified          bool      `db:"verified" json:"verified"`
	VerificationNotes string    `db:"verification_notes" json:"verification_notes"`
}

// BidSummary is a bid row enriched with project and company context for
// the listing endpoints.
type BidSummary struct {
	Bid
	ProjectTitle  string `db:"project_title" json:"project_title"`
	CompanyName   string `db:"company_name" json:"company_name"`
	DocumentCount int    `db:"document_count" json:"document_count"`
}

// BidDetail embeds the full project, candidate and document records.
type BidDetail struct {
	Bid
	Project   Project    `json:"project"`
	Candidate Candidate  `json:"candidate"`
	Documents []Document `json:"documents"`
}

// DashboardStats aggregates counts for the admin dashboard.
type DashboardStats struct {
	TotalProjects int `db:"total_projects" json:"total_projects"`
	OpenProjects  int `db:"open_projects" json:"open_projects"`
	TotalBids     int `db:"total_bids" json:"total_bids"`
	PendingBids   int `db:"pending_bids" json:"pending_bids"`
	AcceptedBids  int `db:"accepted_bids" json:"accepted_bids"`
	RejectedBids  int `db:"rejected_bids" json:"rejected_bids"`
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func constraintOf(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}

// Users

// CreateUserWithCandidate inserts the user and, for the candidate role, its
// company profile in one transaction. A partially created pair is never
// observable.
func (s *Storage) CreateUserWithCandidate(ctx context.Context, u *User, c *Candidate) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
        INSERT INTO users (username, email, password_hash, role, is_active)
        VALUES ($1, $2, $3, $4, TRUE)
        RETURNING id, is_active, created_at`
	err = tx.QueryRowContext(ctx, query, u.Username, u.Email, u.PasswordHash, u.Role).
		Scan(&u.ID, &u.IsActive, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			if constraintOf(err) == "users_username_key" {
				return apperr.E(apperr.Conflict, "Username already taken")
			}
			return apperr.E(apperr.Conflict, "Email already registered")
		}
		return err
	}

	if u.Role == RoleCandidate {
		c.UserID = u.ID
		query = `
            INSERT INTO candidates (user_id, company_name, phone, address, registration_number, status)
            VALUES ($1, $2, $3, $4, $5, 'active')
            RETURNING id, status, created_at`
		err = tx.QueryRowContext(ctx, query,
			c.UserID, c.CompanyName, c.Phone, c.Address, c.RegistrationNumber).
			Scan(&c.ID, &c.Status, &c.CreatedAt)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	u := &User{}
	query := `SELECT * FROM users WHERE email=$1`
	err := s.db.GetContext(ctx, u, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.E(apperr.Authentication, "Invalid credentials")
	}
	return u, err
}

func (s *Storage) GetUserByID(ctx context.Context, id int) (*User, error) {
	u := &User{}
	query := `SELECT * FROM users WHERE id=$1`
	err := s.db.GetContext(ctx, u, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.E(apperr.NotFound, "User not found")
	}
	return u, err
}

func (s *Storage) CountAdmins(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(1) FROM users WHERE role=$1`, RoleAdmin)
	return count, err
}

// Candidates

func (s *Storage) GetCandidateByUserID(ctx context.Context, userID int) (*Candidate, error) {
	c := &Candidate{}
	query := `SELECT * FROM candidates WHERE user_id=$1`
	err := s.db.GetContext(ctx, c, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.E(apperr.NotFound, "Candidate profile not found")
	}
	return c, err
}

func (s *Storage) GetCandidate(ctx context.Context, id int) (*Candidate, error) {
	c := &Candidate{}
	query := `SELECT * FROM candidates WHERE id=$1`
	err := s.db.GetContext(ctx, c, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.E(apperr.NotFound, "Candidate profile not found")
	}
	return c, err
}

// Projects

func (s *Storage) CreateProject(ctx context.Context, p *Project) error {
	query := `
        INSERT INTO projects (title, description, project_type, budget, deadline, status)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`
	return s.db.QueryRowContext(ctx, query,
		p.Title, p.Description, p.ProjectType, p.Budget, p.Deadline, p.Status).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (s *Storage) GetProject(ctx context.Context, id int) (*Project, error) {
	p := &Project{}
	query := `SELECT * FROM projects WHERE id=$1`
	err := s.db.GetContext(ctx, p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.E(apperr.NotFound, "Project not found")
	}
	return p, err
}

func (s *Storage) UpdateProject(ctx context.Context, p *Project) error {
	query := `
        UPDATE projects
        SET title=$1, description=$2, project_type=$3, budget=$4, deadline=$5, status=$6, updated_at=NOW()
        WHERE id=$7
        RETURNING updated_at`
	err := s.db.QueryRowContext(ctx, query,
		p.Title, p.Description, p.ProjectType, p.Budget, p.Deadline, p.Status, p.ID).
		Scan(&p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.E(apperr.NotFound, "Project not found")
	}
	return err
}

// DeleteProject removes the project; its bids and their documents go with
// it via ON DELETE CASCADE.
func (s *Storage) DeleteProject(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.E(apperr.NotFound, "Project not found")
	}
	return nil
}

func (s *Storage) GetProjects(ctx context.Context, status string) ([]Project, error) {
	query := `SELECT * FROM projects`
	var args []interface{}
	if status != "" {
		query += ` WHERE status=$1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	projects := []Project{}
	err := s.db.SelectContext(ctx, &projects, query, args...)
	return projects, err
}

// Bids

// Attachment is an uploaded file submitted alongside a bid.
type Attachment struct {
	DocumentType string
	FileName     string
	Data         []byte
}

// BidSubmission carries everything needed to record a new bid.
type BidSubmission struct {
	ProjectID        int
	CandidateID      int
	ProposedAmount   float64
	ProposedTimeline string
	Notes            string
	Attachments      []Attachment
}

// FileSaver persists attachment bytes. Satisfied by *filestore.Store.
type FileSaver interface {
	StoredName(bidID int, original string) string
	Save(name string, data []byte) (string, error)
	Remove(path string) error
}

// SubmitBid runs the whole bid-submission workflow in one transaction:
// the project must exist and be open, the candidate must not have bid on
// it yet, and every attachment is persisted before the commit. Any failure
// rolls back the bid row, the document rows and the written files. The
// UNIQUE (project_id, candidate_id) constraint is the authoritative guard
// against concurrent double submission; the in-transaction check only
// produces the friendlier error on the common path.
func (s *Storage) SubmitBid(ctx context.Context, sub *BidSubmission, files FileSaver) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var status string
	err = tx.GetContext(ctx, &status, `SELECT status FROM projects WHERE id=$1`, sub.ProjectID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperr.E(apperr.NotFound, "Project not found")
	}
	if err != nil {
		return 0, err
	}
	if status != ProjectStatusOpen {
		return 0, apperr.E(apperr.InvalidState, "Project is not open for bidding")
	}

	var count int
	err = tx.GetContext(ctx, &count,
		`SELECT COUNT(1) FROM bids WHERE project_id=$1 AND candidate_id=$2`,
		sub.ProjectID, sub.CandidateID)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, apperr.E(apperr.Conflict, "You have already submitted a bid for this project")
	}

	var bidID int
	err = tx.QueryRowContext(ctx, `
        INSERT INTO bids (project_id, candidate_id, proposed_amount, proposed_timeline, status, notes)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id`,
		sub.ProjectID, sub.CandidateID, sub.ProposedAmount, sub.ProposedTimeline,
		BidStatusSubmitted, sub.Notes).
		Scan(&bidID)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, apperr.E(apperr.Conflict, "You have already submitted a bid for this project")
		}
		return 0, err
	}

	var saved []string
	cleanup := func() {
		for _, path := range saved {
			_ = files.Remove(path)
		}
	}

	for _, a := range sub.Attachments {
		path, err := files.Save(files.StoredName(bidID, a.FileName), a.Data)
		if err != nil {
			cleanup()
			return 0, apperr.Wrap(apperr.Internal, "failed to store attachment", err)
		}
		saved = append(saved, path)

		_, err = tx.ExecContext(ctx, `
            INSERT INTO documents (bid_id, document_type, file_name, file_path, file_size)
            VALUES ($1, $2, $3, $4, $5)`,
			bidID, a.DocumentType, a.FileName, path, int64(len(a.Data)))
		if err != nil {
			cleanup()
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		cleanup()
		if isUniqueViolation(err) {
			return 0, apperr.E(apperr.Conflict, "You have already submitted a bid for this project")
		}
		return 0, err
	}
	return bidID, nil
}

func (s *Storage) GetBid(ctx context.Context, id int) (*Bid, error) {
	b := &Bid{}
	query := `SELECT * FROM bids WHERE id=$1`
	err := s.db.GetContext(ctx, b, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.E(apperr.NotFound, "Bid not found")
	}
	return b, err
}

func (s *Storage) GetBidsByCandidate(ctx context.Context, candidateID int) ([]BidSummary, error) {
	query := `
        SELECT b.*, p.title AS project_title, c.company_name,
               (SELECT COUNT(1) FROM documents d WHERE d.bid_id = b.id) AS document_count
        FROM bids b
        JOIN projects p ON b.project_id = p.id
        JOIN candidates c ON b.candidate_id = c.id
        WHERE b.candidate_id = $1
        ORDER BY b.submitted_at DESC`
	bids := []BidSummary{}
	err := s.db.SelectContext(ctx, &bids, query, candidateID)
	return bids, err
}

func (s *Storage) GetAllBids(ctx context.Context, projectID int) ([]BidSummary, error) {
	query := `
        SELECT b.*, p.title AS project_title, c.company_name,
               (SELECT COUNT(1) FROM documents d WHERE d.bid_id = b.id) AS document_count
        FROM bids b
        JOIN projects p ON b.project_id = p.id
        JOIN candidates c ON b.candidate_id = c.id`
	var args []interface{}
	if projectID > 0 {
		query += ` WHERE b.project_id = $1`
		args = append(args, projectID)
	}
	query += ` ORDER BY b.submitted_at DESC`

	bids := []BidSummary{}
	err := s.db.SelectContext(ctx, &bids, query, args...)
	return bids, err
}

func (s *Storage) GetBidDetail(ctx context.Context, bidID int) (*BidDetail, error) {
	bid, err := s.GetBid(ctx, bidID)
	if err != nil {
		return nil, err
	}
	project, err := s.GetProject(ctx, bid.ProjectID)
	if err != nil {
		return nil, err
	}
	candidate, err := s.GetCandidate(ctx, bid.CandidateID)
	if err != nil {
		return nil, err
	}
	documents, err := s.GetDocumentsByBid(ctx, bidID)
	if err != nil {
		return nil, err
	}
	return &BidDetail{
		Bid:       *bid,
		Project:   *project,
		Candidate: *candidate,
		Documents: documents,
	}, nil
}

// UpdateBidStatus sets the new status and notes; reviewed_at is stamped on
// the first transition away from submitted and kept thereafter.
func (s *Storage) UpdateBidStatus(ctx context.Context, bidID int, status, notes string) error {
	query := `
        UPDATE bids
        SET status=$1,
            notes=CASE WHEN $2 <> '' THEN $2 ELSE notes END,
            reviewed_at=COALESCE(reviewed_at, NOW())
        WHERE id=$3`
	res, err := s.db.ExecContext(ctx, query, status, notes, bidID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.E(apperr.NotFound, "Bid not found")
	}
	return nil
}

// Documents

func (s *Storage) CreateDocument(ctx context.Context, d *Document) error {
	query := `
        INSERT INTO documents (bid_id, document_type, file_name, file_path, file_size)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, uploaded_at, verified`
	return s.db.QueryRowContext(ctx, query,
		d.BidID, d.DocumentType, d.FileName, d.FilePath, d.FileSize).
		Scan(&d.ID, &d.UploadedAt, &d.Verified)
}

func (s *Storage) GetDocument(ctx context.Context, id int) (*Document, error) {
	d := &Document{}
	query := `SELECT * FROM documents WHERE id=$1`
	err := s.db.GetContext(ctx, d, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.E(apperr.NotFound, "Document not found")
	}
	return d, err
}

func (s *Storage) GetDocumentsByBid(ctx context.Context, bidID int) ([]Document, error) {
	documents := []Document{}
	query := `SELECT * FROM documents WHERE bid_id=$1 ORDER BY uploaded_at ASC`
	err := s.db.SelectContext(ctx, &documents, query, bidID)
	return documents, err
}

func (s *Storage) SetDocumentVerification(ctx context.Context, id int, verified bool, notes string) error {
	query := `
        UPDATE documents
        SET verified=$1,
            verification_notes=CASE WHEN $2 <> '' THEN $2 ELSE verification_notes END
        WHERE id=$3`
	res, err := s.db.ExecContext(ctx, query, verified, notes, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.E(apperr.NotFound, "Document not found")
	}
	return nil
}

// Dashboard

func (s *Storage) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}
	query := `
        SELECT
            (SELECT COUNT(1) FROM projects) AS total_projects,
            (SELECT COUNT(1) FROM projects WHERE status = 'open') AS open_projects,
            (SELECT COUNT(1) FROM bids) AS total_bids,
            (SELECT COUNT(1) FROM bids WHERE status = 'submitted') AS pending_bids,
            (SELECT COUNT(1) FROM bids WHERE status = 'accepted') AS accepted_bids,
            (SELECT COUNT(1) FROM bids WHERE status = 'rejected') AS rejected_bids`
	err := s.db.GetContext(ctx, stats, query)
	return stats, err
}
