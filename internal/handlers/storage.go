package handlers

import (
	"context"

	"procurement/db"
)

type StorageInterface interface {
	CreateUserWithCandidate(ctx context.Context, u *db.User, c *db.Candidate) error
	GetUserByEmail(ctx context.Context, email string) (*db.User, error)
	GetCandidateByUserID(ctx context.Context, userID int) (*db.Candidate, error)

	CreateProject(ctx context.Context, p *db.Project) error
	GetProject(ctx context.Context, id int) (*db.Project, error)
	UpdateProject(ctx context.Context, p *db.Project) error
	DeleteProject(ctx context.Context, id int) error
	GetProjects(ctx context.Context, status string) ([]db.Project, error)

	SubmitBid(ctx context.Context, sub *db.BidSubmission, files db.FileSaver) (int, error)
	GetBid(ctx context.Context, id int) (*db.Bid, error)
	GetBidsByCandidate(ctx context.Context, candidateID int) ([]db.BidSummary, error)
	GetAllBids(ctx context.Context, projectID int) ([]db.BidSummary, error)
	GetBidDetail(ctx context.Context, bidID int) (*db.BidDetail, error)
	UpdateBidStatus(ctx context.Context, bidID int, status, notes string) error

	CreateDocument(ctx context.Context, d *db.Document) error
	GetDocument(ctx context.Context, id int) (*db.Document, error)
	GetDocumentsByBid(ctx context.Context, bidID int) ([]db.Document, error)
	SetDocumentVerification(ctx context.Context, id int, verified bool, notes string) error

	GetDashboardStats(ctx context.Context) (*db.DashboardStats, error)
}
