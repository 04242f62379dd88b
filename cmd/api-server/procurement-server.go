package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"procurement/db"
	"procurement/db/migrations"
	"procurement/internal/auth"
	"procurement/internal/config"
	"procurement/internal/filestore"
	"procurement/internal/handlers"
	mw "procurement/internal/middleware"
	"procurement/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	logger.Init(cfg.LogLevel)

	dbConn, err := sqlx.Connect("postgres", cfg.PostgresConn)
	if err != nil {
		logger.Fatalf("Cannot connect to DB: %v", err)
	}
	defer dbConn.Close()

	if err := migrations.Run(dbConn.DB); err != nil {
		logger.Fatalf("migrations: %v", err)
	}

	files, err := filestore.New(cfg.UploadDir)
	if err != nil {
		logger.Fatalf("upload dir: %v", err)
	}

	store := db.NewStorage(dbConn)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpire)

	if err := ensureAdmin(context.Background(), store, cfg); err != nil {
		logger.Errorf("admin bootstrap: %v", err)
	}

	h := handlers.NewHandler(store, files, tokens)
	authn := mw.NewAuthenticator(tokens)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Content-Type", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	r.Route("/api", func(r chi.Router) {
		// public
		r.Get("/health", h.HealthHandler)
		r.Post("/auth/register", h.RegisterHandler)
		r.Post("/auth/login", h.LoginHandler)
		r.Get("/projects", h.GetProjectsHandler)
		r.Get("/projects/{projectId}", h.GetProjectHandler)

		r.Group(func(r chi.Router) {
			r.Use(authn.Authenticate)

			r.Get("/documents/{documentId}/download", h.DownloadDocumentHandler)

			// candidate
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(db.RoleCandidate))
				r.Post("/projects/{projectId}/bids", h.SubmitBidHandler)
				r.Post("/bids/{bidId}/documents", h.UploadDocumentHandler)
				r.Get("/bids", h.GetMyBidsHandler)
			})

			// admin
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(db.RoleAdmin))
				r.Post("/projects", h.CreateProjectHandler)
				r.Put("/admin/projects/{projectId}", h.UpdateProjectHandler)
				r.Delete("/projects/{projectId}", h.DeleteProjectHandler)
				r.Get("/admin/bids", h.GetAllBidsHandler)
				r.Get("/admin/bids/{bidId}", h.GetBidDetailHandler)
				r.Put("/admin/bids/{bidId}/status", h.UpdateBidStatusHandler)
				r.Put("/admin/documents/{documentId}/verify", h.VerifyDocumentHandler)
				r.Get("/admin/dashboard", h.DashboardHandler)
			})
		})
	})

	logger.Infof("Starting server on %s", cfg.ServerAddress)
	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatalf("server: %v", err)
	}
}

// ensureAdmin creates the bootstrap admin account on first start, so the
// platform has someone able to publish projects.
func ensureAdmin(ctx context.Context, store *db.Storage, cfg *config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}
	count, err := store.CountAdmins(ctx)
	if err != nil || count > 0 {
		return err
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	admin := &db.User{
		Username:     cfg.AdminUsername,
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		Role:         db.RoleAdmin,
	}
	if err := store.CreateUserWithCandidate(ctx, admin, nil); err != nil {
		return err
	}
	logger.Infof("created bootstrap admin %s", cfg.AdminEmail)
	return nil
}
