package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"planwise/internal/config"
	"planwise/internal/domain/models"
	planningRepo "planwise/internal/domain/repositories/planning"
	planningSvc "planwise/internal/domain/services/planning"
	"planwise/internal/repository"
	serviceAuth "planwise/internal/service/auth"
	servicePlanning "planwise/internal/service/planning"
	"planwise/internal/service/propagation"
)

func main() {
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed data")
	adminID := flag.String("admin", "", "Administrator user ID (defaults to the first ADMIN_USER_IDS entry)")
	memberList := flag.String("members", "alice,bob", "Comma-separated member user IDs")
	projectName := flag.String("project", "Demo project", "Name of the seeded project")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	// Seeding writes demo data through the normal services; never in production
	if cfg.Environment == "prod" && !*schemaOnly {
		log.Fatalf("refusing to seed demo data in the prod environment")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx := context.Background()
	store, closeStore, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer closeStore()

	if *schemaOnly {
		logger.Info("schema ready", "driver", cfg.DBDriver, "table_prefix", cfg.TablePrefix)
		return
	}

	if *adminID == "" && len(cfg.AdminUserIDs) > 0 {
		*adminID = cfg.AdminUserIDs[0]
	}
	if *adminID == "" {
		log.Fatalf("an administrator is required: pass -admin or set ADMIN_USER_IDS")
	}

	s := &seeder{store: store, logger: logger}
	if err := s.run(ctx, *adminID, splitList(*memberList), *projectName); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}

type seeder struct {
	store  *planningRepo.Store
	logger *slog.Logger
}

// run creates a project with an official vision document (step 1) and a
// private draft for step 2 authored by the first member
func (s *seeder) run(ctx context.Context, adminID string, members []string, name string) error {
	users := servicePlanning.NewUserService(s.store.Users, []string{adminID}, s.logger)
	admin, err := users.ResolveActor(ctx, adminID, "Administrator")
	if err != nil {
		return fmt.Errorf("resolve admin: %w", err)
	}

	authorizer := serviceAuth.NewMembershipAuthorizer(s.store.Members)
	// No observers are connected while seeding
	publisher := propagation.NewRegistry("seed", 0, s.logger)
	projects := servicePlanning.NewProjectService(s.store, authorizer, s.logger)
	documents := servicePlanning.NewDocumentService(s.store, authorizer, publisher, s.logger)

	project, err := projects.CreateProject(ctx, admin, &planningSvc.CreateProjectRequest{
		Name:        name,
		Description: "Seeded for local development",
	})
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}

	actors := make([]models.Actor, 0, len(members))
	for _, id := range members {
		actor, err := users.ResolveActor(ctx, id, id)
		if err != nil {
			return fmt.Errorf("resolve member %s: %w", id, err)
		}
		if _, err := projects.AddMember(ctx, admin, project.ID, &planningSvc.AddMemberRequest{UserID: id, Role: "contributor"}); err != nil {
			return fmt.Errorf("add member %s: %w", id, err)
		}
		actors = append(actors, actor)
	}

	author := admin
	if len(actors) > 0 {
		author = actors[0]
	}

	vision, err := documents.CreateDocument(ctx, author, &planningSvc.CreateDocumentRequest{
		ProjectID:    project.ID,
		WorkflowStep: 1,
		Title:        "Product vision",
		Content:      "# Product vision\n\nA shared planning space where every step builds on approved decisions.",
	})
	if err != nil {
		return fmt.Errorf("create vision: %w", err)
	}
	if _, err := documents.RequestApproval(ctx, author, vision.ID); err != nil {
		return fmt.Errorf("request approval: %w", err)
	}
	official, err := documents.Approve(ctx, admin, vision.ID)
	if err != nil {
		return fmt.Errorf("approve vision: %w", err)
	}

	draft, err := documents.CreateDocument(ctx, author, &planningSvc.CreateDocumentRequest{
		ProjectID:    project.ID,
		WorkflowStep: 2,
		Title:        "Target users",
		Content:      "# Target users\n\n- Product managers\n- Engineers",
	})
	if err != nil {
		return fmt.Errorf("create draft: %w", err)
	}

	s.logger.Info("seeding complete",
		"project_id", project.ID,
		"members", len(actors),
		"official_document_id", official.ID,
		"official_status", official.Status,
		"draft_document_id", draft.ID,
	)
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
