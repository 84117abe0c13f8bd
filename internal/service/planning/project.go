package planning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"planwise/internal/config"
	"planwise/internal/domain"
	"planwise/internal/domain/models"
	"planwise/internal/domain/models/planning"
	planningRepo "planwise/internal/domain/repositories/planning"
	planningSvc "planwise/internal/domain/services/planning"
	"planwise/internal/validate"
)

// projectService implements the ProjectService interface
type projectService struct {
	store      *planningRepo.Store
	authorizer planningSvc.ResourceAuthorizer
	logger     *slog.Logger
}

// NewProjectService creates a new project service
func NewProjectService(
	store *planningRepo.Store,
	authorizer planningSvc.ResourceAuthorizer,
	logger *slog.Logger,
) planningSvc.ProjectService {
	return &projectService{
		store:      store,
		authorizer: authorizer,
		logger:     logger,
	}
}

// CreateProject creates a project and enrolls its creator as owner
func (s *projectService) CreateProject(ctx context.Context, actor models.Actor, req *planningSvc.CreateProjectRequest) (*planning.Project, error) {
	if err := s.authorizer.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validateCreateRequest(req); err != nil {
		return nil, err
	}

	project := &planning.Project{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		OwnerID:     actor.UserID,
	}

	err := s.store.Tx.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.store.Projects.Create(ctx, project); err != nil {
			return err
		}
		return s.store.Members.Add(ctx, &planning.ProjectMember{
			ProjectID: project.ID,
			UserID:    actor.UserID,
			Role:      "owner",
			AddedBy:   actor.UserID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("project created",
		"id", project.ID,
		"name", project.Name,
		"user_id", actor.UserID,
	)

	return project, nil
}

// GetProject retrieves a project the caller belongs to
func (s *projectService) GetProject(ctx context.Context, actor models.Actor, projectID string) (*planning.Project, error) {
	if err := s.checkProject(ctx, actor, projectID); err != nil {
		return nil, err
	}
	return s.store.Projects.GetByID(ctx, projectID)
}

// ListProjects lists the caller's projects; administrators see every project
func (s *projectService) ListProjects(ctx context.Context, actor models.Actor) ([]planning.Project, error) {
	if err := validate.UserID(actor.UserID); err != nil {
		return nil, err
	}
	if actor.IsAdmin {
		return s.store.Projects.List(ctx)
	}
	return s.store.Projects.ListForUser(ctx, actor.UserID)
}

// DeleteProject deletes a project and everything it owns
func (s *projectService) DeleteProject(ctx context.Context, actor models.Actor, projectID string) error {
	if err := s.authorizer.RequireAdmin(actor); err != nil {
		return err
	}
	if err := validate.ID("project_id", projectID); err != nil {
		return err
	}

	if err := s.store.Projects.Delete(ctx, projectID); err != nil {
		return err
	}

	s.logger.Info("project deleted",
		"id", projectID,
		"user_id", actor.UserID,
	)

	return nil
}

// AddMember grants a user access to a project
func (s *projectService) AddMember(ctx context.Context, actor models.Actor, projectID string, req *planningSvc.AddMemberRequest) (*planning.ProjectMember, error) {
	if err := s.authorizer.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if err := validate.ID("project_id", projectID); err != nil {
		return nil, err
	}
	if err := s.validateAddMemberRequest(req); err != nil {
		return nil, err
	}

	member := &planning.ProjectMember{
		ProjectID: projectID,
		UserID:    strings.TrimSpace(req.UserID),
		Role:      strings.TrimSpace(req.Role),
		AddedBy:   actor.UserID,
	}
	if err := s.store.Members.Add(ctx, member); err != nil {
		return nil, err
	}

	s.logger.Info("project member added",
		"project_id", projectID,
		"member_id", member.UserID,
		"role", member.Role,
		"added_by", actor.UserID,
	)

	return member, nil
}

// RemoveMember revokes a user's access. Their documents stay.
func (s *projectService) RemoveMember(ctx context.Context, actor models.Actor, projectID, userID string) error {
	if err := s.authorizer.RequireAdmin(actor); err != nil {
		return err
	}
	if err := validate.ID("project_id", projectID); err != nil {
		return err
	}
	if strings.TrimSpace(userID) == "" {
		return &domain.ValidationError{Message: "user_id: cannot be blank."}
	}

	if err := s.store.Members.Remove(ctx, projectID, userID); err != nil {
		return err
	}

	s.logger.Info("project member removed",
		"project_id", projectID,
		"member_id", userID,
		"removed_by", actor.UserID,
	)

	return nil
}

// ListMembers lists a project's members
func (s *projectService) ListMembers(ctx context.Context, actor models.Actor, projectID string) ([]planning.ProjectMember, error) {
	if err := s.checkProject(ctx, actor, projectID); err != nil {
		return nil, err
	}
	return s.store.Members.List(ctx, projectID)
}

// checkProject validates the identifiers and the caller's access
func (s *projectService) checkProject(ctx context.Context, actor models.Actor, projectID string) error {
	if err := validate.UserID(actor.UserID); err != nil {
		return err
	}
	if err := validate.ID("project_id", projectID); err != nil {
		return err
	}
	return s.authorizer.CanAccessProject(ctx, actor, projectID)
}

// validateCreateRequest validates a create project request
func (s *projectService) validateCreateRequest(req *planningSvc.CreateProjectRequest) error {
	return validate.Wrap(validation.ValidateStruct(req,
		validation.Field(&req.Name,
			validation.Required,
			validation.By(notBlank),
			validation.RuneLength(1, config.MaxProjectNameLength),
		),
		validation.Field(&req.Description, validation.RuneLength(0, config.MaxProjectDescriptionLength)),
	))
}

// validateAddMemberRequest validates an add member request
func (s *projectService) validateAddMemberRequest(req *planningSvc.AddMemberRequest) error {
	return validate.Wrap(validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required, validation.By(notBlank), validation.RuneLength(1, 255)),
		validation.Field(&req.Role, validation.RuneLength(0, config.MaxRoleLabelLength)),
	))
}

// userService implements the UserService interface
type userService struct {
	users           planningRepo.UserRepository
	bootstrapAdmins map[string]bool
	logger          *slog.Logger
}

// NewUserService creates a user directory service. Users listed in
// bootstrapAdmins are promoted to administrator on first sight.
func NewUserService(users planningRepo.UserRepository, bootstrapAdmins []string, logger *slog.Logger) planningSvc.UserService {
	admins := make(map[string]bool, len(bootstrapAdmins))
	for _, id := range bootstrapAdmins {
		if id = strings.TrimSpace(id); id != "" {
			admins[id] = true
		}
	}
	return &userService{
		users:           users,
		bootstrapAdmins: admins,
		logger:          logger,
	}
}

// ResolveActor records the user and returns their administrator status
func (s *userService) ResolveActor(ctx context.Context, userID, displayName string) (models.Actor, error) {
	if err := validate.UserID(userID); err != nil {
		return models.Actor{}, err
	}

	user := &planning.User{ID: userID, DisplayName: strings.TrimSpace(displayName)}
	if err := s.users.Upsert(ctx, user); err != nil {
		return models.Actor{}, fmt.Errorf("resolve actor: %w", err)
	}

	if !user.IsAdmin && s.bootstrapAdmins[userID] {
		if err := s.users.SetAdmin(ctx, userID, true); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return models.Actor{}, fmt.Errorf("promote bootstrap admin: %w", err)
		}
		user.IsAdmin = true
		s.logger.Info("bootstrap administrator promoted", "user_id", userID)
	}

	return models.Actor{UserID: userID, IsAdmin: user.IsAdmin}, nil
}
