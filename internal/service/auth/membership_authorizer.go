package auth

import (
	"context"
	"errors"
	"fmt"

	"planwise/internal/domain"
	"planwise/internal/domain/models"
	planning "planwise/internal/domain/models/planning"
	planningRepo "planwise/internal/domain/repositories/planning"
	planningSvc "planwise/internal/domain/services/planning"
	"planwise/internal/validate"
)

// MembershipAuthorizer implements ResourceAuthorizer using project membership.
// Membership existence is the only project-level gate; administrator status is
// a global attribute of the user and passes every check.
type MembershipAuthorizer struct {
	memberRepo planningRepo.MemberRepository
}

// NewMembershipAuthorizer creates a new membership-based authorizer
func NewMembershipAuthorizer(memberRepo planningRepo.MemberRepository) *MembershipAuthorizer {
	return &MembershipAuthorizer{memberRepo: memberRepo}
}

var _ planningSvc.ResourceAuthorizer = (*MembershipAuthorizer)(nil)

// CanAccessProject checks the caller is a member of the project or an administrator
func (a *MembershipAuthorizer) CanAccessProject(ctx context.Context, actor models.Actor, projectID string) error {
	if err := validate.UserID(actor.UserID); err != nil {
		return err
	}
	if actor.IsAdmin {
		return nil
	}

	ok, err := a.memberRepo.IsMember(ctx, projectID, actor.UserID)
	if err != nil {
		return fmt.Errorf("check project access: %w", err)
	}
	if !ok {
		return &domain.ForbiddenError{Message: fmt.Sprintf("access denied to project %s", projectID)}
	}
	return nil
}

// CanReadDocument checks project access, then hides other members' private drafts
func (a *MembershipAuthorizer) CanReadDocument(ctx context.Context, actor models.Actor, doc *planning.Document) error {
	if err := a.CanAccessProject(ctx, actor, doc.ProjectID); err != nil {
		return err
	}
	if doc.IsSharedWithProject() || actor.IsAdmin || doc.IsAuthor(actor.UserID) {
		return nil
	}
	return &domain.ForbiddenError{Message: fmt.Sprintf("document %s is a private draft", doc.ID)}
}

// RequireAdmin checks the caller is an administrator
func (a *MembershipAuthorizer) RequireAdmin(actor models.Actor) error {
	if err := validate.UserID(actor.UserID); err != nil {
		return err
	}
	if !actor.IsAdmin {
		return &domain.ForbiddenError{Message: "administrator rights required"}
	}
	return nil
}

// ConcealDocument maps a missing document and one the actor may not see to
// the same FORBIDDEN error. Administrators see every document and keep
// NOT_FOUND.
func ConcealDocument(actor models.Actor, documentID string, err error) error {
	if err == nil || actor.IsAdmin {
		return err
	}
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrForbidden) {
		return &domain.ForbiddenError{Message: fmt.Sprintf("document %s is not accessible", documentID)}
	}
	return err
}
