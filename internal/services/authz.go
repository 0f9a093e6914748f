package services

import "github.com/intentionbank/backend/internal/models"

// Authorize is the ownership check shared by every route: the actor must own
// the resource or be an administrator.
func Authorize(actor *models.User, ownerUserID int64) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	if actor.IsAdmin() || actor.ID == ownerUserID {
		return nil
	}
	return ErrForbidden
}
