package repository

import "github.com/iliyamo/lodging-listings/internal/model"

// RequireOwnerOrAdmin allows the property's host and administrators.
func RequireOwnerOrAdmin(caller model.Caller, hostID uint64) error {
	if caller.IsAdmin() {
		return nil
	}
	if caller.ID == 0 || caller.ID != hostID {
		return ErrForbidden
	}
	return nil
}

// RequireAdmin allows administrators only.
func RequireAdmin(caller model.Caller) error {
	if !caller.IsAdmin() {
		return ErrForbidden
	}
	return nil
}
