package services

import (
	"taskhub/apperrors"
	"taskhub/models"

	"golang.org/x/exp/slices"
)

var (
	AdminRoles  = []string{models.RoleAdmin}
	MemberRoles = []string{models.RoleAdmin, models.RoleUser}
)

// AuthMessages are the texts reported when the guard rejects a caller.
type AuthMessages struct {
	Authentication string
	Authorization  string
}

var defaultAuthMessages = AuthMessages{
	Authentication: "Authentication required",
	Authorization:  "Unauthorized",
}

// CheckAuth rejects a missing caller with ErrAuthenticationRequired and a
// caller whose role is not allowed with ErrUnauthorized.
func CheckAuth(caller *models.Identity, allowed []string, msgs AuthMessages) error {
	if msgs.Authentication == "" {
		msgs.Authentication = defaultAuthMessages.Authentication
	}
	if msgs.Authorization == "" {
		msgs.Authorization = defaultAuthMessages.Authorization
	}

	if caller == nil {
		return apperrors.New(apperrors.ErrAuthenticationRequired, msgs.Authentication)
	}
	if !slices.Contains(allowed, caller.Role) {
		return apperrors.New(apperrors.ErrUnauthorized, msgs.Authorization)
	}
	return nil
}
