package service

import (
	"context"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/Yoseph1994/adventurehub/internal/apperr"
	"github.com/Yoseph1994/adventurehub/internal/model"
	"github.com/Yoseph1994/adventurehub/internal/repository"
)

const (
	MsgNotPasswordRoute = "This route is not for password updates. Please use /updateMyPassword."
	MsgDeleteSelf       = "You cannot delete your own account from this route"
	MsgDeletePrivileged = "You cannot delete admins or super-admins"
	MsgNoUser           = "No user found with that ID"
)

// UpdateMeInput is the profile payload.  Password fields are only present
// so they can be rejected.
type UpdateMeInput struct {
	Name            *string `json:"name"`
	Email           *string `json:"email"`
	Photo           *string `json:"photo"`
	Password        string  `json:"password"`
	ConfirmPassword string  `json:"confirmPassword"`
}

// Validate checks only the fields present.
func (r UpdateMeInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(1, 120)),
		validation.Field(&r.Email, validation.NilOrNotEmpty, is.Email),
		validation.Field(&r.Photo, validation.NilOrNotEmpty, validation.Length(1, 255)),
	)
}

// AdminUpdateInput lets an admin change another user's role or status.
type AdminUpdateInput struct {
	Role     *model.Role `json:"role"`
	IsActive *bool       `json:"isActive"`
}

// Me returns the current user.
func (s *AuthService) Me(ctx context.Context, userID uint64) (model.User, error) {
	return s.GetUser(ctx, userID)
}

// GetUser returns one user by id.
func (s *AuthService) GetUser(ctx context.Context, id uint64) (model.User, error) {
	u, err := s.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.User{}, apperr.NotFound(MsgNoUser, err)
		}
		return model.User{}, err
	}
	return u, nil
}

// ListUsers returns users matching f.
func (s *AuthService) ListUsers(ctx context.Context, f model.UserFilter) ([]model.User, error) {
	return s.Users.List(ctx, f)
}

// UpdateMe changes the caller's name, email or photo.
func (s *AuthService) UpdateMe(ctx context.Context, userID uint64, in UpdateMeInput) (model.User, error) {
	if in.Password != "" || in.ConfirmPassword != "" {
		return model.User{}, apperr.Validation(MsgNotPasswordRoute)
	}
	if err := in.Validate(); err != nil {
		return model.User{}, invalid(err)
	}
	err := s.Users.Update(ctx, userID, model.UserUpdate{Name: in.Name, Email: in.Email, Photo: in.Photo})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return model.User{}, apperr.Conflict(MsgUserExists, err)
		case errors.Is(err, repository.ErrUserNotFound):
			return model.User{}, apperr.Authentication(MsgUserGone, err)
		}
		return model.User{}, err
	}
	return s.GetUser(ctx, userID)
}

// CanAdminDelete enforces the ownership predicates of the admin delete
// route: nobody removes themselves there, and admins are never removed.
func CanAdminDelete(actor, target model.User) error {
	if actor.ID == target.ID {
		return apperr.Validation(MsgDeleteSelf)
	}
	if target.Role.IsPrivileged() {
		return apperr.Authorization(MsgDeletePrivileged)
	}
	return nil
}

// AdminDelete deactivates another user's account.
func (s *AuthService) AdminDelete(ctx context.Context, actor model.User, targetID uint64) error {
	target, err := s.GetUser(ctx, targetID)
	if err != nil {
		return err
	}
	if err := CanAdminDelete(actor, target); err != nil {
		return err
	}
	return s.Deactivate(ctx, target.ID)
}

// AdminUpdate changes another user's role or active flag.  The superAdmin
// role cannot be granted and privileged accounts cannot be changed.
func (s *AuthService) AdminUpdate(ctx context.Context, actor model.User, targetID uint64, in AdminUpdateInput) (model.User, error) {
	if in.Role != nil && (!in.Role.Valid() || *in.Role == model.RoleSuperAdmin) {
		return model.User{}, apperr.Validation("Invalid input data. role: is not assignable")
	}
	target, err := s.GetUser(ctx, targetID)
	if err != nil {
		return model.User{}, err
	}
	if target.Role.IsPrivileged() && actor.Role != model.RoleSuperAdmin {
		return model.User{}, apperr.Authorization("You cannot change admins or super-admins")
	}
	if err := s.Users.Update(ctx, target.ID, model.UserUpdate{Role: in.Role, IsActive: in.IsActive}); err != nil {
		return model.User{}, err
	}
	return s.GetUser(ctx, target.ID)
}
