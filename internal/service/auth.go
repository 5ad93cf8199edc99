// Package service holds the account lifecycle, review and booking rules.
// Services return *apperr.Error values for every failure a client can act
// on; anything else is an unexpected failure.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"go.uber.org/zap"

	"github.com/Yoseph1994/adventurehub/internal/apperr"
	"github.com/Yoseph1994/adventurehub/internal/model"
	"github.com/Yoseph1994/adventurehub/internal/repository"
	"github.com/Yoseph1994/adventurehub/internal/utils"
)

// Single-use token failures.  Both reach clients with the same message.
var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// Client-facing messages.
const (
	MsgUserExists          = "User Already Exist"
	MsgIncorrectLogin      = "Incorrect Email Or Password"
	MsgEmptyLogin          = "Email and Password Field is empty"
	MsgVerificationExpired = "Token has expired, signup again to verify email."
	MsgVerifyFirst         = "Please verify your email."
	MsgVerificationInvalid = "Email verification token is invalid or has expired"
	MsgResetInvalid        = "Token has expired or its invalid"
	MsgCurrentPassword     = "Current Password is incorrect"
	MsgVerificationMail    = "There was an error sending the verification email. Please try again later."
	MsgResetMail           = "An Error Occured Try Again Later"
	MsgMustLogin           = "Must be logged in"
	MsgInvalidSession      = "Invalid token. Please log in again!"
	MsgUserGone            = "User no longer exist"
	MsgPasswordChanged     = "Password has been changed recently"
)

// UserStore is the credential store used by AuthService.
type UserStore interface {
	Create(ctx context.Context, nu model.NewUser) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByIDWithPassword(ctx context.Context, id uint64) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByEmailWithPassword(ctx context.Context, email string) (model.User, error)
	FindByVerificationToken(ctx context.Context, hash string) (model.User, error)
	FindByResetToken(ctx context.Context, hash string) (model.User, error)
	Update(ctx context.Context, id uint64, upd model.UserUpdate) error
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context, f model.UserFilter) ([]model.User, error)
}

// Mailer delivers account emails carrying a one-time link.  Sends are
// synchronous: a returned error means the email did not go out.
type Mailer interface {
	SendVerification(ctx context.Context, u model.User, url string) error
	SendPasswordReset(ctx context.Context, u model.User, url string) error
}

// Notifier sends best-effort emails.  Failures are logged only.
type Notifier interface {
	SendWelcome(ctx context.Context, u model.User, url string) error
}

// Session is the result of a successful login: the user and the signed
// token to place in the jwt cookie.
type Session struct {
	User  model.User
	Token utils.SessionToken
}

// AuthService drives the account lifecycle
// Unverified -> Active <-> Deactivated, with Deleted terminal.
type AuthService struct {
	Users          UserStore
	Mail           Mailer
	Notify         Notifier
	Secret         string
	SessionTTL     time.Duration
	FrontendDomain string
	now            func() time.Time
}

// NewAuthService wires the account lifecycle.  Notify is optional and set
// by the caller.
func NewAuthService(users UserStore, mail Mailer, secret string, ttl time.Duration, frontend string) *AuthService {
	return &AuthService{
		Users:          users,
		Mail:           mail,
		Secret:         secret,
		SessionTTL:     ttl,
		FrontendDomain: strings.TrimRight(frontend, "/"),
		now:            time.Now,
	}
}

// SignupInput is the signup and admin create-user payload.
type SignupInput struct {
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Photo           string     `json:"photo"`
	Password        string     `json:"password"`
	ConfirmPassword string     `json:"confirmPassword"`
	Role            model.Role `json:"role"`
}

// Validate checks the payload shape.  Which roles are allowed depends on
// the route and is checked by the caller.
func (r SignupInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 190), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100), strongPassword),
		validation.Field(&r.ConfirmPassword, validation.Required, validation.By(ValidateStringEquals(r.Password))),
	)
}

// PasswordInput carries a new password and its confirmation.
type PasswordInput struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Validate requires a password and a matching confirmation.
func (r PasswordInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100), strongPassword),
		validation.Field(&r.ConfirmPassword, validation.Required, validation.By(ValidateStringEquals(r.Password))),
	)
}

// UpdatePasswordInput re-proves the current password before changing it.
type UpdatePasswordInput struct {
	CurrentPassword string `json:"currentPassword"`
	PasswordInput
}

// Validate requires the current password and a confirmed new one.
func (r UpdatePasswordInput) Validate() error {
	if err := validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
	); err != nil {
		return err
	}
	return r.PasswordInput.Validate()
}

// Signup registers an unverified user and mails the verification link.
// Only the user and guide roles may self-register.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (model.User, error) {
	if in.Role == "" {
		in.Role = model.RoleUser
	}
	if in.Role != model.RoleUser && in.Role != model.RoleGuide {
		return model.User{}, apperr.Validation("Invalid input data. role: must be user or guide")
	}
	return s.register(ctx, in)
}

// CreateUser is the admin variant of Signup: any role except superAdmin.
func (s *AuthService) CreateUser(ctx context.Context, in SignupInput) (model.User, error) {
	if in.Role == "" {
		in.Role = model.RoleUser
	}
	if !in.Role.Valid() || in.Role == model.RoleSuperAdmin {
		return model.User{}, apperr.Validation("Invalid input data. role: is not assignable")
	}
	return s.register(ctx, in)
}

func (s *AuthService) register(ctx context.Context, in SignupInput) (model.User, error) {
	if err := in.Validate(); err != nil {
		return model.User{}, invalid(err)
	}
	if _, err := s.Users.GetByEmail(ctx, in.Email); err == nil {
		return model.User{}, apperr.Conflict(MsgUserExists)
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return model.User{}, fmt.Errorf("lookup email: %w", err)
	}

	u, err := s.Users.Create(ctx, model.NewUser{
		Name:     in.Name,
		Email:    in.Email,
		Photo:    in.Photo,
		Role:     in.Role,
		Password: in.Password,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return model.User{}, apperr.Conflict(MsgUserExists, err)
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}

	tok, err := utils.NewSingleUseToken(utils.EmailVerificationTTL, s.now())
	if err == nil {
		err = s.Users.Update(ctx, u.ID, model.UserUpdate{
			VerificationToken: &model.TokenField{Hash: tok.Hash, Expires: tok.Exp},
		})
	}
	if err == nil {
		err = s.Mail.SendVerification(ctx, u, s.FrontendDomain+"/verify-email?token="+tok.Raw)
	}
	if err != nil {
		if derr := s.Users.Delete(ctx, u.ID); derr != nil {
			zap.L().Error("signup rollback failed", zap.Uint64("user_id", u.ID), zap.Error(derr))
		}
		return model.User{}, apperr.External(MsgVerificationMail, err)
	}
	return u, nil
}

// VerifyEmail consumes a verification token: Unverified -> Active.
func (s *AuthService) VerifyEmail(ctx context.Context, raw string) error {
	u, err := s.Users.FindByVerificationToken(ctx, utils.HashToken(raw))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperr.Validation(MsgVerificationInvalid, ErrTokenInvalid)
		}
		return err
	}
	if u.EmailVerificationExpires == nil || !u.EmailVerificationExpires.After(s.now()) {
		return apperr.Validation(MsgVerificationInvalid, ErrTokenExpired)
	}
	verified := true
	if err := s.Users.Update(ctx, u.ID, model.UserUpdate{
		IsEmailVerified:   &verified,
		VerificationToken: &model.TokenField{},
	}); err != nil {
		return err
	}
	if s.Notify != nil {
		if err := s.Notify.SendWelcome(ctx, u, s.FrontendDomain+"/me"); err != nil {
			zap.L().Warn("welcome email not queued", zap.Uint64("user_id", u.ID), zap.Error(err))
		}
	}
	return nil
}

// Login checks credentials in a fixed order.  An unverified account whose
// verification window closed is deleted here; a deactivated one is
// reactivated.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return Session{}, apperr.Validation(MsgEmptyLogin)
	}
	u, err := s.Users.GetByEmailWithPassword(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return Session{}, apperr.Authentication(MsgIncorrectLogin)
		}
		return Session{}, err
	}
	state := u.State(s.now())
	switch state {
	case model.StateExpired:
		if err := s.Users.Delete(ctx, u.ID); err != nil {
			return Session{}, fmt.Errorf("reap unverified user: %w", err)
		}
		return Session{}, apperr.Authentication(MsgVerificationExpired, ErrTokenExpired)
	case model.StateUnverified:
		return Session{}, apperr.Authentication(MsgVerifyFirst)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return Session{}, apperr.Authentication(MsgIncorrectLogin)
	}
	if state == model.StateDeactivated {
		active := true
		if err := s.Users.Update(ctx, u.ID, model.UserUpdate{IsActive: &active}); err != nil {
			return Session{}, fmt.Errorf("reactivate user: %w", err)
		}
		u.IsActive = true
	}
	return s.issue(u)
}

// ForgotPassword stores a reset token and mails the reset link.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperr.NotFound("No User Found by the email:" + email)
		}
		return err
	}
	tok, err := utils.NewSingleUseToken(utils.PasswordResetTTL, s.now())
	if err != nil {
		return err
	}
	if err := s.Users.Update(ctx, u.ID, model.UserUpdate{
		ResetToken: &model.TokenField{Hash: tok.Hash, Expires: tok.Exp},
	}); err != nil {
		return err
	}
	if err := s.Mail.SendPasswordReset(ctx, u, s.FrontendDomain+"/reset-password?token="+tok.Raw); err != nil {
		if cerr := s.Users.Update(ctx, u.ID, model.UserUpdate{ResetToken: &model.TokenField{}}); cerr != nil {
			zap.L().Error("clear reset token failed", zap.Uint64("user_id", u.ID), zap.Error(cerr))
		}
		return apperr.External(MsgResetMail, err)
	}
	return nil
}

// ResetPassword consumes a reset token, rewrites the password and logs the
// user in.
func (s *AuthService) ResetPassword(ctx context.Context, raw string, in PasswordInput) (Session, error) {
	u, err := s.Users.FindByResetToken(ctx, utils.HashToken(raw))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return Session{}, apperr.Validation(MsgResetInvalid, ErrTokenInvalid)
		}
		return Session{}, err
	}
	if u.PasswordResetExpires == nil || !u.PasswordResetExpires.After(s.now()) {
		return Session{}, apperr.Validation(MsgResetInvalid, ErrTokenExpired)
	}
	if err := in.Validate(); err != nil {
		return Session{}, invalid(err)
	}
	if err := s.Users.Update(ctx, u.ID, model.UserUpdate{
		Password:   &in.Password,
		ResetToken: &model.TokenField{},
	}); err != nil {
		return Session{}, err
	}
	return s.issue(u)
}

// UpdatePassword changes the password of a logged-in user after
// re-checking the current one, and issues a fresh session.
func (s *AuthService) UpdatePassword(ctx context.Context, userID uint64, in UpdatePasswordInput) (Session, error) {
	if err := in.Validate(); err != nil {
		return Session{}, invalid(err)
	}
	u, err := s.Users.GetByIDWithPassword(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return Session{}, apperr.Authentication(MsgUserGone)
		}
		return Session{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, in.CurrentPassword) {
		return Session{}, apperr.Authentication(MsgCurrentPassword)
	}
	if err := s.Users.Update(ctx, u.ID, model.UserUpdate{Password: &in.Password}); err != nil {
		return Session{}, err
	}
	return s.issue(u)
}

// Deactivate marks the account inactive.  The next login reactivates it.
func (s *AuthService) Deactivate(ctx context.Context, userID uint64) error {
	inactive := false
	if err := s.Users.Update(ctx, userID, model.UserUpdate{IsActive: &inactive}); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperr.NotFound("No user found with that ID", err)
		}
		return err
	}
	return nil
}

// DeleteAccount removes the account permanently.
func (s *AuthService) DeleteAccount(ctx context.Context, userID uint64) error {
	if err := s.Users.Delete(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperr.NotFound("No user found with that ID", err)
		}
		return err
	}
	return nil
}

// Authenticate resolves a session token to its user.  Tokens issued
// before the last password change are rejected.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (model.User, error) {
	if raw == "" {
		return model.User{}, apperr.Authentication(MsgMustLogin)
	}
	claims, err := utils.ParseSessionToken(s.Secret, raw)
	if err != nil {
		return model.User{}, apperr.Authentication(MsgInvalidSession, err)
	}
	u, err := s.Users.GetByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.User{}, apperr.Authentication(MsgUserGone)
		}
		return model.User{}, err
	}
	if u.PasswordChangedAfter(claims.IssuedAt.Unix()) {
		return model.User{}, apperr.Authentication(MsgPasswordChanged)
	}
	return u, nil
}

func (s *AuthService) issue(u model.User) (Session, error) {
	tok, err := utils.NewSessionToken(s.Secret, u.ID, s.SessionTTL, s.now())
	if err != nil {
		return Session{}, fmt.Errorf("sign session: %w", err)
	}
	u.PasswordHash = ""
	return Session{User: u, Token: tok}, nil
}
