package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/Yoseph1994/adventurehub/internal/model"
	"github.com/Yoseph1994/adventurehub/internal/utils"
)

// UserRepo is the credential store.  Reads leave PasswordHash empty unless
// the caller uses one of the *WithPassword variants.
type UserRepo struct {
	DB   *sql.DB
	Cost int // bcrypt cost applied on every password write
	now  func() time.Time
}

// NewUserRepo returns a UserRepo that hashes passwords at the given
// bcrypt cost.
func NewUserRepo(db *sql.DB, cost int) *UserRepo {
	return &UserRepo{DB: db, Cost: cost, now: time.Now}
}

const userColumns = "id,name,email,photo,role,is_active,is_email_verified,password_changed_at," +
	"email_verification_token,email_verification_expires,password_reset_token,password_reset_expires," +
	"created_at,updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner, withPassword bool) (model.User, error) {
	var (
		u                                model.User
		role                             string
		changedAt, verifyExp, resetExp   sql.NullTime
		verifyToken, resetToken, pwdHash sql.NullString
	)
	dest := []any{&u.ID, &u.Name, &u.Email, &u.Photo, &role, &u.IsActive, &u.IsEmailVerified, &changedAt,
		&verifyToken, &verifyExp, &resetToken, &resetExp, &u.CreatedAt, &u.UpdatedAt}
	if withPassword {
		dest = append(dest, &pwdHash)
	}
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, err
	}
	u.Role = model.Role(role)
	u.PasswordChangedAt = nullTimePtr(changedAt)
	u.EmailVerificationToken = verifyToken.String
	u.EmailVerificationExpires = nullTimePtr(verifyExp)
	u.PasswordResetToken = resetToken.String
	u.PasswordResetExpires = nullTimePtr(resetExp)
	u.PasswordHash = pwdHash.String
	return u, nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Create hashes the password and inserts an unverified user.
func (r *UserRepo) Create(ctx context.Context, nu model.NewUser) (model.User, error) {
	hash, err := utils.HashPassword(nu.Password, r.Cost)
	if err != nil {
		return model.User{}, err
	}
	role := nu.Role
	if role == "" {
		role = model.RoleUser
	}
	photo := nu.Photo
	if photo == "" {
		photo = "default.jpg"
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name,email,photo,role,password_hash) VALUES (?,?,?,?,?)",
		strings.TrimSpace(nu.Name), normalizeEmail(nu.Email), photo, string(role), hash)
	if err != nil {
		if isDuplicate(err) {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID fetches a user by id without the password hash.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id), false)
}

// GetByIDWithPassword fetches a user by id including the password hash.
func (r *UserRepo) GetByIDWithPassword(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+",password_hash FROM users WHERE id=? LIMIT 1", id), true)
}

// GetByEmail fetches a user by normalized email without the password hash.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", normalizeEmail(email)), false)
}

// GetByEmailWithPassword fetches a user by email including the password hash.
func (r *UserRepo) GetByEmailWithPassword(ctx context.Context, email string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+",password_hash FROM users WHERE email=? LIMIT 1", normalizeEmail(email)), true)
}

// FindByVerificationToken looks a user up by the digest of an email
// verification token.  Expiry is checked by the caller.
func (r *UserRepo) FindByVerificationToken(ctx context.Context, hash string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email_verification_token=? LIMIT 1", hash), false)
}

// FindByResetToken looks a user up by the digest of a password reset token.
func (r *UserRepo) FindByResetToken(ctx context.Context, hash string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE password_reset_token=? LIMIT 1", hash), false)
}

// Update applies the non-nil fields of upd.  A new password is hashed here
// and stamps password_changed_at one second in the past, so a session token
// issued right after the change stays valid.
func (r *UserRepo) Update(ctx context.Context, id uint64, upd model.UserUpdate) error {
	set, args, err := buildUserUpdate(upd, r.Cost, r.now())
	if err != nil {
		return err
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET "+strings.Join(set, ",")+" WHERE id=?", args...)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// MySQL reports 0 for unchanged rows too, so confirm existence.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func buildUserUpdate(upd model.UserUpdate, cost int, now time.Time) ([]string, []any, error) {
	var (
		set  []string
		args []any
	)
	add := func(col string, v any) {
		set = append(set, col+"=?")
		args = append(args, v)
	}
	if upd.Name != nil {
		add("name", strings.TrimSpace(*upd.Name))
	}
	if upd.Email != nil {
		add("email", normalizeEmail(*upd.Email))
	}
	if upd.Photo != nil {
		add("photo", *upd.Photo)
	}
	if upd.Role != nil {
		add("role", string(*upd.Role))
	}
	if upd.IsActive != nil {
		add("is_active", *upd.IsActive)
	}
	if upd.IsEmailVerified != nil {
		add("is_email_verified", *upd.IsEmailVerified)
	}
	if upd.Password != nil {
		hash, err := utils.HashPassword(*upd.Password, cost)
		if err != nil {
			return nil, nil, err
		}
		add("password_hash", hash)
		add("password_changed_at", now.UTC().Add(-time.Second))
	}
	if t := upd.VerificationToken; t != nil {
		add("email_verification_token", nullableString(t.Hash))
		add("email_verification_expires", nullableTime(t.Hash, t.Expires))
	}
	if t := upd.ResetToken; t != nil {
		add("password_reset_token", nullableString(t.Hash))
		add("password_reset_expires", nullableTime(t.Hash, t.Expires))
	}
	return set, args, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(hash string, t time.Time) any {
	if hash == "" {
		return nil
	}
	return t.UTC()
}

// Delete removes a user permanently.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// List returns users matching f, newest first.
func (r *UserRepo) List(ctx context.Context, f model.UserFilter) ([]model.User, error) {
	var (
		where []string
		args  []any
	)
	if f.IsActive != nil {
		where = append(where, "is_active=?")
		args = append(args, *f.IsActive)
	}
	if f.Role != nil {
		where = append(where, "role=?")
		args = append(args, string(*f.Role))
	}
	q := "SELECT " + userColumns + " FROM users"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	limit, offset := pageBounds(f.Page, f.Limit)
	q += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows, false)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
