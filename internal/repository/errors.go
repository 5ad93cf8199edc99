// Package repository implements MySQL persistence for users, tours, reviews
// and bookings.  Sentinel errors below let services distinguish failure
// scenarios without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailExists is returned when an email is already registered.
	ErrEmailExists = errors.New("email already exists")
	// ErrTourNotFound is returned when no tour matches the id.
	ErrTourNotFound = errors.New("tour not found")
	// ErrTourNameExists is returned when a tour name is already used.
	ErrTourNameExists = errors.New("tour name already exists")
	// ErrReviewNotFound is returned when no review matches the id.
	ErrReviewNotFound = errors.New("review not found")
	// ErrDuplicateReview is returned when a user reviews the same tour twice.
	ErrDuplicateReview = errors.New("review already exists for this tour and user")
	// ErrBookingNotFound is returned when no booking matches the id.
	ErrBookingNotFound = errors.New("booking not found")
	// ErrConflict is returned when an update raced with another writer.
	ErrConflict = errors.New("conflict")
)

const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
