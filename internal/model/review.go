package model

import "time"

// Review represents a row of the `reviews` table.  Author is filled by the
// read-side join and is nil on writes.
type Review struct {
	ID        uint64        `json:"id"`
	TourID    uint64        `json:"tour"`
	UserID    uint64        `json:"-"`
	Review    string        `json:"review"`
	Rating    float64       `json:"rating"`
	LikeCount int           `json:"likeCount"`
	CreatedAt time.Time     `json:"createdAt"`
	Author    *ReviewAuthor `json:"user,omitempty"`
}

// ReviewAuthor is the public projection of a review's user.
type ReviewAuthor struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	Photo    string `json:"photo"`
	Role     Role   `json:"role"`
	IsActive bool   `json:"isActive"`
}

// ReviewPatch lists the fields an author may change.
type ReviewPatch struct {
	Review *string
	Rating *float64
}
