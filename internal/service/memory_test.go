package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Yoseph1994/adventurehub/internal/model"
	"github.com/Yoseph1994/adventurehub/internal/payment"
	"github.com/Yoseph1994/adventurehub/internal/repository"
	"github.com/Yoseph1994/adventurehub/internal/utils"
)

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time { return c.t }

type memoryUsers struct {
	mu     sync.Mutex
	users  map[uint64]model.User
	nextID uint64
	clock  *testClock
}

func newMemoryUsers(clock *testClock) *memoryUsers {
	return &memoryUsers{users: map[uint64]model.User{}, clock: clock}
}

func (m *memoryUsers) Create(ctx context.Context, nu model.NewUser) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(nu.Email))
	for _, u := range m.users {
		if u.Email == email {
			return model.User{}, repository.ErrEmailExists
		}
	}
	hash, err := utils.HashPassword(nu.Password, bcrypt.MinCost)
	if err != nil {
		return model.User{}, err
	}
	m.nextID++
	u := model.User{
		ID:           m.nextID,
		Name:         nu.Name,
		Email:        email,
		Photo:        "default.jpg",
		Role:         nu.Role,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    m.clock.Now(),
	}
	m.users[u.ID] = u
	u.PasswordHash = ""
	return u, nil
}

func (m *memoryUsers) find(match func(model.User) bool, withPassword bool) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			if !withPassword {
				u.PasswordHash = ""
			}
			return u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (m *memoryUsers) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return m.find(func(u model.User) bool { return u.ID == id }, false)
}

func (m *memoryUsers) GetByIDWithPassword(ctx context.Context, id uint64) (model.User, error) {
	return m.find(func(u model.User) bool { return u.ID == id }, true)
}

func (m *memoryUsers) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return m.find(func(u model.User) bool { return u.Email == email }, false)
}

func (m *memoryUsers) GetByEmailWithPassword(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return m.find(func(u model.User) bool { return u.Email == email }, true)
}

func (m *memoryUsers) FindByVerificationToken(ctx context.Context, hash string) (model.User, error) {
	return m.find(func(u model.User) bool { return hash != "" && u.EmailVerificationToken == hash }, false)
}

func (m *memoryUsers) FindByResetToken(ctx context.Context, hash string) (model.User, error) {
	return m.find(func(u model.User) bool { return hash != "" && u.PasswordResetToken == hash }, false)
}

func (m *memoryUsers) Update(ctx context.Context, id uint64, upd model.UserUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	if upd.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*upd.Email))
		for _, o := range m.users {
			if o.ID != id && o.Email == email {
				return repository.ErrEmailExists
			}
		}
		u.Email = email
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Photo != nil {
		u.Photo = *upd.Photo
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}
	if upd.IsEmailVerified != nil {
		u.IsEmailVerified = *upd.IsEmailVerified
	}
	if upd.Password != nil {
		hash, err := utils.HashPassword(*upd.Password, bcrypt.MinCost)
		if err != nil {
			return err
		}
		u.PasswordHash = hash
		changed := m.clock.Now().Add(-time.Second)
		u.PasswordChangedAt = &changed
	}
	if t := upd.VerificationToken; t != nil {
		u.EmailVerificationToken, u.EmailVerificationExpires = tokenFields(t)
	}
	if t := upd.ResetToken; t != nil {
		u.PasswordResetToken, u.PasswordResetExpires = tokenFields(t)
	}
	m.users[id] = u
	return nil
}

func tokenFields(t *model.TokenField) (string, *time.Time) {
	if t.Hash == "" {
		return "", nil
	}
	exp := t.Expires
	return t.Hash, &exp
}

func (m *memoryUsers) Delete(ctx context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memoryUsers) List(ctx context.Context, f model.UserFilter) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.User{}
	for _, u := range m.users {
		if f.IsActive != nil && u.IsActive != *f.IsActive {
			continue
		}
		if f.Role != nil && u.Role != *f.Role {
			continue
		}
		u.PasswordHash = ""
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// put stores u as-is, hashing plain when given.
func (m *memoryUsers) put(u model.User, plain string) model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if plain != "" {
		u.PasswordHash, _ = utils.HashPassword(plain, bcrypt.MinCost)
	}
	if u.ID == 0 {
		m.nextID++
		u.ID = m.nextID
	}
	m.users[u.ID] = u
	return u
}

type memoryMailer struct {
	verifications []string
	resets        []string
	err           error
}

func (m *memoryMailer) SendVerification(ctx context.Context, u model.User, url string) error {
	if m.err != nil {
		return m.err
	}
	m.verifications = append(m.verifications, url)
	return nil
}

func (m *memoryMailer) SendPasswordReset(ctx context.Context, u model.User, url string) error {
	if m.err != nil {
		return m.err
	}
	m.resets = append(m.resets, url)
	return nil
}

// rawToken extracts the token query value from a mailed link.
func rawToken(link string) string {
	i := strings.Index(link, "token=")
	if i < 0 {
		return ""
	}
	return link[i+len("token="):]
}

type memoryTours struct {
	mu        sync.Mutex
	tours     map[uint64]model.Tour
	summaries map[uint64]model.RatingSummary
}

func newMemoryTours(tours ...model.Tour) *memoryTours {
	m := &memoryTours{tours: map[uint64]model.Tour{}, summaries: map[uint64]model.RatingSummary{}}
	for _, t := range tours {
		m.tours[t.ID] = t
	}
	return m
}

func (m *memoryTours) GetByID(ctx context.Context, id uint64) (model.Tour, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tours[id]
	if !ok {
		return model.Tour{}, repository.ErrTourNotFound
	}
	return t, nil
}

func (m *memoryTours) UpdateRatings(ctx context.Context, id uint64, s model.RatingSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tours[id]
	if !ok {
		return repository.ErrTourNotFound
	}
	t.RatingsAverage, t.RatingsQuantity, t.RatingsBreakdown = s.Average, s.Quantity, s.Breakdown
	m.tours[id] = t
	m.summaries[id] = s
	return nil
}

type memoryReviews struct {
	mu      sync.Mutex
	reviews map[uint64]model.Review
	nextID  uint64
}

func newMemoryReviews() *memoryReviews { return &memoryReviews{reviews: map[uint64]model.Review{}} }

func (m *memoryReviews) Create(ctx context.Context, rv model.Review) (model.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.reviews {
		if o.TourID == rv.TourID && o.UserID == rv.UserID {
			return model.Review{}, repository.ErrDuplicateReview
		}
	}
	m.nextID++
	rv.ID = m.nextID
	m.reviews[rv.ID] = rv
	return rv, nil
}

func (m *memoryReviews) GetByID(ctx context.Context, id uint64) (model.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rv, ok := m.reviews[id]
	if !ok {
		return model.Review{}, repository.ErrReviewNotFound
	}
	return rv, nil
}

func (m *memoryReviews) List(ctx context.Context, tourID *uint64) ([]model.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Review{}
	for _, rv := range m.reviews {
		if tourID == nil || rv.TourID == *tourID {
			out = append(out, rv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memoryReviews) Update(ctx context.Context, id uint64, p model.ReviewPatch) (model.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rv, ok := m.reviews[id]
	if !ok {
		return model.Review{}, repository.ErrReviewNotFound
	}
	if p.Review != nil {
		rv.Review = *p.Review
	}
	if p.Rating != nil {
		rv.Rating = *p.Rating
	}
	m.reviews[id] = rv
	return rv, nil
}

func (m *memoryReviews) Delete(ctx context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reviews[id]; !ok {
		return repository.ErrReviewNotFound
	}
	delete(m.reviews, id)
	return nil
}

func (m *memoryReviews) RatingCounts(ctx context.Context, tourID uint64) ([]model.StarCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[float64]int{}
	for _, rv := range m.reviews {
		if rv.TourID == tourID {
			counts[rv.Rating]++
		}
	}
	out := []model.StarCount{}
	for star, n := range counts {
		out = append(out, model.StarCount{Star: star, Total: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Star < out[j].Star })
	return out, nil
}

type memoryBookings struct {
	mu       sync.Mutex
	bookings map[uint64]model.Booking
	nextID   uint64
}

func newMemoryBookings() *memoryBookings { return &memoryBookings{bookings: map[uint64]model.Booking{}} }

func (m *memoryBookings) Create(ctx context.Context, b model.Booking) (model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	b.ID = m.nextID
	m.bookings[b.ID] = b
	return b, nil
}

func (m *memoryBookings) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return model.Booking{}, repository.ErrBookingNotFound
	}
	return b, nil
}

func (m *memoryBookings) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Booking{}
	for _, b := range m.bookings {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memoryBookings) List(ctx context.Context, page, limit int) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Booking{}
	for _, b := range m.bookings {
		out = append(out, b)
	}
	return out, nil
}

func (m *memoryBookings) UpdateStatus(ctx context.Context, id uint64, next model.BookingStatus, refund string) (model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return model.Booking{}, repository.ErrBookingNotFound
	}
	if !b.Status.CanTransition(next) {
		return model.Booking{}, repository.ErrConflict
	}
	b.Status, b.Refund = next, refund
	m.bookings[id] = b
	return b, nil
}

type memoryPayments struct {
	requests []payment.CheckoutRequest
	err      error
}

func (m *memoryPayments) CreateCheckoutSession(ctx context.Context, r payment.CheckoutRequest) (payment.CheckoutSession, error) {
	if m.err != nil {
		return payment.CheckoutSession{}, m.err
	}
	m.requests = append(m.requests, r)
	return payment.CheckoutSession{ID: "cs_1", URL: "https://pay.example/cs_1", PaymentIntent: "pi_1"}, nil
}

type memoryEvents struct{ paid []model.Booking }

func (m *memoryEvents) PublishBookingPaid(ctx context.Context, b model.Booking) error {
	m.paid = append(m.paid, b)
	return nil
}
