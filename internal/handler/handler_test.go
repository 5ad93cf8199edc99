package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Yoseph1994/adventurehub/internal/apperr"
	"github.com/Yoseph1994/adventurehub/internal/config"
	"github.com/Yoseph1994/adventurehub/internal/middleware"
	"github.com/Yoseph1994/adventurehub/internal/model"
	"github.com/Yoseph1994/adventurehub/internal/repository"
	"github.com/Yoseph1994/adventurehub/internal/service"
	"github.com/Yoseph1994/adventurehub/internal/utils"
)

type memUsers struct {
	mu    sync.Mutex
	users map[uint64]model.User
	next  uint64
}

func (m *memUsers) Create(ctx context.Context, nu model.NewUser) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == strings.ToLower(nu.Email) {
			return model.User{}, repository.ErrEmailExists
		}
	}
	hash, err := utils.HashPassword(nu.Password, bcrypt.MinCost)
	if err != nil {
		return model.User{}, err
	}
	m.next++
	u := model.User{ID: m.next, Name: nu.Name, Email: strings.ToLower(nu.Email), Role: nu.Role, PasswordHash: hash, IsActive: true}
	m.users[u.ID] = u
	u.PasswordHash = ""
	return u, nil
}

func (m *memUsers) find(match func(model.User) bool, withPassword bool) (model.User, error) {
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

func (m *memUsers) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return m.find(func(u model.User) bool { return u.ID == id }, false)
}

func (m *memUsers) GetByIDWithPassword(ctx context.Context, id uint64) (model.User, error) {
	return m.find(func(u model.User) bool { return u.ID == id }, true)
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return m.find(func(u model.User) bool { return u.Email == strings.ToLower(email) }, false)
}

func (m *memUsers) GetByEmailWithPassword(ctx context.Context, email string) (model.User, error) {
	return m.find(func(u model.User) bool { return u.Email == strings.ToLower(email) }, true)
}

func (m *memUsers) FindByVerificationToken(ctx context.Context, hash string) (model.User, error) {
	return m.find(func(u model.User) bool { return hash != "" && u.EmailVerificationToken == hash }, false)
}

func (m *memUsers) FindByResetToken(ctx context.Context, hash string) (model.User, error) {
	return m.find(func(u model.User) bool { return hash != "" && u.PasswordResetToken == hash }, false)
}

func (m *memUsers) Update(ctx context.Context, id uint64, upd model.UserUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}
	if upd.IsEmailVerified != nil {
		u.IsEmailVerified = *upd.IsEmailVerified
	}
	if t := upd.VerificationToken; t != nil {
		u.EmailVerificationToken = t.Hash
		exp := t.Expires
		u.EmailVerificationExpires = &exp
	}
	m.users[id] = u
	return nil
}

func (m *memUsers) Delete(ctx context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	return nil
}

func (m *memUsers) List(ctx context.Context, f model.UserFilter) ([]model.User, error) {
	return nil, nil
}

type linkMailer struct{ links []string }

func (l *linkMailer) SendVerification(ctx context.Context, u model.User, url string) error {
	l.links = append(l.links, url)
	return nil
}

func (l *linkMailer) SendPasswordReset(ctx context.Context, u model.User, url string) error {
	l.links = append(l.links, url)
	return nil
}

func newAuthServer(t *testing.T) (*echo.Echo, *linkMailer) {
	t.Helper()
	cfg := config.Config{Env: "development", JWTCookieExpiresDays: 24}
	mail := &linkMailer{}
	auth := service.NewAuthService(&memUsers{users: map[uint64]model.User{}}, mail, "handler-secret", time.Hour, "http://front.test")
	h := NewAuthHandler(cfg, auth)

	e := echo.New()
	e.HTTPErrorHandler = NewErrorHandler(cfg)
	e.POST("/signup", h.Signup)
	e.GET("/verify-email/:token", h.VerifyEmail)
	e.POST("/login", h.Login)
	e.POST("/logout", h.Logout)
	e.GET("/me", h.Me, middleware.Protect(auth))
	return e, mail
}

func doJSON(e *echo.Echo, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func TestSignupVerifyLoginFlow(t *testing.T) {
	e, mail := newAuthServer(t)
	signup := `{"name":"Abebe Bikila","email":"abebe@example.com","password":"Aa1!aaaa","confirmPassword":"Aa1!aaaa"}`
	login := `{"email":"abebe@example.com","password":"Aa1!aaaa"}`

	rec := doJSON(e, http.MethodPost, "/signup", signup)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "Check Email Inbox to verify", decode(t, rec)["message"])
	require.Len(t, mail.links, 1)

	rec = doJSON(e, http.MethodPost, "/login", login)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode(t, rec)
	require.Equal(t, "fail", body["status"])
	require.Equal(t, service.MsgVerifyFirst, body["message"])

	token := mail.links[0][strings.Index(mail.links[0], "token=")+len("token="):]
	rec = doJSON(e, http.MethodGet, "/verify-email/"+token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodPost, "/login", login)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	require.Equal(t, "user", body["role"])
	require.NotEmpty(t, body["token"])
	require.NotContains(t, rec.Body.String(), "password")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	session := cookies[0]
	require.Equal(t, middleware.SessionCookie, session.Name)
	require.True(t, session.HttpOnly)
	require.False(t, session.Secure)
	require.Equal(t, http.SameSiteLaxMode, session.SameSite)

	rec = doJSON(e, http.MethodGet, "/me", "", session)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "abebe@example.com")

	rec = doJSON(e, http.MethodGet, "/me", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, service.MsgMustLogin, decode(t, rec)["message"])
}

func TestSignupRejectsBadInput(t *testing.T) {
	e, mail := newAuthServer(t)

	rec := doJSON(e, http.MethodPost, "/signup", `{"name":"A","email":"not-an-email","password":"weak","confirmPassword":"weak"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, mail.links)

	rec = doJSON(e, http.MethodPost, "/signup", `{"name":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutClearsCookie(t *testing.T) {
	e, _ := newAuthServer(t)
	rec := doJSON(e, http.MethodPost, "/logout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, middleware.SessionCookie, cookies[0].Name)
	require.Empty(t, cookies[0].Value)
	require.Less(t, cookies[0].MaxAge, 0)
}

func TestTranslate(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		prod   bool
		status int
		word   string
		msg    string
	}{
		{"not found", apperr.NotFound("No tour found with that ID"), true, 404, "fail", "No tour found with that ID"},
		{"conflict", apperr.Conflict("User Already Exist"), true, 409, "fail", "User Already Exist"},
		{"rate limit", apperr.RateLimit("slow down"), true, 429, "fail", "slow down"},
		{"external", apperr.External("mail down"), true, 500, "error", "mail down"},
		{"echo", echo.NewHTTPError(http.StatusMethodNotAllowed, "Method Not Allowed"), true, 405, "fail", "Method Not Allowed"},
		{"unknown prod", errors.New("dial tcp: refused"), true, 500, "error", MsgUnexpected},
		{"unknown dev", errors.New("dial tcp: refused"), false, 500, "error", "dial tcp: refused"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := translate(tc.err, tc.prod)
			require.Equal(t, tc.status, status)
			require.Equal(t, tc.word, body.Status)
			require.Equal(t, tc.msg, body.Message)
		})
	}

	_, body := translate(apperr.Validation("bad", errors.New("cause")), true)
	require.Empty(t, body.Error)
	_, body = translate(apperr.Validation("bad", errors.New("cause")), false)
	require.Equal(t, "cause", body.Error)
}

type listTours struct {
	service.TourStore
	lq repository.ListQuery
}

func (l *listTours) List(ctx context.Context, lq repository.ListQuery) ([]model.Tour, error) {
	l.lq = lq
	return []model.Tour{{ID: 1, Name: "The Forest Hiker", Price: 397, RatingsAverage: 4.8, Summary: "Breathtaking hike", Difficulty: "easy", Duration: 5}}, nil
}

func TestTopFiveCheapOverridesQuery(t *testing.T) {
	store := &listTours{}
	h := NewTourHandler(service.NewTourService(store, nil))
	e := echo.New()
	e.HTTPErrorHandler = NewErrorHandler(config.Config{Env: "development"})
	e.GET("/tours/top-5-cheap", h.TopFiveCheap)
	e.GET("/tours/distances/:latlng/unit/:unit", h.Distances)

	rec := doJSON(e, http.MethodGet, "/tours/top-5-cheap?limit=50&sort=name", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 5, store.lq.Limit)
	require.Equal(t, []repository.SortField{{Column: "t.ratings_average", Desc: true}, {Column: "t.price"}}, store.lq.Sort)

	body := decode(t, rec)
	require.Equal(t, float64(1), body["results"])
	tour := body["data"].(map[string]any)["tours"].([]any)[0].(map[string]any)
	require.Equal(t, "The Forest Hiker", tour["name"])
	require.NotContains(t, tour, "duration")

	rec = doJSON(e, http.MethodGet, "/tours/distances/34.1,-118.1/unit/yd", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, service.MsgUnit, decode(t, rec)["message"])
}
