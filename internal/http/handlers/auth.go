package handlers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"stella/internal/infra"
	"stella/internal/middleware"
	"stella/internal/users"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userDTO struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

func (a *App) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Username == "" || req.Password == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "username and password required")
		return
	}
	user, err := a.Users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			a.error(w, http.StatusUnauthorized, "unauthorized", "invalid username or password")
			return
		}
		a.Logger.Error().Err(err).Msg("authenticate failed")
		a.error(w, http.StatusInternalServerError, "internal", "login failed")
		return
	}

	token, err := middleware.SignToken(a.Config.JWTSecret, middleware.TokenClaims{
		Sub:      user.ID,
		Username: user.Username,
		Exp:      time.Now().Add(middleware.SessionMaxAge).Unix(),
		Iat:      time.Now().Unix(),
	})
	if err != nil {
		a.Logger.Error().Err(err).Msg("sign token failed")
		a.error(w, http.StatusInternalServerError, "internal", "login failed")
		return
	}
	http.SetCookie(w, middleware.NewSessionCookie(token, middleware.SessionMaxAge, a.Config.Production()))

	a.auditLogin(r, user)
	a.json(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    userDTO{ID: user.ID, Username: user.Username, Email: user.Email},
	})
}

// auditLogin records who signed in and from which country when a GeoIP
// database is configured.
func (a *App) auditLogin(r *http.Request, user *users.User) {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	evt := a.Logger.Info().Str("username", user.Username).Str("ip", ip)
	if a.Geo != nil {
		if country, err := a.Geo.CountryCode(ip); err == nil && country != "" {
			evt = evt.Str("country", country)
		}
	}
	evt.Msg("user logged in")
}

func (a *App) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, middleware.NewSessionCookie("", 0, a.Config.Production()))
	a.json(w, http.StatusOK, map[string]any{"success": true})
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

func (a *App) UsersList(w http.ResponseWriter, r *http.Request) {
	list, err := a.Users.List(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("list users failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list users")
		return
	}
	out := make([]userDTO, 0, len(list))
	for _, u := range list {
		out = append(out, userDTO{ID: u.ID, Username: u.Username, Email: u.Email})
	}
	a.json(w, http.StatusOK, map[string]any{"users": out})
}

func (a *App) UserCreate(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Username == "" || req.Password == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "username and password required")
		return
	}
	user, err := a.Users.Create(r.Context(), req.Username, req.Password, req.Email)
	if err != nil {
		if errors.Is(err, users.ErrUsernameTaken) {
			a.error(w, http.StatusConflict, "conflict", "username already exists")
			return
		}
		a.Logger.Error().Err(err).Msg("create user failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create user")
		return
	}
	a.json(w, http.StatusCreated, map[string]any{
		"success": true,
		"user":    userDTO{ID: user.ID, Username: user.Username, Email: user.Email},
	})
}

func (a *App) UserDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid user id")
		return
	}
	user, err := a.Users.Delete(r.Context(), id)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "user not found")
			return
		}
		a.Logger.Error().Err(err).Msg("delete user failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to delete user")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    userDTO{ID: user.ID, Username: user.Username, Email: user.Email},
	})
}

// InitDB applies pending schema migrations. Admin key protected; intended
// for first-boot provisioning, the userctl tool covers the same ground.
func (a *App) InitDB(w http.ResponseWriter, r *http.Request) {
	if err := infra.RunMigrations(a.Config.DatabaseURL); err != nil {
		a.Logger.Error().Err(err).Msg("migrations failed")
		a.error(w, http.StatusInternalServerError, "internal", "migration failed")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"success": true})
}
