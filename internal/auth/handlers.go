package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aliuyar1234/taskboard/internal/apperrors"
	"github.com/aliuyar1234/taskboard/internal/users"
	"github.com/aliuyar1234/taskboard/internal/validation"
	"github.com/rs/zerolog/log"
)

// ErrInvalidCredentials is returned for an unknown login or a wrong password
var ErrInvalidCredentials error = &apperrors.Error{
	Kind:    apperrors.KindUnauthorized,
	Message: "Invalid credentials",
	Status:  http.StatusUnauthorized,
}

// Options configures session issuing
type Options struct {
	JWTSecret    string
	SessionDays  int
	BcryptCost   int
	IsProduction bool
}

// SignupRequest represents the signup request payload
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email,max=320"`
	Nick     string `json:"nick" validate:"required,min=3,max=30,excludesall=@ "`
	Name     string `json:"name" validate:"required,max=20"`
	Surname  string `json:"surname" validate:"required,max=30"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest represents the login request payload. Login is an email when
// it contains '@' and a nick otherwise.
type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// StatusResponse reports whether the caller holds a valid session
type StatusResponse struct {
	Logged bool      `json:"logged"`
	Me     *users.Me `json:"me"`
}

// HandleSignup processes user registration
func HandleSignup(svc *users.Service, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignupRequest
		if err := validation.DecodeJSON(r, &req); err != nil {
			apperrors.Write(w, r, err)
			return
		}

		passwordHash, err := HashPassword(req.Password, opts.BcryptCost)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}

		me, err := svc.Create(r.Context(), users.NewUser{
			Email:        strings.ToLower(strings.TrimSpace(req.Email)),
			Nick:         strings.TrimSpace(req.Nick),
			Name:         strings.TrimSpace(req.Name),
			Surname:      strings.TrimSpace(req.Surname),
			PasswordHash: passwordHash,
		})
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}

		if !issueSession(w, r, me.ID, opts) {
			return
		}

		log.Info().
			Int64("user_id", me.ID).
			Str("nick", me.Nick).
			Msg("User signed up successfully")

		apperrors.WriteSuccess(w, r, http.StatusCreated, me)
	}
}

// HandleLogin processes user authentication
func HandleLogin(svc *users.Service, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := validation.DecodeJSON(r, &req); err != nil {
			apperrors.Write(w, r, err)
			return
		}

		login := strings.TrimSpace(req.Login)
		if strings.Contains(login, "@") {
			login = strings.ToLower(login)
		}

		creds, err := svc.FindCredentials(r.Context(), login)
		if err != nil {
			if errors.Is(err, users.ErrUserNotFound) {
				log.Debug().Str("login", login).Msg("Login failed: user not found")
				apperrors.Write(w, r, ErrInvalidCredentials)
				return
			}
			apperrors.Write(w, r, err)
			return
		}

		if err := VerifyPassword(creds.PasswordHash, req.Password); err != nil {
			log.Debug().Int64("user_id", creds.ID).Msg("Login failed: wrong password")
			apperrors.Write(w, r, ErrInvalidCredentials)
			return
		}

		if !issueSession(w, r, creds.ID, opts) {
			return
		}

		log.Info().Int64("user_id", creds.ID).Msg("User logged in successfully")

		apperrors.WriteSuccess(w, r, http.StatusOK, creds.Me)
	}
}

// HandleLogout clears the session cookie
func HandleLogout(w http.ResponseWriter, r *http.Request) {
	ClearSessionCookie(w)

	if id, ok := IdentityFromContext(r.Context()); ok {
		log.Info().Int64("user_id", id.UserID).Msg("User logged out")
	}

	apperrors.WriteSuccess(w, r, http.StatusOK, StatusResponse{Logged: false})
}

// HandleStatus reports the session state without failing on a missing or
// invalid session.
func HandleStatus(svc *users.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			apperrors.WriteSuccess(w, r, http.StatusOK, StatusResponse{Logged: false})
			return
		}

		me, err := svc.GetMe(r.Context(), id.UserID)
		if err != nil {
			if errors.Is(err, users.ErrUserNotFound) {
				// Token outlived its user
				ClearSessionCookie(w)
				apperrors.WriteSuccess(w, r, http.StatusOK, StatusResponse{Logged: false})
				return
			}
			apperrors.Write(w, r, err)
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, StatusResponse{Logged: true, Me: me})
	}
}

// HandleCSRFToken issues a fresh double-submit token
func HandleCSRFToken(isProduction bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := GenerateCSRFToken()
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		SetCSRFCookie(w, token, isProduction)
		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]string{"csrf_token": token})
	}
}

func issueSession(w http.ResponseWriter, r *http.Request, userID int64, opts Options) bool {
	token, err := CreateToken(userID, opts.JWTSecret, opts.SessionDays)
	if err != nil {
		apperrors.Write(w, r, err)
		return false
	}
	SetSessionCookie(w, token, opts.SessionDays, opts.IsProduction)
	return true
}
