// Package server is the HTTP surface of the portal: routing, the session
// cookie gate, multipart parsing, and template rendering. All domain
// decisions live in internal/app; this layer only translates between HTTP
// and the app's results.
package server

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"regportal/internal/app"
	"regportal/internal/util"
	"regportal/internal/validate"
	"regportal/pkg/domain"
)

const (
	sessionCookieName = "session_token"
	multipartMemLimit = 32 << 20
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	SessionTTL     time.Duration
	MaxUploadBytes int64
	// UploadDir, when set, is served read-only at /uploads/ so locally
	// stored photo and signature references resolve.
	UploadDir string
	// Production suppresses internal error details in 500 responses.
	Production bool
}

// Server exposes the portal's HTTP endpoints.
type Server struct {
	app            *app.App
	templates      *template.Template
	mux            *http.ServeMux
	sessionTTL     time.Duration
	maxUploadBytes int64
	production     bool
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 * 1024 * 1024
	}
	s := &Server{
		app:            cfg.App,
		templates:      tmpl,
		mux:            http.NewServeMux(),
		sessionTTL:     cfg.SessionTTL,
		maxUploadBytes: cfg.MaxUploadBytes,
		production:     cfg.Production,
	}
	s.routes(cfg.UploadDir)
	return s, nil
}

// Router returns the configured handler with the middleware chain applied.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(s.recovered(s.mux))))
}

func (s *Server) routes(uploadDir string) {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("GET /{$}", s.handleIndex)

	s.mux.HandleFunc("GET /signup", s.handleSignupForm)
	s.mux.HandleFunc("POST /signup", s.handleSignup)
	s.mux.HandleFunc("GET /login", s.handleLoginForm)
	s.mux.HandleFunc("POST /login", s.handleLogin)
	s.mux.HandleFunc("GET /logout", s.handleLogout)

	s.mux.HandleFunc("GET /admitcard/{registrationId}", s.handleAdmitCard)

	// gated routes
	s.mux.Handle("GET /apply", s.gated(s.handleApplyForm))
	s.mux.Handle("POST /apply", s.gated(s.handleApply))
	s.mux.Handle("GET /edit/{id}", s.gated(s.handleEditForm))
	s.mux.Handle("POST /edit/{id}", s.gated(s.handleEdit))
	s.mux.Handle("POST /delete/{id}", s.gated(s.handleDelete))

	if uploadDir != "" {
		s.mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadDir))))
	}
}

// recovered is the last-resort handler: a panic this deep means the
// process cannot assume it is still consistent, so it is logged and
// re-raised to take the process down.
func (s *Server) recovered(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("unhandled panic", "path", r.URL.Path, "panic", rec)
				panic(rec)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// session gate

type gatedHandler func(http.ResponseWriter, *http.Request, domain.Session)

// gated redirects to the login page when no live session accompanies the
// request. Gated pages never answer 401; the redirect is the contract.
func (s *Server) gated(next gatedHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _, ok := s.sessionFromRequest(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r, sess)
	})
}

func (s *Server) sessionFromRequest(r *http.Request) (domain.Session, string, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return domain.Session{}, "", false
	}
	sess, ok := s.app.SessionFromToken(cookie.Value)
	if !ok {
		return domain.Session{}, "", false
	}
	return sess, cookie.Value, true
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// handlers

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "ok")
}

type indexView struct {
	Persons     []domain.Application
	Search      string
	CurrentPage int
	TotalPages  int
	IsLoggedIn  bool
	UserEmail   string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			page = n
		}
	}
	result, err := s.app.ListApplications(search, page)
	if err != nil {
		s.serverError(w, r, err, "An error occurred while fetching applications. Please try again.")
		return
	}
	sess, _, loggedIn := s.sessionFromRequest(r)
	s.render(w, r, http.StatusOK, "index.html", indexView{
		Persons:     result.Items,
		Search:      search,
		CurrentPage: result.Page,
		TotalPages:  result.TotalPages,
		IsLoggedIn:  loggedIn,
		UserEmail:   sess.Email,
	})
}

func (s *Server) handleSignupForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "signup.html", nil)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	_, token, err := s.app.SignUp(
		r.FormValue("email"),
		r.FormValue("password"),
		r.FormValue("confirmPassword"),
	)
	if err != nil {
		var vErr *validate.Error
		switch {
		case errors.As(err, &vErr):
			s.writeError(w, http.StatusBadRequest, vErr.Message)
		case errors.Is(err, app.ErrEmailTaken):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.serverError(w, r, err, "An error occurred during signup. Please try again.")
		}
		return
	}
	s.setSessionCookie(w, token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login.html", nil)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	_, token, err := s.app.Login(r.FormValue("email"), r.FormValue("password"))
	if err != nil {
		var vErr *validate.Error
		switch {
		case errors.As(err, &vErr):
			s.writeError(w, http.StatusBadRequest, vErr.Message)
		case errors.Is(err, app.ErrInvalidCredentials):
			s.writeError(w, http.StatusUnauthorized, err.Error())
		default:
			s.serverError(w, r, err, "An error occurred during login. Please try again.")
		}
		return
	}
	s.setSessionCookie(w, token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if _, token, ok := s.sessionFromRequest(r); ok {
		if err := s.app.Logout(token); err != nil {
			util.LoggerFromContext(r.Context()).Warn("logout failed", "err", err)
		}
	}
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleApplyForm(w http.ResponseWriter, r *http.Request, _ domain.Session) {
	s.render(w, r, http.StatusOK, "application.html", nil)
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request, _ domain.Session) {
	form, photo, signature, ok := s.parseApplicationForm(w, r)
	if !ok {
		return
	}
	application, err := s.app.SubmitApplication(r.Context(), form, photo, signature)
	if err != nil {
		var vErr *validate.Error
		if errors.As(err, &vErr) {
			s.writeError(w, http.StatusBadRequest, vErr.Message)
			return
		}
		s.serverError(w, r, err, "An error occurred while processing your application. Please try again.")
		return
	}
	s.render(w, r, http.StatusOK, "success.html", struct{ Applicant domain.Application }{application})
}

func (s *Server) handleAdmitCard(w http.ResponseWriter, r *http.Request) {
	regID := r.PathValue("registrationId")
	applicant, err := s.app.AdmitCard(regID)
	if err != nil {
		if errors.Is(err, app.ErrNotFound) {
			// The miss renders as a normal page, not a 404.
			s.render(w, r, http.StatusOK, "admitcard.html", admitCardView{NotFound: true})
			return
		}
		s.serverError(w, r, err, "An error occurred while loading the admit card. Please try again.")
		return
	}
	s.render(w, r, http.StatusOK, "admitcard.html", admitCardView{Applicant: applicant})
}

type admitCardView struct {
	Applicant domain.Application
	NotFound  bool
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request, _ domain.Session) {
	person, err := s.app.GetApplication(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, app.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "Application not found")
			return
		}
		s.serverError(w, r, err, "An error occurred while loading the application. Please try again.")
		return
	}
	s.render(w, r, http.StatusOK, "edit.html", struct{ Person domain.Application }{person})
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request, _ domain.Session) {
	form, photo, signature, ok := s.parseApplicationForm(w, r)
	if !ok {
		return
	}
	_, err := s.app.UpdateApplication(r.Context(), r.PathValue("id"), form, photo, signature)
	if err != nil {
		var vErr *validate.Error
		switch {
		case errors.As(err, &vErr):
			s.writeError(w, http.StatusBadRequest, vErr.Message)
		case errors.Is(err, app.ErrNotFound):
			s.writeError(w, http.StatusNotFound, "Application not found")
		default:
			s.serverError(w, r, err, "An error occurred while updating the application. Please try again.")
		}
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, _ domain.Session) {
	if err := s.app.DeleteApplication(r.PathValue("id")); err != nil {
		if errors.Is(err, app.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "Application not found")
			return
		}
		s.serverError(w, r, err, "An error occurred while deleting the application. Please try again.")
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// parseApplicationForm reads the multipart body shared by apply and edit.
// Missing file parts come back nil; the app layer decides whether they
// are required.
func (s *Server) parseApplicationForm(w http.ResponseWriter, r *http.Request) (app.ApplicationForm, *app.Upload, *app.Upload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemLimit); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid form data")
		return app.ApplicationForm{}, nil, nil, false
	}
	form := app.ApplicationForm{
		FullName:    r.FormValue("fullName"),
		FatherName:  r.FormValue("fatherName"),
		DateOfBirth: r.FormValue("dob"),
		Gender:      r.FormValue("gender"),
		Category:    r.FormValue("category"),
		Mobile:      r.FormValue("mobile"),
		Email:       r.FormValue("email"),
		Graduation:  r.FormValue("graduation"),
		Percentage:  r.FormValue("percentage"),
		PassingYear: r.FormValue("passingYear"),
	}
	photo, ok := s.formUpload(w, r, "photo")
	if !ok {
		return app.ApplicationForm{}, nil, nil, false
	}
	signature, ok := s.formUpload(w, r, "signature")
	if !ok {
		return app.ApplicationForm{}, nil, nil, false
	}
	return form, photo, signature, true
}

func (s *Server) formUpload(w http.ResponseWriter, r *http.Request, field string) (*app.Upload, bool) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, true
	}
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid file part "+field)
		return nil, false
	}
	// The handler body finishes before ParseMultipartForm cleanup runs,
	// so the part stays readable for the upload backend.
	return &app.Upload{
		Filename:    header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Reader:      file,
	}, true
}

// rendering

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		util.LoggerFromContext(r.Context()).Error("render failed", "template", name, "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	http.Error(w, msg, status)
}

// serverError logs the real cause and answers with a safe message. In
// production the per-route message is replaced by a generic one.
func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	util.LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
	if s.production {
		msg = "An error occurred. Please try again later."
	}
	s.writeError(w, http.StatusInternalServerError, msg)
}
