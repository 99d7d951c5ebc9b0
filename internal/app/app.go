// Package app is the orchestration layer: it validates submitted input,
// drives the upload backend, and talks to the record and session stores.
// HTTP concerns stay in internal/server.
package app

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"regportal/internal/config"
	"regportal/internal/storage"
	"regportal/internal/store"
	"regportal/internal/validate"
	"regportal/pkg/auth"
	"regportal/pkg/domain"
)

// DefaultPageSize is how many applications the listing shows per page.
const DefaultPageSize = 5

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	SessionSecret string
	SessionTTL    time.Duration
	UploadDir     string
	Minio         config.MinioConfig
	PageSize      int

	// Injection points for tests; when nil, the URL/addr fields above
	// decide which implementation is built.
	Store    store.Store
	Sessions store.SessionStore
	Files    storage.BlobStore
}

// App wires the record store, session store, and upload backend together.
type App struct {
	store    store.Store
	sessions store.SessionStore
	files    storage.BlobStore
	pageSize int
}

// New constructs the application. Sessions prefer Redis when an address
// is configured and fall back to stateless signed tokens; uploads go to
// MinIO when an endpoint is configured and to local disk otherwise.
func New(cfg Config) (*App, error) {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = DefaultPageSize
	}

	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	sessionStore := cfg.Sessions
	if sessionStore == nil {
		switch {
		case cfg.RedisAddr != "":
			sessionStore = store.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, cfg.SessionTTL)
		case cfg.SessionSecret != "":
			sessionStore = store.NewJWTSessionStore(cfg.SessionSecret, cfg.SessionTTL)
		default:
			return nil, fmt.Errorf("session store required (redisAddr or sessionSecret)")
		}
	}

	blobStore := cfg.Files
	if blobStore == nil {
		var err error
		if cfg.Minio.Endpoint != "" {
			blobStore, err = storage.NewMinioStore(
				cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey,
				cfg.Minio.Bucket, cfg.Minio.PublicBaseURL, cfg.Minio.UseSSL)
			if err != nil {
				return nil, fmt.Errorf("init object store: %w", err)
			}
		} else {
			blobStore, err = storage.NewFileStore(cfg.UploadDir)
			if err != nil {
				return nil, fmt.Errorf("init file store: %w", err)
			}
		}
	}

	return &App{
		store:    dataStore,
		sessions: sessionStore,
		files:    blobStore,
		pageSize: cfg.PageSize,
	}, nil
}

// Files exposes the upload backend so the server can serve local uploads.
func (a *App) Files() storage.BlobStore { return a.files }

// SignUp registers a new user and starts a session (auto-login).
func (a *App) SignUp(email, password, confirm string) (domain.User, string, error) {
	email = strings.TrimSpace(email)
	if err := validate.Required([]validate.Field{
		{Name: "email", Value: email},
		{Name: "password", Value: password},
		{Name: "confirmPassword", Value: confirm},
	}); err != nil {
		return domain.User{}, "", err
	}
	if err := validate.Email(email); err != nil {
		return domain.User{}, "", err
	}
	if err := validate.Password(password); err != nil {
		return domain.User{}, "", err
	}
	if err := validate.PasswordsMatch(password, confirm); err != nil {
		return domain.User{}, "", err
	}
	// Check-then-insert: two simultaneous signups can both pass this
	// lookup. The unique index on email turns the loser into an error
	// instead of a duplicate row.
	exists, err := a.store.HasUserEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("check email: %w", err)
	}
	if exists {
		return domain.User{}, "", ErrEmailTaken
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", err
	}
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, "", fmt.Errorf("save user: %w", err)
	}
	token, err := a.sessions.NewSession(user.ID, user.Email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, token, nil
}

// Login validates credentials and issues a session token.
func (a *App) Login(email, password string) (domain.User, string, error) {
	email = strings.TrimSpace(email)
	if err := validate.Required([]validate.Field{
		{Name: "email", Value: email},
		{Name: "password", Value: password},
	}); err != nil {
		return domain.User{}, "", err
	}
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, "", ErrInvalidCredentials
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	token, err := a.sessions.NewSession(user.ID, user.Email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, token, nil
}

// SessionFromToken resolves a session token. Absent, expired, or invalid
// tokens report false without an error.
func (a *App) SessionFromToken(token string) (domain.Session, bool) {
	sess, ok, err := a.sessions.GetSession(token)
	if err != nil || !ok {
		return domain.Session{}, false
	}
	return sess, true
}

// Logout removes a session token.
func (a *App) Logout(token string) error {
	return a.sessions.DeleteSession(token)
}

// ApplicationForm carries the raw text fields of an apply or edit
// submission. Numeric fields stay strings until validation parses them.
type ApplicationForm struct {
	FullName    string
	FatherName  string
	DateOfBirth string
	Gender      string
	Category    string
	Mobile      string
	Email       string
	Graduation  string
	Percentage  string
	PassingYear string
}

// Upload is one received multipart file part.
type Upload struct {
	Filename    string
	Size        int64
	ContentType string
	Reader      io.Reader
}

type parsedForm struct {
	percentage  float64
	passingYear int
	gender      domain.Gender
}

// checkForm runs the shared apply/edit validation gate and parses the
// numeric fields.
func checkForm(form ApplicationForm) (parsedForm, error) {
	if err := validate.Required([]validate.Field{
		{Name: "fullName", Value: form.FullName},
		{Name: "fatherName", Value: form.FatherName},
		{Name: "dob", Value: form.DateOfBirth},
		{Name: "gender", Value: form.Gender},
		{Name: "category", Value: form.Category},
		{Name: "mobile", Value: form.Mobile},
		{Name: "email", Value: form.Email},
		{Name: "graduation", Value: form.Graduation},
		{Name: "percentage", Value: form.Percentage},
		{Name: "passingYear", Value: form.PassingYear},
	}); err != nil {
		return parsedForm{}, err
	}
	if err := validate.Email(form.Email); err != nil {
		return parsedForm{}, err
	}
	if err := validate.Mobile(form.Mobile); err != nil {
		return parsedForm{}, err
	}
	percentage, err := strconv.ParseFloat(strings.TrimSpace(form.Percentage), 64)
	if err != nil {
		return parsedForm{}, &validate.Error{Message: "invalid percentage"}
	}
	passingYear, err := strconv.Atoi(strings.TrimSpace(form.PassingYear))
	if err != nil {
		return parsedForm{}, &validate.Error{Message: "invalid passing year"}
	}
	return parsedForm{
		percentage:  percentage,
		passingYear: passingYear,
		gender:      domain.Gender(strings.ToLower(strings.TrimSpace(form.Gender))),
	}, nil
}

// SubmitApplication validates a submission, stores both uploads, and
// persists the record. Nothing is uploaded or saved unless every check
// passes, and the record is only saved after both uploads succeed.
func (a *App) SubmitApplication(ctx context.Context, form ApplicationForm, photo, signature *Upload) (domain.Application, error) {
	parsed, err := checkForm(form)
	if err != nil {
		return domain.Application{}, err
	}
	if photo == nil || signature == nil {
		return domain.Application{}, &validate.Error{Message: "photo and signature uploads are required"}
	}

	photoRef, err := a.files.Put(ctx, "photo", photo.Filename, photo.Reader, photo.Size, photo.ContentType)
	if err != nil {
		return domain.Application{}, fmt.Errorf("store photo: %w", err)
	}
	signatureRef, err := a.files.Put(ctx, "signature", signature.Filename, signature.Reader, signature.Size, signature.ContentType)
	if err != nil {
		return domain.Application{}, fmt.Errorf("store signature: %w", err)
	}

	now := time.Now().UTC()
	application := domain.Application{
		ID:             uuid.NewString(),
		RegistrationID: NewRegistrationID(now),
		FullName:       form.FullName,
		FatherName:     form.FatherName,
		DateOfBirth:    form.DateOfBirth,
		Gender:         parsed.gender,
		Category:       form.Category,
		Mobile:         form.Mobile,
		Email:          form.Email,
		Graduation:     form.Graduation,
		Percentage:     parsed.percentage,
		PassingYear:    parsed.passingYear,
		PhotoRef:       photoRef,
		SignatureRef:   signatureRef,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := a.store.SaveApplication(application); err != nil {
		return domain.Application{}, fmt.Errorf("save application: %w", err)
	}
	return application, nil
}

// ListApplications returns one page of the (optionally filtered) listing.
func (a *App) ListApplications(search string, page int) (domain.ApplicationPage, error) {
	if page < 1 {
		page = 1
	}
	result, err := a.store.ListApplications(search, page, a.pageSize)
	if err != nil {
		return domain.ApplicationPage{}, fmt.Errorf("list applications: %w", err)
	}
	return result, nil
}

// AdmitCard looks up an application by its public registration ID.
func (a *App) AdmitCard(regID string) (domain.Application, error) {
	application, ok, err := a.store.GetApplicationByRegID(regID)
	if err != nil {
		return domain.Application{}, fmt.Errorf("lookup admit card: %w", err)
	}
	if !ok {
		return domain.Application{}, ErrNotFound
	}
	return application, nil
}

// GetApplication retrieves an application by internal ID for the edit form.
func (a *App) GetApplication(id string) (domain.Application, error) {
	application, ok, err := a.store.GetApplication(id)
	if err != nil {
		return domain.Application{}, fmt.Errorf("get application: %w", err)
	}
	if !ok {
		return domain.Application{}, ErrNotFound
	}
	return application, nil
}

// UpdateApplication overwrites the text fields of an existing record and
// replaces the stored images only when new uploads are supplied.
func (a *App) UpdateApplication(ctx context.Context, id string, form ApplicationForm, photo, signature *Upload) (domain.Application, error) {
	parsed, err := checkForm(form)
	if err != nil {
		return domain.Application{}, err
	}
	// Confirm the record exists before writing any bytes, so a stale edit
	// cannot leave orphaned uploads behind.
	if _, ok, err := a.store.GetApplication(id); err != nil {
		return domain.Application{}, fmt.Errorf("get application: %w", err)
	} else if !ok {
		return domain.Application{}, ErrNotFound
	}

	upd := store.ApplicationUpdate{
		FullName:    form.FullName,
		FatherName:  form.FatherName,
		DateOfBirth: form.DateOfBirth,
		Gender:      parsed.gender,
		Category:    form.Category,
		Mobile:      form.Mobile,
		Email:       form.Email,
		Graduation:  form.Graduation,
		Percentage:  parsed.percentage,
		PassingYear: parsed.passingYear,
	}
	if photo != nil {
		ref, err := a.files.Put(ctx, "photo", photo.Filename, photo.Reader, photo.Size, photo.ContentType)
		if err != nil {
			return domain.Application{}, fmt.Errorf("store photo: %w", err)
		}
		upd.PhotoRef = &ref
	}
	if signature != nil {
		ref, err := a.files.Put(ctx, "signature", signature.Filename, signature.Reader, signature.Size, signature.ContentType)
		if err != nil {
			return domain.Application{}, fmt.Errorf("store signature: %w", err)
		}
		upd.SignatureRef = &ref
	}

	updated, ok, err := a.store.UpdateApplication(id, upd)
	if err != nil {
		return domain.Application{}, fmt.Errorf("update application: %w", err)
	}
	if !ok {
		return domain.Application{}, ErrNotFound
	}
	return updated, nil
}

// DeleteApplication removes a record. Old uploads stay in storage; only
// the record's references to them are dropped.
func (a *App) DeleteApplication(id string) error {
	ok, err := a.store.DeleteApplication(id)
	if err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
