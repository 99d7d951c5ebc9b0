package store

import "regportal/pkg/domain"

// ApplicationUpdate carries the fields written by the edit flow. All text
// fields are overwritten; the file references are replaced only when the
// pointer is non-nil, so an edit without a new upload keeps the stored one.
type ApplicationUpdate struct {
	FullName     string
	FatherName   string
	DateOfBirth  string
	Gender       domain.Gender
	Category     string
	Mobile       string
	Email        string
	Graduation   string
	Percentage   float64
	PassingYear  int
	PhotoRef     *string
	SignatureRef *string
}

// Store defines persistence operations for users and applications.
// Absence is reported through the bool return, distinct from storage errors.
type Store interface {
	// users
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)

	// applications
	SaveApplication(domain.Application) error
	ListApplications(search string, page, pageSize int) (domain.ApplicationPage, error)
	GetApplicationByRegID(regID string) (domain.Application, bool, error)
	GetApplication(id string) (domain.Application, bool, error)
	UpdateApplication(id string, upd ApplicationUpdate) (domain.Application, bool, error)
	DeleteApplication(id string) (bool, error)
}

// SessionStore persists session tokens with a TTL.
type SessionStore interface {
	NewSession(userID, email string) (string, error)
	GetSession(token string) (domain.Session, bool, error)
	DeleteSession(token string) error
}
