package domain

import "time"

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Application is a submitted registration record. RegistrationID is the
// public lookup key for admit cards and is immutable once set; ID is the
// internal key used by edit and delete.
type Application struct {
	ID             string    `json:"id"`
	RegistrationID string    `json:"registrationId"`
	FullName       string    `json:"fullName"`
	FatherName     string    `json:"fatherName"`
	DateOfBirth    string    `json:"dob"`
	Gender         Gender    `json:"gender"`
	Category       string    `json:"category"`
	Mobile         string    `json:"mobile"`
	Email          string    `json:"email"`
	Graduation     string    `json:"graduation"`
	Percentage     float64   `json:"percentage"`
	PassingYear    int       `json:"passingYear"`
	PhotoRef       string    `json:"photo"`
	SignatureRef   string    `json:"signature"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// User is an identity record. The password is held only as a bcrypt hash.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Session is the server-side state behind a session cookie.
type Session struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// ApplicationPage is one page of a filtered listing.
type ApplicationPage struct {
	Items      []Application `json:"items"`
	Page       int           `json:"page"`
	TotalPages int           `json:"totalPages"`
}
