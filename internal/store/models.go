package store

import "time"

// GORM models used for persistence. RegistrationID and Email carry real
// unique indexes as a backstop behind the handler-level existence checks.
type UserModel struct {
	ID           string    `gorm:"primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (UserModel) TableName() string { return "users" }

type ApplicationModel struct {
	ID             string `gorm:"primaryKey"`
	RegistrationID string `gorm:"uniqueIndex;not null"`
	FullName       string `gorm:"not null;index"`
	FatherName     string
	DateOfBirth    string
	Gender         string
	Category       string
	Mobile         string
	Email          string
	Graduation     string
	Percentage     float64
	PassingYear    int
	PhotoRef       string
	SignatureRef   string
	CreatedAt      time.Time `gorm:"not null;index"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (ApplicationModel) TableName() string { return "applications" }
