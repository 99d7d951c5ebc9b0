package store

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"regportal/pkg/domain"
)

// GormStore implements Store using GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens a Postgres connection and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return NewGormStoreWithDB(db)
}

// NewGormStoreWithDB wraps an already open connection. Tests use this with
// the sqlite driver.
func NewGormStoreWithDB(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&UserModel{}, &ApplicationModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// SaveUser inserts a user. The unique index on email rejects duplicates
// that slip past the existence precheck.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Create(&model).Error
}

// HasUserEmail checks if an email is already registered.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// SaveApplication inserts a submitted application.
func (s *GormStore) SaveApplication(a domain.Application) error {
	model := applicationToModel(a)
	return s.db.Create(&model).Error
}

// ListApplications returns one page of applications, newest last, filtered
// by a case-insensitive substring match on the full name. Pages are
// 1-based; a page past the end yields an empty page, not an error.
func (s *GormStore) ListApplications(search string, page, pageSize int) (domain.ApplicationPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	tx := s.db.Model(&ApplicationModel{})
	if search != "" {
		tx = tx.Where("lower(full_name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return domain.ApplicationPage{}, err
	}
	var models []ApplicationModel
	if err := tx.Order("created_at ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error; err != nil {
		return domain.ApplicationPage{}, err
	}
	items := make([]domain.Application, 0, len(models))
	for _, m := range models {
		items = append(items, applicationFromModel(m))
	}
	return domain.ApplicationPage{
		Items:      items,
		Page:       page,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

// GetApplicationByRegID finds an application by its public registration ID.
func (s *GormStore) GetApplicationByRegID(regID string) (domain.Application, bool, error) {
	var model ApplicationModel
	if err := s.db.Where("registration_id = ?", regID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Application{}, false, nil
		}
		return domain.Application{}, false, err
	}
	return applicationFromModel(model), true, nil
}

// GetApplication retrieves an application by internal ID.
func (s *GormStore) GetApplication(id string) (domain.Application, bool, error) {
	var model ApplicationModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Application{}, false, nil
		}
		return domain.Application{}, false, err
	}
	return applicationFromModel(model), true, nil
}

// UpdateApplication overwrites the owner-entered fields and replaces file
// references only when new ones were supplied. RegistrationID is never
// touched.
func (s *GormStore) UpdateApplication(id string, upd ApplicationUpdate) (domain.Application, bool, error) {
	fields := map[string]any{
		"full_name":     upd.FullName,
		"father_name":   upd.FatherName,
		"date_of_birth": upd.DateOfBirth,
		"gender":        string(upd.Gender),
		"category":      upd.Category,
		"mobile":        upd.Mobile,
		"email":         upd.Email,
		"graduation":    upd.Graduation,
		"percentage":    upd.Percentage,
		"passing_year":  upd.PassingYear,
		"updated_at":    time.Now().UTC(),
	}
	if upd.PhotoRef != nil {
		fields["photo_ref"] = *upd.PhotoRef
	}
	if upd.SignatureRef != nil {
		fields["signature_ref"] = *upd.SignatureRef
	}
	res := s.db.Model(&ApplicationModel{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return domain.Application{}, false, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.Application{}, false, nil
	}
	return s.GetApplication(id)
}

// DeleteApplication removes an application. The bool reports whether a
// record existed.
func (s *GormStore) DeleteApplication(id string) (bool, error) {
	res := s.db.Delete(&ApplicationModel{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func totalPages(total int64, pageSize int) int {
	if total == 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
	}
}

func applicationToModel(a domain.Application) ApplicationModel {
	return ApplicationModel{
		ID:             a.ID,
		RegistrationID: a.RegistrationID,
		FullName:       a.FullName,
		FatherName:     a.FatherName,
		DateOfBirth:    a.DateOfBirth,
		Gender:         string(a.Gender),
		Category:       a.Category,
		Mobile:         a.Mobile,
		Email:          a.Email,
		Graduation:     a.Graduation,
		Percentage:     a.Percentage,
		PassingYear:    a.PassingYear,
		PhotoRef:       a.PhotoRef,
		SignatureRef:   a.SignatureRef,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func applicationFromModel(m ApplicationModel) domain.Application {
	return domain.Application{
		ID:             m.ID,
		RegistrationID: m.RegistrationID,
		FullName:       m.FullName,
		FatherName:     m.FatherName,
		DateOfBirth:    m.DateOfBirth,
		Gender:         domain.Gender(m.Gender),
		Category:       m.Category,
		Mobile:         m.Mobile,
		Email:          m.Email,
		Graduation:     m.Graduation,
		Percentage:     m.Percentage,
		PassingYear:    m.PassingYear,
		PhotoRef:       m.PhotoRef,
		SignatureRef:   m.SignatureRef,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
