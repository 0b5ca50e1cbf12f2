package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/udsonbraga/safelady/server/auth"
	"gorm.io/gorm"
)

const (
	FREE_TIER_MAX_CONTACTS    = 1
	PREMIUM_TIER_MAX_CONTACTS = 5
)

var (
	allFieldsExceptPassword = []string{"id",
		"name",
		"email",
		"role_id",
		"is_premium",
		"disguise_password",
		"last_alert_at",
		"created_at",
		"updated_at",
	}

	updatableFields = []string{"name",
		"password",
		"is_premium",
		"disguise_password",
	}
)

type User struct {
	BaseModel
	Name             string            `json:"name" validate:"required"`
	Email            string            `json:"email" validate:"required,email" gorm:"not null;unique"`
	Password         string            `json:"password,omitempty" validate:"required,password" gorm:"not null"`
	RoleID           uint              `json:"role_id" gorm:"null"`
	IsPremium        bool              `json:"is_premium" gorm:"default:false"`
	DisguisePassword string            `json:"disguise_password,omitempty"`
	LastAlertAt      *time.Time        `json:"last_alert_at,omitempty"`
	TriggerSetting   *TriggerSetting   `json:"trigger_setting,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Contacts         []Contact         `json:"contacts,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Alerts           []EmergencyAlert  `json:"alerts,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	DiaryEntries     []DiaryEntry      `json:"diary_entries,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Products         []DisguiseProduct `json:"products,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// MaxContacts is the trusted-contact cap for the user's tier. Enforced at
// the API layer only, mirroring the mobile client's premium gate.
func (user *User) MaxContacts() int {
	if user.IsPremium {
		return PREMIUM_TIER_MAX_CONTACTS
	}
	return FREE_TIER_MAX_CONTACTS
}

func (user *User) Update(data map[string]interface{}) error {
	if data["password"] != nil {
		passwordHash, err := auth.HashPassword(data["password"].(string))
		if err != nil {
			return err
		}
		data["password"] = passwordHash
	}

	return db.Model(&User{}).Where("id = ?", user.ID).Select(updatableFields).Updates(data).Error
}

func (user *User) IsAdmin() (bool, error) {
	if user.RoleID == 0 {
		return false, nil
	}

	adminRole, err := FindRole(ADMIN_USER_ROLE)
	if err != nil {
		return false, err
	}

	return adminRole.ID == user.RoleID, nil
}

func (user *User) UpdateTriggerSetting(data map[string]interface{}) error {
	return db.Model(&TriggerSetting{}).Where("user_id = ?", user.ID).Updates(data).Error
}

func FindUserBy(field string, value interface{}) (*User, error) {
	user := User{}
	err := db.Select(allFieldsExceptPassword).First(&user, fmt.Sprintf("%v = ?", field), value).Error
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func FindUserWithTriggerSetting(userID interface{}) (*User, error) {
	user := User{}
	err := db.Preload("TriggerSetting").Select(allFieldsExceptPassword).First(&user, userID).Error
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func FindUserPassword(email string) (string, error) {
	user := &User{}
	err := db.Select("Password").First(user, "email = ?", email).Error
	if err != nil {
		return "", err
	}

	return user.Password, nil
}

func CreateUser(user *User) error {
	passwordHash, err := auth.HashPassword(user.Password)
	if err != nil {
		return err
	}
	user.Password = passwordHash

	user.TriggerSetting = &TriggerSetting{
		MotionThreshold:       DEFAULT_MOTION_THRESHOLD,
		MotionCooldownSeconds: DEFAULT_MOTION_COOLDOWN_SECONDS,
	}
	return db.Create(user).Error
}

func DeleteUser(id interface{}) error {
	return db.Delete(&User{}, id).Error
}

func AtLeastOneUserExists() (bool, error) {
	err := db.First(&User{}).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}
