package models

import (
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

const (
	MANUAL_ALERT = "manual"
	MOTION_ALERT = "motion"
	SOUND_ALERT  = "sound"
)

var AlertTypeNameMap = map[string]bool{
	MANUAL_ALERT: true,
	MOTION_ALERT: true,
	SOUND_ALERT:  true,
}

// EmergencyAlert is the append-only log of dispatch attempts. Only
// 'resolved' is ever mutated after creation.
type EmergencyAlert struct {
	UUIDBaseModel
	UserID           uint   `json:"user_id" gorm:"not null;index"`
	AlertType        string `json:"alert_type" gorm:"not null"`
	Message          string `json:"message,omitempty"`
	LocationData     string `json:"location_data,omitempty"`
	ContactsNotified string `json:"contacts_notified,omitempty"` // JSON list of contact ids
	Resolved         bool   `json:"resolved" gorm:"default:false"`
}

func (alert *EmergencyAlert) NotifiedContactIDs() []string {
	ids := []string{}
	if alert.ContactsNotified == "" {
		return ids
	}

	// A malformed list is treated as empty, the alert row itself is
	// still meaningful without it.
	if err := json.Unmarshal([]byte(alert.ContactsNotified), &ids); err != nil {
		return []string{}
	}
	return ids
}

func CreateEmergencyAlert(alert *EmergencyAlert) error {
	if !AlertTypeNameMap[alert.AlertType] {
		return errors.New("unknown alert type: " + alert.AlertType)
	}

	if err := db.Create(alert).Error; err != nil {
		return err
	}

	return db.Model(&User{}).
		Where("id = ?", alert.UserID).
		Update("last_alert_at", time.Now()).Error
}

func FetchAlertsForUser(userID uint, page int) ([]EmergencyAlert, *Paging, error) {
	var total int64
	alerts := []EmergencyAlert{}

	err := db.Model(&EmergencyAlert{}).Where("user_id = ?", userID).Count(&total).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	err = db.Scopes(paginate(page, MAX_PAGE_SIZE)).
		Order("created_at desc").
		Find(&alerts, "user_id = ?", userID).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	return alerts, newPaging(int64(page), MAX_PAGE_SIZE, total), nil
}

func ResolveAlert(alertID string, userID uint) error {
	res := db.Model(&EmergencyAlert{}).
		Where("id = ? AND user_id = ?", alertID, userID).
		Update("resolved", true)
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
