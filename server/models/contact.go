package models

// Contact is a trusted contact that receives emergency alerts. TelegramID
// is the delivery handle; Phone is the SMS fallback for contacts without
// one. Ids are uuids minted by the client so the record keeps its identity
// across local-only and synced storage.
type Contact struct {
	UUIDBaseModel
	Name         string `json:"name" validate:"required"`
	TelegramID   string `json:"telegram_id"`
	Phone        string `json:"phone,omitempty" validate:"omitempty,e164"`
	Email        string `json:"email,omitempty" validate:"omitempty,email"`
	Relationship string `json:"relationship" validate:"required"`
	UserID       uint   `json:"user_id" gorm:"not null;index"`
}

func ContactsForUser(userID uint) ([]Contact, error) {
	contacts := []Contact{}
	err := db.Limit(500).Order("created_at").Find(&contacts, "user_id = ?", userID).Error
	if err != nil {
		return nil, err
	}

	return contacts, nil
}

// ReplaceContactsForUser drops every remote row for the user and re-inserts
// the given list. The two statements are intentionally not wrapped in a
// transaction: the local snapshot is the fallback-of-record and the next
// sync re-converges (last local write wins).
func ReplaceContactsForUser(userID uint, contacts []Contact) error {
	err := db.Where("user_id = ?", userID).Delete(&Contact{}).Error
	if err != nil {
		return err
	}

	if len(contacts) == 0 {
		return nil
	}

	for i := range contacts {
		contacts[i].UserID = userID
	}
	return db.Create(&contacts).Error
}

func ContactCountForUser(userID uint) (int64, error) {
	var count int64
	err := db.Model(&Contact{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
