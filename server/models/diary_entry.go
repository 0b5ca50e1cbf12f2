package models

import (
	"encoding/json"
	"errors"

	"gorm.io/gorm"
)

// Attachment is one file linked to a diary entry. URL stays empty when
// object storage is not configured.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

type DiaryEntry struct {
	UUIDBaseModel
	UserID      uint   `json:"user_id" gorm:"not null;index"`
	Title       string `json:"title,omitempty"`
	Content     string `json:"content" validate:"required" gorm:"not null"`
	Mood        string `json:"mood,omitempty"`
	Location    string `json:"location,omitempty"`
	Attachments string `json:"attachments,omitempty"` // JSON list of {name, url}
}

func (entry *DiaryEntry) Update(data map[string]interface{}) error {
	return db.Model(&DiaryEntry{}).
		Where("id = ? AND user_id = ?", entry.ID, entry.UserID).
		Select("title", "content", "mood", "location", "attachments").
		Updates(data).Error
}

func (entry *DiaryEntry) AttachmentList() []Attachment {
	attachments := []Attachment{}
	if entry.Attachments == "" {
		return attachments
	}

	if err := json.Unmarshal([]byte(entry.Attachments), &attachments); err != nil {
		return []Attachment{}
	}
	return attachments
}

func (entry *DiaryEntry) AddAttachment(attachment Attachment) error {
	attachments := append(entry.AttachmentList(), attachment)
	raw, err := json.Marshal(attachments)
	if err != nil {
		return err
	}
	entry.Attachments = string(raw)

	return db.Model(&DiaryEntry{}).
		Where("id = ? AND user_id = ?", entry.ID, entry.UserID).
		Update("attachments", entry.Attachments).Error
}

func CreateDiaryEntry(entry *DiaryEntry) error {
	return db.Create(entry).Error
}

func FindDiaryEntry(id string, userID uint) (*DiaryEntry, error) {
	entry := DiaryEntry{}
	err := db.First(&entry, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		return nil, err
	}

	return &entry, nil
}

func FetchDiaryEntriesForUser(userID uint, page int) ([]DiaryEntry, *Paging, error) {
	var total int64
	entries := []DiaryEntry{}

	err := db.Model(&DiaryEntry{}).Where("user_id = ?", userID).Count(&total).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	err = db.Scopes(paginate(page, MAX_PAGE_SIZE)).
		Order("created_at desc").
		Find(&entries, "user_id = ?", userID).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	return entries, newPaging(int64(page), MAX_PAGE_SIZE, total), nil
}

func DeleteDiaryEntry(id string, userID uint) error {
	return db.Where("user_id = ?", userID).Delete(&DiaryEntry{}, "id = ?", id).Error
}
