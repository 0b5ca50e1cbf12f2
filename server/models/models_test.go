package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/udsonbraga/safelady/server/auth"
	"gorm.io/gorm"
)

func createTestUser(t *testing.T, email string) *User {
	user := &User{
		Name:     "Maria",
		Email:    email,
		Password: "super-secret",
	}
	assert.NoError(t, CreateUser(user))
	return user
}

func TestCreateUserDefaults(t *testing.T) {
	InitializeTestDb()
	user := createTestUser(t, "maria@example.com")

	// Password is stored hashed
	passwordHash, err := FindUserPassword(user.Email)
	assert.NoError(t, err)
	assert.NotEqual(t, "super-secret", passwordHash)
	assert.True(t, auth.CheckPasswordHash("super-secret", passwordHash))

	// A default trigger setting rides along, disarmed
	found, err := FindUserWithTriggerSetting(user.ID)
	assert.NoError(t, err)
	assert.NotNil(t, found.TriggerSetting)
	assert.False(t, found.TriggerSetting.MotionActive)
	assert.False(t, found.TriggerSetting.SoundActive)
	assert.Equal(t, float64(DEFAULT_MOTION_THRESHOLD), found.TriggerSetting.MotionThreshold)
	assert.Equal(t, DEFAULT_MOTION_COOLDOWN_SECONDS, found.TriggerSetting.MotionCooldownSeconds)
}

func TestMaxContactsPerTier(t *testing.T) {
	free := User{}
	assert.Equal(t, FREE_TIER_MAX_CONTACTS, free.MaxContacts())

	premium := User{IsPremium: true}
	assert.Equal(t, PREMIUM_TIER_MAX_CONTACTS, premium.MaxContacts())
}

func TestEmergencyAlertLog(t *testing.T) {
	InitializeTestDb()
	user := createTestUser(t, "maria@example.com")

	assert.Error(t, CreateEmergencyAlert(&EmergencyAlert{UserID: user.ID, AlertType: "smoke-signal"}))

	for i := 0; i < 3; i++ {
		alert := &EmergencyAlert{
			UserID:           user.ID,
			AlertType:        MANUAL_ALERT,
			Message:          fmt.Sprintf("alerta %v", i),
			ContactsNotified: `["c1","c2"]`,
		}
		assert.NoError(t, CreateEmergencyAlert(alert))
		assert.NotEmpty(t, alert.ID)
	}

	fetched, err := FindUserBy("id", user.ID)
	assert.NoError(t, err)
	assert.NotNil(t, fetched.LastAlertAt)

	alerts, paging, err := FetchAlertsForUser(user.ID, 1)
	assert.NoError(t, err)
	assert.Equal(t, 3, len(alerts))
	assert.Equal(t, int64(3), paging.Total)
	assert.Equal(t, []string{"c1", "c2"}, alerts[0].NotifiedContactIDs())
	assert.False(t, alerts[0].Resolved)

	assert.NoError(t, ResolveAlert(alerts[0].ID, user.ID))
	assert.ErrorIs(t, ResolveAlert("missing-id", user.ID), gorm.ErrRecordNotFound)

	// Another user cannot resolve someone else's alert
	assert.ErrorIs(t, ResolveAlert(alerts[1].ID, user.ID+1), gorm.ErrRecordNotFound)
}

func TestNotifiedContactIDsToleratesMalformedData(t *testing.T) {
	alert := EmergencyAlert{ContactsNotified: "not-json"}
	assert.Equal(t, []string{}, alert.NotifiedContactIDs())

	empty := EmergencyAlert{}
	assert.Equal(t, []string{}, empty.NotifiedContactIDs())
}

func TestDiaryEntryCrud(t *testing.T) {
	InitializeTestDb()
	user := createTestUser(t, "maria@example.com")

	entry := &DiaryEntry{UserID: user.ID, Title: "Dia difícil", Content: "..."}
	assert.NoError(t, CreateDiaryEntry(entry))

	assert.NoError(t, entry.Update(map[string]interface{}{"mood": "ansiosa"}))

	found, err := FindDiaryEntry(entry.ID, user.ID)
	assert.NoError(t, err)
	assert.Equal(t, "ansiosa", found.Mood)

	// Scoped to the owner
	_, err = FindDiaryEntry(entry.ID, user.ID+1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	assert.NoError(t, found.AddAttachment(Attachment{Name: "foto.jpg", URL: "gs://bucket/foto.jpg"}))
	assert.NoError(t, found.AddAttachment(Attachment{Name: "nota.txt"}))

	found, err = FindDiaryEntry(entry.ID, user.ID)
	assert.NoError(t, err)
	attachments := found.AttachmentList()
	assert.Equal(t, 2, len(attachments))
	assert.Equal(t, "foto.jpg", attachments[0].Name)
	assert.Equal(t, "gs://bucket/foto.jpg", attachments[0].URL)
	assert.Empty(t, attachments[1].URL)

	assert.Equal(t, []Attachment{}, (&DiaryEntry{Attachments: "not-json"}).AttachmentList())

	assert.NoError(t, DeleteDiaryEntry(entry.ID, user.ID))
	_, err = FindDiaryEntry(entry.ID, user.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestInitializeProductsForUserSeedsOnce(t *testing.T) {
	InitializeTestDb()
	user := createTestUser(t, "maria@example.com")

	products, err := InitializeProductsForUser(user.ID)
	assert.NoError(t, err)
	assert.Equal(t, len(seedProducts), len(products))

	// Second call is a no-op
	again, err := InitializeProductsForUser(user.ID)
	assert.NoError(t, err)
	assert.Equal(t, len(products), len(again))
}

func TestReplaceContactsForUserConverges(t *testing.T) {
	InitializeTestDb()
	user := createTestUser(t, "maria@example.com")

	contacts := []Contact{
		{Name: "Ana", TelegramID: "ana123", Relationship: "Mãe"},
		{Name: "Rita", Relationship: "Irmã"},
	}
	assert.NoError(t, ReplaceContactsForUser(user.ID, contacts))

	stored, err := ContactsForUser(user.ID)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(stored))

	// The next replace wins wholesale
	assert.NoError(t, ReplaceContactsForUser(user.ID, []Contact{{Name: "Ana", TelegramID: "ana123", Relationship: "Mãe"}}))
	stored, err = ContactsForUser(user.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(stored))

	count, err := ContactCountForUser(user.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
