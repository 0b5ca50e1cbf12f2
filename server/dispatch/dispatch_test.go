package dispatch

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/udsonbraga/safelady/server/models"
	"github.com/udsonbraga/safelady/server/work"
)

type fakeTelegram struct {
	enabled  bool
	failFor  map[string]bool
	messages map[string]string
	pins     []string
}

func newFakeTelegram() *fakeTelegram {
	return &fakeTelegram{
		enabled:  true,
		failFor:  map[string]bool{},
		messages: map[string]string{},
	}
}

func (f *fakeTelegram) Enabled() bool { return f.enabled }

func (f *fakeTelegram) SendMessage(chatID, text string) error {
	if f.failFor[chatID] {
		return errors.New("chat not found")
	}
	f.messages[chatID] = text
	return nil
}

func (f *fakeTelegram) SendLocation(chatID string, latitude, longitude float64) error {
	f.pins = append(f.pins, chatID)
	return nil
}

type fakeSMS struct {
	enabled bool
	fail    bool
	sent    []string
}

func (f *fakeSMS) Enabled() bool { return f.enabled }

func (f *fakeSMS) SendMessage(to, message string) error {
	if f.fail {
		return errors.New("twilio rejected message")
	}
	f.sent = append(f.sent, to)
	return nil
}

type fakePool struct {
	jobs []work.JobParams
}

func (f *fakePool) Perform(job work.JobParams) error {
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeNotifier struct {
	events []interface{}
}

func (f *fakeNotifier) NotifyUser(userID uint, event interface{}) {
	f.events = append(f.events, event)
}

func contactWithTelegram(id, name, chatID string) models.Contact {
	return models.Contact{
		UUIDBaseModel: models.UUIDBaseModel{ID: id},
		Name:          name,
		TelegramID:    chatID,
		Relationship:  "Amiga",
	}
}

func TestDispatchRequiresContacts(t *testing.T) {
	dispatcher := NewDispatcher(newFakeTelegram(), &fakeSMS{}, &fakePool{}, nil)

	result, err := dispatcher.Dispatch(nil, Options{AlertType: models.MANUAL_ALERT})
	assert.ErrorIs(t, err, ErrNoContactsConfigured)
	assert.Nil(t, result)
}

func TestDispatchDeliversToEveryContact(t *testing.T) {
	telegram := newFakeTelegram()
	pool := &fakePool{}
	notifier := &fakeNotifier{}
	dispatcher := NewDispatcher(telegram, &fakeSMS{}, pool, notifier)

	contacts := []models.Contact{
		contactWithTelegram("c1", "Ana", "ana123"),
		contactWithTelegram("c2", "Rita", "rita456"),
	}

	location := &Location{Latitude: -3.119, Longitude: -60.0217}
	result, err := dispatcher.Dispatch(contacts, Options{
		UserID:    1,
		UserName:  "Maria",
		AlertType: models.MANUAL_ALERT,
		Location:  location,
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, result.Delivered)
	assert.True(t, result.RecordQueued)
	assert.Contains(t, telegram.messages["ana123"], "Maria está em perigo")
	assert.Contains(t, telegram.messages["ana123"], "Latitude: -3.119")
	assert.Contains(t, telegram.messages["ana123"], "Longitude: -60.0217")
	assert.Contains(t, telegram.messages["ana123"], "https://maps.google.com/maps?q=-3.119,-60.0217")
	assert.Equal(t, []string{"ana123", "rita456"}, telegram.pins)

	assert.Equal(t, 1, len(pool.jobs))
	assert.Equal(t, "recordEmergencyAlert", pool.jobs[0].Handler)
	assert.Equal(t, models.MANUAL_ALERT, pool.jobs[0].Args["alert_type"])
	assert.Equal(t, []string{"c1", "c2"}, pool.jobs[0].Args["contact_ids"])

	assert.Equal(t, 1, len(notifier.events))
}

func TestDispatchSucceedsOnPartialFailure(t *testing.T) {
	telegram := newFakeTelegram()
	telegram.failFor["rita456"] = true
	dispatcher := NewDispatcher(telegram, &fakeSMS{}, &fakePool{}, nil)

	contacts := []models.Contact{
		contactWithTelegram("c1", "Ana", "ana123"),
		contactWithTelegram("c2", "Rita", "rita456"),
	}

	result, err := dispatcher.Dispatch(contacts, Options{UserID: 1, AlertType: models.MOTION_ALERT})

	assert.NoError(t, err)
	assert.Equal(t, 1, result.Delivered)
	assert.True(t, result.Results[0].Delivered)
	assert.False(t, result.Results[1].Delivered)
	assert.Equal(t, "chat not found", result.Results[1].Error)
}

func TestDispatchRecordsAttemptWhenNoContactReachable(t *testing.T) {
	telegram := newFakeTelegram()
	telegram.failFor["ana123"] = true
	pool := &fakePool{}
	notifier := &fakeNotifier{}
	dispatcher := NewDispatcher(telegram, &fakeSMS{}, pool, notifier)

	result, err := dispatcher.Dispatch(
		[]models.Contact{contactWithTelegram("c1", "Ana", "ana123")},
		Options{UserID: 1, AlertType: models.MANUAL_ALERT},
	)

	// Once sends were attempted the dispatch itself does not fail. The
	// attempt still lands in the alert log and the UI still hears about it.
	assert.NoError(t, err)
	assert.Equal(t, 0, result.Delivered)
	assert.False(t, result.Results[0].Delivered)
	assert.True(t, result.RecordQueued)

	assert.Equal(t, 1, len(pool.jobs))
	assert.Equal(t, "recordEmergencyAlert", pool.jobs[0].Handler)
	assert.Equal(t, []string{}, pool.jobs[0].Args["contact_ids"])
	assert.Equal(t, 1, len(notifier.events))
}

func TestDispatchFallsBackToSMS(t *testing.T) {
	telegram := newFakeTelegram()
	telegram.failFor["ana123"] = true
	sms := &fakeSMS{enabled: true}
	dispatcher := NewDispatcher(telegram, sms, &fakePool{}, nil)

	contacts := []models.Contact{
		{
			UUIDBaseModel: models.UUIDBaseModel{ID: "c1"},
			Name:          "Ana",
			TelegramID:    "ana123",
			Phone:         "+5592000000000",
			Relationship:  "Mãe",
		},
		{
			UUIDBaseModel: models.UUIDBaseModel{ID: "c2"},
			Name:          "Rita",
			Phone:         "+5592111111111",
			Relationship:  "Irmã",
		},
	}

	result, err := dispatcher.Dispatch(contacts, Options{UserID: 1, AlertType: models.SOUND_ALERT})

	assert.NoError(t, err)
	assert.Equal(t, 2, result.Delivered)
	assert.Equal(t, CHANNEL_SMS, result.Results[0].Channel)
	assert.Equal(t, CHANNEL_SMS, result.Results[1].Channel)
	assert.Equal(t, []string{"+5592000000000", "+5592111111111"}, sms.sent)
}

func TestDispatchSkipsContactsWithoutHandles(t *testing.T) {
	telegram := newFakeTelegram()
	dispatcher := NewDispatcher(telegram, &fakeSMS{}, &fakePool{}, nil)

	contacts := []models.Contact{
		contactWithTelegram("c1", "Ana", "ana123"),
		{UUIDBaseModel: models.UUIDBaseModel{ID: "c2"}, Name: "Rita", Relationship: "Irmã"},
	}

	result, err := dispatcher.Dispatch(contacts, Options{UserID: 1, AlertType: models.MANUAL_ALERT})

	assert.NoError(t, err)
	assert.Equal(t, 1, result.Delivered)
	assert.Equal(t, CHANNEL_SKIPPED, result.Results[1].Channel)
	assert.False(t, result.Results[1].Delivered)
}

func TestDispatchWithoutSessionSkipsRecord(t *testing.T) {
	pool := &fakePool{}
	dispatcher := NewDispatcher(newFakeTelegram(), &fakeSMS{}, pool, nil)

	result, err := dispatcher.Dispatch(
		[]models.Contact{contactWithTelegram("c1", "Ana", "ana123")},
		Options{AlertType: models.MANUAL_ALERT},
	)

	assert.NoError(t, err)
	assert.False(t, result.RecordQueued)
	assert.Equal(t, 0, len(pool.jobs))
}

func TestAlertMessageWithoutNameOrLocation(t *testing.T) {
	message := AlertMessage("", nil)

	assert.Contains(t, message, "🚨 ALERTA DE EMERGÊNCIA 🚨")
	assert.Contains(t, message, "Uma usuária do Safe Lady está em perigo")
	assert.Contains(t, message, "⚠️ Não foi possível obter a localização atual.")
	assert.NotContains(t, message, "Latitude:")
}
