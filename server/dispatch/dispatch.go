package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/udsonbraga/safelady/server/logger"
	"github.com/udsonbraga/safelady/server/models"
	"github.com/udsonbraga/safelady/server/work"
)

var (
	// ErrNoContactsConfigured is returned when a trigger fires for a user
	// with an empty contact list. The handler surfaces it to the client as
	// "Contatos não configurados". It is the only way a dispatch fails:
	// once sends were attempted the outcome is a Result, never an error.
	ErrNoContactsConfigured = errors.New("no trusted contacts configured")

	logg = logger.NewLogger()
)

const (
	CHANNEL_TELEGRAM = "telegram"
	CHANNEL_SMS      = "sms"
	CHANNEL_SKIPPED  = "skipped"
)

type TelegramSender interface {
	Enabled() bool
	SendMessage(chatID, text string) error
	SendLocation(chatID string, latitude, longitude float64) error
}

type SMSSender interface {
	Enabled() bool
	SendMessage(to, message string) error
}

type Enqueuer interface {
	Perform(job work.JobParams) error
}

type Notifier interface {
	NotifyUser(userID uint, event interface{})
}

// Location is the device position attached to an alert.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Options describes the alert being dispatched. A zero UserID means the
// trigger fired without an authenticated session; the alert still goes
// out but no record is kept.
type Options struct {
	UserID    uint
	UserName  string
	AlertType string
	Location  *Location
}

// ContactResult is the per-contact delivery outcome.
type ContactResult struct {
	ContactID string `json:"contact_id"`
	Name      string `json:"name"`
	Channel   string `json:"channel"`
	Delivered bool   `json:"delivered"`
	Error     string `json:"error,omitempty"`
}

type Result struct {
	Delivered    int             `json:"delivered"`
	Results      []ContactResult `json:"results"`
	RecordQueued bool            `json:"record_queued"`
}

// Dispatcher fans an emergency alert out to a user's trusted contacts.
// Telegram is the primary channel; contacts without a telegram handle get
// an SMS when twilio is configured, and contacts with neither handle are
// skipped rather than failing the dispatch.
type Dispatcher struct {
	telegram TelegramSender
	sms      SMSSender
	pool     Enqueuer
	notifier Notifier
}

func NewDispatcher(telegram TelegramSender, sms SMSSender, pool Enqueuer, notifier Notifier) *Dispatcher {
	return &Dispatcher{
		telegram: telegram,
		sms:      sms,
		pool:     pool,
		notifier: notifier,
	}
}

// Dispatch sends the alert to every contact in order, collecting a result
// per contact. Delivery failures never abort the loop. The alert record is
// enqueued best-effort after delivery, so a slow database cannot hold up
// the alert itself.
func (d *Dispatcher) Dispatch(contacts []models.Contact, opts Options) (*Result, error) {
	if len(contacts) == 0 {
		return nil, ErrNoContactsConfigured
	}

	message := AlertMessage(opts.UserName, opts.Location)
	result := &Result{Results: make([]ContactResult, 0, len(contacts))}

	for _, contact := range contacts {
		outcome := d.deliverToContact(contact, message, opts.Location)
		if outcome.Delivered {
			result.Delivered++
		}
		result.Results = append(result.Results, outcome)
	}

	if result.Delivered == 0 {
		logg.Errorf("alert for user %v reached none of %v contacts", opts.UserID, len(contacts))
	}

	// The attempt is logged and the UI told even when every send failed;
	// the alert log is the user's record of what the app tried to do.
	result.RecordQueued = d.enqueueRecord(opts, message, result)
	d.notify(opts, result)

	return result, nil
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func (d *Dispatcher) deliverToContact(contact models.Contact, message string, location *Location) ContactResult {
	outcome := ContactResult{ContactID: contact.ID, Name: contact.Name}

	if contact.TelegramID != "" && d.telegram != nil && d.telegram.Enabled() {
		outcome.Channel = CHANNEL_TELEGRAM
		err := d.sendTelegram(contact.TelegramID, message, location)
		if err == nil {
			outcome.Delivered = true
			return outcome
		}

		logg.Errorf("telegram delivery to %v failed: %v", contact.Name, err)
		outcome.Error = err.Error()
	}

	if contact.Phone != "" && d.sms != nil && d.sms.Enabled() {
		outcome.Channel = CHANNEL_SMS
		err := d.sms.SendMessage(contact.Phone, message)
		if err == nil {
			outcome.Delivered = true
			outcome.Error = ""
			return outcome
		}

		logg.Errorf("sms delivery to %v failed: %v", contact.Name, err)
		outcome.Error = err.Error()
		return outcome
	}

	if outcome.Channel == "" {
		outcome.Channel = CHANNEL_SKIPPED
		outcome.Error = "contact has no telegram handle or phone number"
	}

	return outcome
}

func (d *Dispatcher) sendTelegram(chatID, message string, location *Location) error {
	if err := d.telegram.SendMessage(chatID, message); err != nil {
		return err
	}

	// The live location pin is a bonus on top of the text alert.
	if location != nil {
		err := d.telegram.SendLocation(chatID, location.Latitude, location.Longitude)
		if err != nil {
			logg.Warnf("location pin to %v failed: %v", chatID, err)
		}
	}

	return nil
}

func (d *Dispatcher) enqueueRecord(opts Options, message string, result *Result) bool {
	if opts.UserID == 0 || d.pool == nil {
		return false
	}

	notifiedIDs := []string{}
	for _, outcome := range result.Results {
		if outcome.Delivered {
			notifiedIDs = append(notifiedIDs, outcome.ContactID)
		}
	}

	locationData := ""
	if opts.Location != nil {
		data, err := json.Marshal(opts.Location)
		if err == nil {
			locationData = string(data)
		}
	}

	// Unique name per dispatch: the alert log is append-only and two
	// alerts of the same type must both land.
	err := d.pool.Perform(work.JobParams{
		Name:    fmt.Sprintf("record_alert_%v", uuid.NewString()),
		Handler: "recordEmergencyAlert",
		Args: map[string]interface{}{
			"user_id":       opts.UserID,
			"alert_type":    opts.AlertType,
			"message":       message,
			"location_data": locationData,
			"contact_ids":   notifiedIDs,
		},
	})
	if err != nil {
		logg.Warnf("alert for user %v dispatched but not recorded: %v", opts.UserID, err)
		return false
	}

	return true
}

func (d *Dispatcher) notify(opts Options, result *Result) {
	if d.notifier == nil || opts.UserID == 0 {
		return
	}

	d.notifier.NotifyUser(opts.UserID, map[string]interface{}{
		"event":      "alert_dispatched",
		"alert_type": opts.AlertType,
		"delivered":  result.Delivered,
		"contacts":   len(result.Results),
	})
}

// AlertMessage renders the emergency text sent to each contact. The copy
// matches what contacts expect from the mobile app: coordinates plus the
// maps link when a position is known, the unavailable note when it is not.
func AlertMessage(userName string, location *Location) string {
	if userName == "" {
		userName = "Uma usuária do Safe Lady"
	}

	message := fmt.Sprintf(
		"🚨 ALERTA DE EMERGÊNCIA 🚨\n\n%v está em perigo e precisa de sua ajuda! Entre em contato imediatamente.",
		userName,
	)

	if location != nil {
		message += fmt.Sprintf(
			"\n\n📍 Localização atual:\nLatitude: %v\nLongitude: %v\n\n🗺️ Ver no Google Maps: https://maps.google.com/maps?q=%v,%v",
			location.Latitude, location.Longitude,
			location.Latitude, location.Longitude,
		)
	} else {
		message += "\n\n⚠️ Não foi possível obter a localização atual."
	}

	return message
}
