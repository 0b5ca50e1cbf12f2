package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/gorilla/mux"
	"github.com/udsonbraga/safelady/server/auth"
	"github.com/udsonbraga/safelady/server/auth/key"
	"github.com/udsonbraga/safelady/server/contactstore"
	"github.com/udsonbraga/safelady/server/dispatch"
	"github.com/udsonbraga/safelady/server/models"
	"github.com/udsonbraga/safelady/server/recording"
	"github.com/udsonbraga/safelady/server/trigger"
	"github.com/udsonbraga/safelady/version"
	"gorm.io/gorm"
)

const (
	TOKEN_TTL = 24 * time.Hour

	// Client-facing copy is in portuguese, matching the mobile app.
	MSG_NO_CONTACTS_CONFIGURED = "Contatos não configurados"
	MSG_CONTACT_LIMIT_REACHED  = "Limite de contatos atingido para o seu plano"

	MAX_RECORDING_BYTES  = 10 << 20
	MAX_ATTACHMENT_BYTES = 5 << 20
)

type ResponsePayload struct {
	Errors  []string    `json:"errors,omitempty"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// ---------------------------------------------------------------------------------//
// Auth & account handlers
// --------------------------------------------------------------------------------//

func healthCheckHandler(rw http.ResponseWriter, r *http.Request) {
	jobsStats, err := models.CurrentJobsStats()
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{
		Success: true,
		Data: map[string]interface{}{
			"version":   version.Version,
			"jobsStats": jobsStats,
		},
	})
}

func jwksHandler(rw http.ResponseWriter, r *http.Request) {
	jwk, err := authKeyPair.JWK()
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(key.ExportJWKAsJWKS(jwk))
}

// logInHandler exchanges credentials for a signed token. The disguise
// password also logs in, but flags the session so the client boots
// straight into the storefront.
func logInHandler(rw http.ResponseWriter, r *http.Request) {
	data := make(map[string]string)
	json.NewDecoder(r.Body).Decode(&data)

	passwordHash, err := models.FindUserPassword(data["email"])
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	disguiseMode := false
	if !auth.CheckPasswordHash(data["password"], passwordHash) {
		user, err := models.FindUserBy("email", data["email"])
		if err != nil || user.DisguisePassword == "" || user.DisguisePassword != data["password"] {
			writeResponse(rw, ResponsePayload{Errors: []string{"email/password is invalid"}}, http.StatusUnauthorized)
			return
		}
		disguiseMode = true
	}

	user, err := models.FindUserBy("email", data["email"])
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	isAdmin, err := user.IsAdmin()
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	token, err := auth.EncodeJWT(auth.SafeLadyTokenClaims{
		Name:    user.Name,
		IsAdmin: isAdmin,
		StandardClaims: jwt.StandardClaims{
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: time.Now().Add(TOKEN_TTL).Unix(),
			Issuer:    "safelady",
		},
	}, authKeyPair)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{
		Success: true,
		Data: map[string]interface{}{
			"token":         token,
			"disguise_mode": disguiseMode,
			"user":          user,
		},
	})
}

func createUserHandler(rw http.ResponseWriter, r *http.Request) {
	user := models.User{}

	err := json.NewDecoder(r.Body).Decode(&user)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	errs := validate.Struct(user)
	if errs != nil {
		writeResponse(rw, ResponsePayload{Errors: strings.Split(errs.Error(), "\n")}, http.StatusBadRequest)
		return
	}

	// The very first account becomes the admin
	anyUser, err := models.AtLeastOneUserExists()
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	if !anyUser {
		role, err := models.FindRole(models.ADMIN_USER_ROLE)
		if err != nil {
			writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
			return
		}
		user.RoleID = role.ID
	}

	if err = models.CreateUser(&user); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	if _, err = models.InitializeProductsForUser(user.ID); err != nil {
		logg.Errorf("unable to seed storefront for user %v: %v", user.ID, err)
	}

	user.Password = ""
	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: user})
}

func findUserHandler(rw http.ResponseWriter, r *http.Request) {
	user, err := models.FindUserWithTriggerSetting(mux.Vars(r)["uid"])
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusNotFound)
		return
	}

	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: user})
}

func updateUserHandler(rw http.ResponseWriter, r *http.Request) {
	data := make(map[string]interface{})

	err := json.NewDecoder(r.Body).Decode(&data)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	removeUnknownFields(data, map[string]bool{
		"name": true, "password": true, "is_premium": true, "disguise_password": true,
	})
	if len(data) <= 0 {
		writeResponse(rw, ResponsePayload{Errors: []string{"valid fields required"}}, http.StatusBadRequest)
		return
	}

	if data["password"] != nil && strings.TrimSpace(fmt.Sprintf("%v", data["password"])) == "" {
		writeResponse(rw, ResponsePayload{Errors: []string{"password cannot be empty"}}, http.StatusBadRequest)
		return
	}

	user := models.User{BaseModel: models.BaseModel{ID: requestUserID(r)}}
	err = user.Update(data)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true})
}

func deleteUserHandler(rw http.ResponseWriter, r *http.Request) {
	err := models.DeleteUser(mux.Vars(r)["uid"])
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true})
}

// ---------------------------------------------------------------------------------//
// Contact handlers
// --------------------------------------------------------------------------------//

func contactsIndexHandler(rw http.ResponseWriter, r *http.Request) {
	store, err := loadedContactStore(requestUserID(r))
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: store.List()})
}

func createContactHandler(rw http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)

	contact := models.Contact{}
	err := json.NewDecoder(r.Body).Decode(&contact)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	errs := validate.Struct(contact)
	if errs != nil {
		writeResponse(rw, ResponsePayload{Errors: strings.Split(errs.Error(), "\n")}, http.StatusBadRequest)
		return
	}

	store, err := loadedContactStore(userID)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	user, err := models.FindUserBy("id", userID)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	if store.Count() >= user.MaxContacts() {
		writeResponse(rw, ResponsePayload{Errors: []string{MSG_CONTACT_LIMIT_REACHED}}, http.StatusForbidden)
		return
	}

	contacts, syncState, err := store.Add(contact)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{
		Success: true,
		Data:    map[string]interface{}{"contacts": contacts, "sync_state": syncState},
	})
}

func updateContactHandler(rw http.ResponseWriter, r *http.Request) {
	contact := models.Contact{}
	err := json.NewDecoder(r.Body).Decode(&contact)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}
	contact.ID = mux.Vars(r)["id"]

	errs := validate.Struct(contact)
	if errs != nil {
		writeResponse(rw, ResponsePayload{Errors: strings.Split(errs.Error(), "\n")}, http.StatusBadRequest)
		return
	}

	store, err := loadedContactStore(requestUserID(r))
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	contacts, syncState, err := store.Update(contact)
	if errors.Is(err, contactstore.ErrContactNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{
		Success: true,
		Data:    map[string]interface{}{"contacts": contacts, "sync_state": syncState},
	})
}

func deleteContactHandler(rw http.ResponseWriter, r *http.Request) {
	store, err := loadedContactStore(requestUserID(r))
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	contacts, syncState, err := store.Remove(mux.Vars(r)["id"])
	if errors.Is(err, contactstore.ErrContactNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{
		Success: true,
		Data:    map[string]interface{}{"contacts": contacts, "sync_state": syncState},
	})
}

// ---------------------------------------------------------------------------------//
// Trigger setting handlers
// --------------------------------------------------------------------------------//

func triggerSettingsShowHandler(rw http.ResponseWriter, r *http.Request) {
	setting, err := models.FindTriggerSetting(requestUserID(r))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: setting})
}

func triggerSettingsUpdateHandler(rw http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	data := make(map[string]interface{})

	err := json.NewDecoder(r.Body).Decode(&data)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	removeUnknownFields(data, map[string]bool{
		"motion_active": true, "sound_active": true,
		"motion_threshold": true, "motion_cooldown_seconds": true,
	})
	if len(data) <= 0 {
		writeResponse(rw, ResponsePayload{Errors: []string{"valid fields required"}}, http.StatusBadRequest)
		return
	}

	user := models.User{BaseModel: models.BaseModel{ID: userID}}
	if err = user.UpdateTriggerSetting(data); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	// New thresholds take effect on the next sensor reading
	triggerRegistry.Invalidate(userID)

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true})
}

// ---------------------------------------------------------------------------------//
// Alert handlers
// --------------------------------------------------------------------------------//

type alertRequest struct {
	UserName string             `json:"user_name"`
	Location *dispatch.Location `json:"location"`
	Contacts []models.Contact   `json:"contacts"`
}

func alertsIndexHandler(rw http.ResponseWriter, r *http.Request) {
	alerts, paging, err := models.FetchAlertsForUser(requestUserID(r), requestPage(r))
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{
		Success: true,
		Data:    map[string]interface{}{"alerts": alerts, "paging": paging},
	})
}

// createAlertHandler is the manual panic button for a signed-in user.
func createAlertHandler(rw http.ResponseWriter, r *http.Request) {
	payload := alertRequest{}
	json.NewDecoder(r.Body).Decode(&payload)

	dispatchAlert(rw, requestUserID(r), models.MANUAL_ALERT, payload.Location)
}

// panicAlertHandler dispatches without a session: the client ships its
// locally stored contacts along with the request, and no record is kept.
func panicAlertHandler(rw http.ResponseWriter, r *http.Request) {
	payload := alertRequest{}
	err := json.NewDecoder(r.Body).Decode(&payload)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	result, err := dispatcher.Dispatch(payload.Contacts, dispatch.Options{
		UserName:  payload.UserName,
		AlertType: models.MANUAL_ALERT,
		Location:  payload.Location,
	})
	writeDispatchResult(rw, result, err)
}

func resolveAlertHandler(rw http.ResponseWriter, r *http.Request) {
	err := models.ResolveAlert(mux.Vars(r)["id"], requestUserID(r))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true})
}

// ---------------------------------------------------------------------------------//
// Sensor handlers
// --------------------------------------------------------------------------------//

type motionSensorRequest struct {
	Reading  trigger.MotionReading `json:"reading"`
	Location *dispatch.Location    `json:"location"`
}

type speechSensorRequest struct {
	Transcript string             `json:"transcript"`
	Location   *dispatch.Location `json:"location"`
}

func motionSensorHandler(rw http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)

	payload := motionSensorRequest{}
	err := json.NewDecoder(r.Body).Decode(&payload)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	setting, err := models.FindTriggerSetting(userID)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	magnitude, fired := triggerRegistry.MotionMonitorFor(userID, setting).Observe(payload.Reading)
	if !fired {
		json.NewEncoder(rw).Encode(ResponsePayload{
			Success: true,
			Data:    map[string]interface{}{"magnitude": magnitude, "triggered": false},
		})
		return
	}

	dispatchAlert(rw, userID, models.MOTION_ALERT, payload.Location)
}

func speechSensorHandler(rw http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)

	payload := speechSensorRequest{}
	err := json.NewDecoder(r.Body).Decode(&payload)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	setting, err := models.FindTriggerSetting(userID)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	keyword, fired := triggerRegistry.SpeechMonitorFor(userID, setting).Observe(payload.Transcript)
	if !fired {
		json.NewEncoder(rw).Encode(ResponsePayload{
			Success: true,
			Data:    map[string]interface{}{"keyword": keyword, "triggered": false},
		})
		return
	}

	dispatchAlert(rw, userID, models.SOUND_ALERT, payload.Location)
}

// ---------------------------------------------------------------------------------//
// Diary handlers
// --------------------------------------------------------------------------------//

func diaryIndexHandler(rw http.ResponseWriter, r *http.Request) {
	entries, paging, err := models.FetchDiaryEntriesForUser(requestUserID(r), requestPage(r))
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{
		Success: true,
		Data:    map[string]interface{}{"entries": entries, "paging": paging},
	})
}

func createDiaryEntryHandler(rw http.ResponseWriter, r *http.Request) {
	entry := models.DiaryEntry{}
	err := json.NewDecoder(r.Body).Decode(&entry)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}
	entry.UserID = requestUserID(r)

	errs := validate.Struct(entry)
	if errs != nil {
		writeResponse(rw, ResponsePayload{Errors: strings.Split(errs.Error(), "\n")}, http.StatusBadRequest)
		return
	}

	if err = models.CreateDiaryEntry(&entry); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: entry})
}

func showDiaryEntryHandler(rw http.ResponseWriter, r *http.Request) {
	entry, err := models.FindDiaryEntry(mux.Vars(r)["id"], requestUserID(r))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: entry})
}

func updateDiaryEntryHandler(rw http.ResponseWriter, r *http.Request) {
	data := make(map[string]interface{})

	err := json.NewDecoder(r.Body).Decode(&data)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	removeUnknownFields(data, map[string]bool{
		"title": true, "content": true, "mood": true, "location": true, "attachments": true,
	})
	if len(data) <= 0 {
		writeResponse(rw, ResponsePayload{Errors: []string{"valid fields required"}}, http.StatusBadRequest)
		return
	}

	entry := models.DiaryEntry{
		UUIDBaseModel: models.UUIDBaseModel{ID: mux.Vars(r)["id"]},
		UserID:        requestUserID(r),
	}
	if err = entry.Update(data); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true})
}

func deleteDiaryEntryHandler(rw http.ResponseWriter, r *http.Request) {
	err := models.DeleteDiaryEntry(mux.Vars(r)["id"], requestUserID(r))
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true})
}

func createDiaryAttachmentHandler(rw http.ResponseWriter, r *http.Request) {
	name := filepath.Base(strings.TrimSpace(r.URL.Query().Get("name")))
	if name == "" || name == "." || name == string(filepath.Separator) {
		writeResponse(rw, ResponsePayload{Errors: []string{"'name' query param is required"}}, http.StatusBadRequest)
		return
	}

	entry, err := models.FindDiaryEntry(mux.Vars(r)["id"], requestUserID(r))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	attachment := models.Attachment{Name: name}
	if gStorageClient != nil {
		object := fmt.Sprintf("%v/diary/user_%v/%v/%v",
			serverConfig.Google.Storage.Prefix, entry.UserID, entry.ID, name)
		body := http.MaxBytesReader(rw, r.Body, MAX_ATTACHMENT_BYTES)

		if err = gStorageClient.Upload(r.Context(), serverConfig.Google.Storage.Bucket, object, body); err != nil {
			writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadGateway)
			return
		}
		attachment.URL = fmt.Sprintf("gs://%v/%v", serverConfig.Google.Storage.Bucket, object)
	}

	if err = entry.AddAttachment(attachment); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: attachment})
}

// ---------------------------------------------------------------------------------//
// Disguise storefront handlers
// --------------------------------------------------------------------------------//

func productsIndexHandler(rw http.ResponseWriter, r *http.Request) {
	// First open seeds the default catalog so the shop never looks empty
	products, err := models.InitializeProductsForUser(requestUserID(r))
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: products})
}

func createProductHandler(rw http.ResponseWriter, r *http.Request) {
	product := models.DisguiseProduct{}
	err := json.NewDecoder(r.Body).Decode(&product)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}
	product.UserID = requestUserID(r)

	errs := validate.Struct(product)
	if errs != nil {
		writeResponse(rw, ResponsePayload{Errors: strings.Split(errs.Error(), "\n")}, http.StatusBadRequest)
		return
	}

	if err = models.CreateProduct(&product); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: product})
}

func updateProductHandler(rw http.ResponseWriter, r *http.Request) {
	data := make(map[string]interface{})

	err := json.NewDecoder(r.Body).Decode(&data)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	removeUnknownFields(data, map[string]bool{
		"name": true, "price": true, "description": true, "image_url": true,
	})
	if len(data) <= 0 {
		writeResponse(rw, ResponsePayload{Errors: []string{"valid fields required"}}, http.StatusBadRequest)
		return
	}

	if err = models.UpdateProduct(mux.Vars(r)["id"], requestUserID(r), data); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true})
}

func deleteProductHandler(rw http.ResponseWriter, r *http.Request) {
	err := models.DeleteProduct(mux.Vars(r)["id"], requestUserID(r))
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true})
}

// ---------------------------------------------------------------------------------//
// Recording handlers
// --------------------------------------------------------------------------------//

func createRecordingHandler(rw http.ResponseWriter, r *http.Request) {
	duration := time.Duration(0)
	if raw := r.URL.Query().Get("seconds"); raw != "" {
		seconds, err := strconv.ParseFloat(raw, 64)
		if err != nil || seconds < 0 {
			writeResponse(rw, ResponsePayload{Errors: []string{"'seconds' must be a non-negative number"}}, http.StatusBadRequest)
			return
		}
		duration = time.Duration(seconds * float64(time.Second))
	}

	body := http.MaxBytesReader(rw, r.Body, MAX_RECORDING_BYTES)

	clip, err := recordingStore.Save(requestUserID(r), body, duration)
	if errors.Is(err, recording.ErrClipTooLong) {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusRequestEntityTooLarge)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: clip})
}

func recordingsIndexHandler(rw http.ResponseWriter, r *http.Request) {
	clips, err := recordingStore.ListForUser(requestUserID(r))
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: clips})
}

func downloadRecordingHandler(rw http.ResponseWriter, r *http.Request) {
	reader, err := recordingStore.Open(requestUserID(r), mux.Vars(r)["name"])
	if errors.Is(err, recording.ErrClipNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}
	defer reader.Close()

	rw.Header().Set("Content-Type", "audio/webm")
	io.Copy(rw, reader)
}

func deleteRecordingHandler(rw http.ResponseWriter, r *http.Request) {
	err := recordingStore.Remove(requestUserID(r), mux.Vars(r)["name"])
	if errors.Is(err, recording.ErrClipNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true})
}

// ---------------------------------------------------------------------------------//
// Websocket & admin handlers
// --------------------------------------------------------------------------------//

func websocketHandler(rw http.ResponseWriter, r *http.Request) {
	if err := hub.Serve(requestUserID(r), rw, r); err != nil {
		logg.Errorf("websocket upgrade failed: %v", err)
	}
}

func jobsIndexHandler(rw http.ResponseWriter, r *http.Request) {
	var (
		jobs   []models.Job
		paging *models.Paging
		err    error
	)

	status := r.URL.Query().Get("status")
	if status != "" {
		if !models.JobStatusNameMap[status] {
			writeResponse(rw, ResponsePayload{Errors: []string{"unknown job status"}}, http.StatusBadRequest)
			return
		}
		jobs, paging, err = models.FetchJobsByStatus(status, requestPage(r))
	} else {
		jobs, paging, err = models.FetchJobs(requestPage(r))
	}

	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{
		Success: true,
		Data:    map[string]interface{}{"jobs": jobs, "paging": paging},
	})
}

func jobsStatsHandler(rw http.ResponseWriter, r *http.Request) {
	stats, err := models.CurrentJobsStats()
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: stats})
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

// dispatchAlert fans an alert out to the user's stored contacts and maps
// the dispatcher's outcome onto the http response.
func dispatchAlert(rw http.ResponseWriter, userID uint, alertType string, location *dispatch.Location) {
	store, err := loadedContactStore(userID)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	user, err := models.FindUserBy("id", userID)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	result, err := dispatcher.Dispatch(store.List(), dispatch.Options{
		UserID:    userID,
		UserName:  user.Name,
		AlertType: alertType,
		Location:  location,
	})
	writeDispatchResult(rw, result, err)
}

func writeDispatchResult(rw http.ResponseWriter, result *dispatch.Result, err error) {
	if errors.Is(err, dispatch.ErrNoContactsConfigured) {
		writeResponse(rw, ResponsePayload{Errors: []string{MSG_NO_CONTACTS_CONFIGURED}}, http.StatusUnprocessableEntity)
		return
	}

	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: result})
}
