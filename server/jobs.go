package server

import (
	"encoding/json"
	"fmt"

	"github.com/udsonbraga/safelady/server/models"
	"github.com/udsonbraga/safelady/server/work"
)

const RECORDING_SWEEP_SCHEDULE = "0 3 * * *"

func registerJobHandlers(wpa *work.WorkerPoolAdapter) {
	wpa.Register("syncContacts", contactManager.SyncJobHandler())
	wpa.Register("recordEmergencyAlert", recordEmergencyAlert)
	wpa.Register("sweepRecordings", recordingStore.SweepJobHandler())
	wpa.Register("backupSqliteDb", backupSqliteDb)
}

func enqueueJobs(wpa *work.WorkerPoolAdapter) {
	wpa.PeriodicallyPerform(RECORDING_SWEEP_SCHEDULE, work.JobParams{
		Name:    "sweepRecordings",
		Handler: "sweepRecordings",
		Args:    map[string]interface{}{},
	})

	if sqliteBackupEnabled() {
		wpa.PeriodicallyPerform(serverConfig.Google.Storage.SqliteBackupSchedule, work.JobParams{
			Name:    "backupSqliteDb",
			Handler: "backupSqliteDb",
			Args:    map[string]interface{}{},
		})
	}
}

// recordEmergencyAlert appends a row to the alert log after a dispatch.
// It runs off the request path so a slow disk never delays an alert.
func recordEmergencyAlert(args map[string]interface{}) error {
	userID, ok := args["user_id"].(float64)
	if !ok {
		return fmt.Errorf("missing or invalid 'user_id' job arg")
	}

	contactIDs, err := json.Marshal(args["contact_ids"])
	if err != nil {
		return err
	}

	return models.CreateEmergencyAlert(&models.EmergencyAlert{
		UserID:           uint(userID),
		AlertType:        fmt.Sprintf("%v", args["alert_type"]),
		Message:          fmt.Sprintf("%v", args["message"]),
		LocationData:     fmt.Sprintf("%v", args["location_data"]),
		ContactsNotified: string(contactIDs),
	})
}

func backupSqliteDb(map[string]interface{}) error {
	if gStorageClient == nil {
		return nil
	}

	dbFilePath, err := models.DbFilePath(dataDir)
	if err != nil {
		return err
	}

	return gStorageClient.UploadFile(
		serverConfig.Google.Storage.Bucket,
		serverConfig.Google.Storage.Prefix,
		dbFilePath,
	)
}
