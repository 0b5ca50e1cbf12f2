package server

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator"
	"github.com/gorilla/mux"
	"github.com/spf13/viper"
	"github.com/udsonbraga/safelady/server/auth/key"
	"github.com/udsonbraga/safelady/server/contactstore"
	"github.com/udsonbraga/safelady/server/dispatch"
	"github.com/udsonbraga/safelady/server/gstorage"
	"github.com/udsonbraga/safelady/server/logger"
	"github.com/udsonbraga/safelady/server/models"
	"github.com/udsonbraga/safelady/server/notify"
	"github.com/udsonbraga/safelady/server/recording"
	"github.com/udsonbraga/safelady/server/telegram"
	"github.com/udsonbraga/safelady/server/trigger"
	"github.com/udsonbraga/safelady/server/twilio"
	"github.com/udsonbraga/safelady/server/work"
	"github.com/udsonbraga/safelady/shared"
)

var (
	logg     = logger.NewLogger()
	validate = validator.New()

	serverConfig *shared.ServerConfig
	authKeyPair  *key.KeyPair
	dataDir      string

	telegramClient  *telegram.ClientWrapper
	twilioClient    *twilio.ClientWrapper
	gStorageClient  *gstorage.GStorage
	workerPool      *work.WorkerPoolAdapter
	hub             *notify.Hub
	contactManager  *contactstore.Manager
	recordingStore  *recording.Store
	dispatcher      *dispatch.Dispatcher
	triggerRegistry *trigger.Registry
)

// Start brings up the safelady server: encrypted sqlite store, auth keys,
// messaging clients, background worker pool and the http api. It blocks
// until an interrupt, then shuts everything down in order.
func Start(config *viper.Viper, devMode bool) {
	var err error

	serverConfig = &shared.ServerConfig{}
	fatalOnError(config.Unmarshal(serverConfig))
	fatalOnError(RegisterValidators(validate))
	fatalOnError(validate.Struct(serverConfig))

	dataDir = configDirectory(devMode)
	fatalOnError(models.AutoMigrate(serverConfig.Sqlite.PassPhrase, dataDir))

	authKeyPair, err = key.NewKeyPairFromRSAPrivateKeyPem(serverConfig.SafeLady.PrivateKeyPem)
	fatalOnError(err)

	telegramClient = telegram.NewClient(serverConfig.Telegram, false)
	if !telegramClient.Enabled() {
		logg.Warn("No telegram bot token provided - emergency alerts will only go out via sms")
	}

	twilioClient = twilio.NewClient(serverConfig.Twilio, false)
	if !twilioClient.Enabled() {
		logg.Warn("No twilio config provided - sms fallback is disabled")
	}

	if sqliteBackupEnabled() {
		gStorageClient, err = gstorage.NewGStorage(serverConfig.Google.ApplicationCredentials)
		fatalOnError(err)
	}

	workerPool = work.NewWorkerAdapter(serverConfig.SafeLady.Cron.TimeZone, false)
	hub = notify.NewHub()

	contactManager, err = contactstore.NewManager(dataDir, workerPool)
	fatalOnError(err)

	recordingStore, err = recording.NewStore(
		dataDir,
		serverConfig.SafeLady.Dispatch.RecordingRetentionDays,
		serverConfig.SafeLady.Dispatch.RecordingMaxSeconds,
	)
	fatalOnError(err)
	if gStorageClient != nil {
		recordingStore.EnableBackup(
			gStorageClient,
			serverConfig.Google.Storage.Bucket,
			serverConfig.Google.Storage.Prefix,
		)
	}

	dispatcher = dispatch.NewDispatcher(telegramClient, twilioClient, workerPool, hub)
	triggerRegistry = trigger.NewRegistry(serverConfig.SafeLady.Dispatch)

	registerJobHandlers(workerPool)
	fatalOnError(workerPool.Start())
	enqueueJobs(workerPool)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%v", serverConfig.SafeLady.Listener.Port),
		Handler: newRouter(),
	}
	go serve(httpServer)

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	<-signalChan

	cleanup(workerPool, httpServer, sqliteBackupEnabled())
}

func newRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware, initialContextMiddleware)

	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	router.HandleFunc("/.well-known/jwks.json", jwksHandler).Methods("GET")
	router.HandleFunc("/login", logInHandler).Methods("POST")

	// Panic dispatch stays open: a trigger must still reach the trusted
	// contacts when the session is gone.
	router.HandleFunc("/alerts/panic", panicAlertHandler).Methods("POST")

	adminRouter := router.PathPrefix("/users").Subrouter()
	adminRouter.Use(adminRouteMiddleware)
	adminRouter.HandleFunc("", createUserHandler).Methods("POST")

	jobsRouter := router.PathPrefix("/jobs").Subrouter()
	jobsRouter.Use(adminRouteMiddleware)
	jobsRouter.HandleFunc("", jobsIndexHandler).Methods("GET")
	jobsRouter.HandleFunc("/stats", jobsStatsHandler).Methods("GET")

	protectedRouter := router.PathPrefix("/users/{uid:[0-9]+}").Subrouter()
	protectedRouter.Use(protectedRouteMiddleware)
	protectedRouter.HandleFunc("", findUserHandler).Methods("GET")
	protectedRouter.HandleFunc("", updateUserHandler).Methods("PUT")
	protectedRouter.HandleFunc("", deleteUserHandler).Methods("DELETE")

	protectedRouter.HandleFunc("/contacts", contactsIndexHandler).Methods("GET")
	protectedRouter.HandleFunc("/contacts", createContactHandler).Methods("POST")
	protectedRouter.HandleFunc("/contacts/{id}", updateContactHandler).Methods("PUT")
	protectedRouter.HandleFunc("/contacts/{id}", deleteContactHandler).Methods("DELETE")

	protectedRouter.HandleFunc("/trigger-settings", triggerSettingsShowHandler).Methods("GET")
	protectedRouter.HandleFunc("/trigger-settings", triggerSettingsUpdateHandler).Methods("PUT")

	protectedRouter.HandleFunc("/alerts", alertsIndexHandler).Methods("GET")
	protectedRouter.HandleFunc("/alerts", createAlertHandler).Methods("POST")
	protectedRouter.HandleFunc("/alerts/{id}/resolve", resolveAlertHandler).Methods("PUT")

	protectedRouter.HandleFunc("/sensors/motion", motionSensorHandler).Methods("POST")
	protectedRouter.HandleFunc("/sensors/speech", speechSensorHandler).Methods("POST")

	protectedRouter.HandleFunc("/diary", diaryIndexHandler).Methods("GET")
	protectedRouter.HandleFunc("/diary", createDiaryEntryHandler).Methods("POST")
	protectedRouter.HandleFunc("/diary/{id}", showDiaryEntryHandler).Methods("GET")
	protectedRouter.HandleFunc("/diary/{id}", updateDiaryEntryHandler).Methods("PUT")
	protectedRouter.HandleFunc("/diary/{id}", deleteDiaryEntryHandler).Methods("DELETE")
	protectedRouter.HandleFunc("/diary/{id}/attachments", createDiaryAttachmentHandler).Methods("POST")

	protectedRouter.HandleFunc("/products", productsIndexHandler).Methods("GET")
	protectedRouter.HandleFunc("/products", createProductHandler).Methods("POST")
	protectedRouter.HandleFunc("/products/{id}", updateProductHandler).Methods("PUT")
	protectedRouter.HandleFunc("/products/{id}", deleteProductHandler).Methods("DELETE")

	protectedRouter.HandleFunc("/recordings", createRecordingHandler).Methods("POST")
	protectedRouter.HandleFunc("/recordings", recordingsIndexHandler).Methods("GET")
	protectedRouter.HandleFunc("/recordings/{name}", downloadRecordingHandler).Methods("GET")
	protectedRouter.HandleFunc("/recordings/{name}", deleteRecordingHandler).Methods("DELETE")

	protectedRouter.HandleFunc("/ws", websocketHandler).Methods("GET")

	return router
}
