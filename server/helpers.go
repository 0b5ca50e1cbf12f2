package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/gorilla/mux"
	"github.com/udsonbraga/safelady/server/auth"
	"github.com/udsonbraga/safelady/server/contactstore"
	"github.com/udsonbraga/safelady/server/models"
	"github.com/udsonbraga/safelady/server/work"
	"github.com/udsonbraga/safelady/utils"
)

// ---------------------------------------------------------------------------------//
// Handler Helper functions
// --------------------------------------------------------------------------------//

func writeResponse(rw http.ResponseWriter, payLoad ResponsePayload, statusCode int) {
	if statusCode >= http.StatusInternalServerError {
		logg.Error(payLoad.Errors)
	} else if statusCode >= http.StatusBadRequest {
		logg.Info(payLoad.Errors)
	}

	rw.WriteHeader(statusCode)
	json.NewEncoder(rw).Encode(payLoad)
}

func removeUnknownFields(args map[string]interface{}, validFields map[string]bool) {
	for key := range args {
		if !validFields[key] {
			delete(args, key)
		}
	}
}

func RegisterValidators(validate *validator.Validate) error {
	return validate.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		// if whitespace in password return false
		err := validate.Var(fl.Field().String(), "contains= ")
		if err == nil {
			return false
		}
		return len(fl.Field().String()) > 0
	})
}

func requestUserID(r *http.Request) uint {
	id, err := strconv.ParseUint(mux.Vars(r)["uid"], 10, 32)
	if err != nil {
		return 0
	}

	return uint(id)
}

func requestPage(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}

	return page
}

// loadedContactStore returns the user's contact store, priming it from
// the remote table on first use within this process.
func loadedContactStore(userID uint) (*contactstore.Store, error) {
	store := contactManager.ForUser(userID)
	if store.Loaded() {
		return store, nil
	}

	if err := store.Load(true); err != nil {
		return nil, err
	}

	return store, nil
}

// ---------------------------------------------------------------------------------//
// Middleware Helper functions
// --------------------------------------------------------------------------------//

func decodeAndVerifyAuthHeader(authHeaderValue string) DecodedJWT {
	authHeaderList := strings.Split(authHeaderValue, "Bearer ")
	if len(authHeaderList) < 2 {
		return DecodedJWT{ErrorMsg: "no token provided"}
	}

	tokenClaims, err := auth.DecodeJWT(authHeaderList[1], authKeyPair)
	if err != nil {
		return DecodedJWT{ErrorMsg: "invalid token provided"}
	}

	// validate that the user account still exists
	_, err = models.FindUserBy("id", tokenClaims.Subject)
	if err != nil {
		return DecodedJWT{ErrorMsg: "invalid token provided"}
	}

	return DecodedJWT{Claims: tokenClaims}
}

// client is only able to update/view their own record unless client is an
// admin, who can GET/DELETE certain user resources. A user's contacts,
// diary and recordings are off-limits even to admins.
func canAccessUserResource(r *http.Request, userClaims *auth.SafeLadyTokenClaims) bool {
	allowedMethodsForAdmins := map[string]bool{"GET": true, "DELETE": true}
	deniedPathsForAdmin := []string{"/contacts", "/diary", "/recordings"}

	if mux.Vars(r)["uid"] == userClaims.Subject {
		return true
	}

	if !userClaims.IsAdmin {
		return false
	}

	if !allowedMethodsForAdmins[r.Method] {
		return false
	}

	for _, deniedPath := range deniedPathsForAdmin {
		if strings.Contains(r.URL.Path, deniedPath) {
			return false
		}
	}

	return true
}

// ---------------------------------------------------------------------------------//
// Server Helper functions
// --------------------------------------------------------------------------------//

func serve(server *http.Server) {
	logg.Infof("Safelady server is listening on port:%v", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Fatal(err)
	}
}

func cleanup(workerPool *work.WorkerPoolAdapter, server *http.Server, backupDb bool) {
	workerPool.Stop()
	hub.Close()

	if backupDb {
		if err := backupSqliteDb(nil); err != nil {
			logg.Errorf("final sqlite backup failed: %v", err)
		}
	}

	// Shutdown server gracefully
	ctxShutDown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutDown); err != nil {
		logg.Fatalf("Safelady server shutdown failed:%+s", err)
	}

	logg.Infof("Safelady server stopped properly")
}

// configDirectory retrieves the directory that holds the sqlite db,
// contact snapshots and recordings. Or logs an error message and then
// calls os.Exit if it's unable to.
func configDirectory(devMode bool) string {
	// Use 'safelady' folder in home directory for prod
	configFolderName := "safelady"
	rootDir, err := os.UserHomeDir()
	fatalOnError(err)

	// Use 'dev' folder in current directory for dev mode
	if devMode {
		configFolderName = "dev"
		rootDir, err = os.Getwd()
		fatalOnError(err)
	}

	configDir := filepath.Join(rootDir, configFolderName)

	err = utils.CreateDirIfNotExist(configDir)
	fatalOnError(err)

	return configDir
}

func sqliteBackupEnabled() bool {
	if serverConfig == nil {
		return false
	}

	return fmt.Sprintf("%v", serverConfig.Google.Storage.EnableSqliteBackupAndSync) == "true"
}

func fatalOnError(err error) {
	if err != nil {
		logg.Fatal(err)
	}
}
