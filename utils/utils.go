package utils

import (
	"log"
	"os"
)

// FileExist reports whether the path exists, panicking on any stat error
// other than absence. Used for the sqlite db file and snapshot checks.
func FileExist(filePath string) bool {
	var err error

	if _, err = os.Stat(filePath); os.IsNotExist(err) {
		return false
	}

	if err != nil {
		log.Panic(err)
	}

	return true
}

// CreateDirIfNotExist makes the directory, parents included, when it is
// missing. Contact snapshots and recording dirs are nested under the data
// dir, so intermediate segments may not exist yet.
func CreateDirIfNotExist(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}

	return nil
}
