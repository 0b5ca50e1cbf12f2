package recording

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/udsonbraga/safelady/server/logger"
	"github.com/udsonbraga/safelady/utils"
)

const (
	DEFAULT_RETENTION_DAYS   = 7
	DEFAULT_MAX_CLIP_SECONDS = 30
)

var (
	ErrClipNotFound = errors.New("recording not found")
	ErrClipTooLong  = errors.New("recording exceeds the maximum clip duration")

	logg = logger.NewLogger()
)

type Uploader interface {
	UploadFile(bucketName, filePathPrefix, filePath string) error
}

// Clip is one stored emergency recording.
type Clip struct {
	Name      string    `json:"name"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// Store keeps emergency audio clips on disk, one directory per user.
// Clips are bounded twice: at save time by the maximum clip duration, and
// over time by the retention sweep.
type Store struct {
	dir        string
	retention  time.Duration
	maxClipLen time.Duration

	// Optional off-device backup. Uploads are best-effort.
	uploader Uploader
	bucket   string
	prefix   string
}

func NewStore(rootDir string, retentionDays, maxClipSeconds int) (*Store, error) {
	dir := filepath.Join(rootDir, "recordings")
	if err := utils.CreateDirIfNotExist(dir); err != nil {
		return nil, err
	}

	if retentionDays <= 0 {
		retentionDays = DEFAULT_RETENTION_DAYS
	}
	if maxClipSeconds <= 0 {
		maxClipSeconds = DEFAULT_MAX_CLIP_SECONDS
	}

	return &Store{
		dir:        dir,
		retention:  time.Duration(retentionDays) * 24 * time.Hour,
		maxClipLen: time.Duration(maxClipSeconds) * time.Second,
	}, nil
}

func (s *Store) EnableBackup(uploader Uploader, bucket, prefix string) {
	s.uploader = uploader
	s.bucket = bucket
	s.prefix = prefix
}

// Save writes a clip for the user and returns its generated name. The
// declared duration is checked against the maximum clip length; a zero
// duration means the client did not declare one and only the byte cap
// applies. When backup is enabled the clip is also pushed to cloud
// storage, but a failed upload never fails the save.
func (s *Store) Save(userID uint, clip io.Reader, duration time.Duration) (*Clip, error) {
	if duration > s.maxClipLen {
		return nil, ErrClipTooLong
	}

	userDir, err := s.userDir(userID)
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("%v.webm", uuid.NewString())
	path := filepath.Join(userDir, name)

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return nil, err
	}

	size, err := io.Copy(file, clip)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return nil, err
	}

	if s.uploader != nil {
		uploadErr := s.uploader.UploadFile(s.bucket, fmt.Sprintf("%v/user_%v", s.prefix, userID), path)
		if uploadErr != nil {
			logg.Warnf("recording backup for user %v failed: %v", userID, uploadErr)
		}
	}

	return &Clip{Name: name, SizeBytes: size, CreatedAt: time.Now()}, nil
}

func (s *Store) ListForUser(userID uint) ([]Clip, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, fmt.Sprintf("user_%v", userID)))
	if os.IsNotExist(err) {
		return []Clip{}, nil
	}
	if err != nil {
		return nil, err
	}

	clips := []Clip{}
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}

		clips = append(clips, Clip{
			Name:      entry.Name(),
			SizeBytes: info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	return clips, nil
}

// Open returns a reader for one of the user's clips. Names are restricted
// to their base form so a crafted name cannot reach outside the user dir.
func (s *Store) Open(userID uint, name string) (io.ReadCloser, error) {
	if name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, ErrClipNotFound
	}

	file, err := os.Open(filepath.Join(s.dir, fmt.Sprintf("user_%v", userID), name))
	if os.IsNotExist(err) {
		return nil, ErrClipNotFound
	}

	return file, err
}

func (s *Store) Remove(userID uint, name string) error {
	if name != filepath.Base(name) {
		return ErrClipNotFound
	}

	err := os.Remove(filepath.Join(s.dir, fmt.Sprintf("user_%v", userID), name))
	if os.IsNotExist(err) {
		return ErrClipNotFound
	}

	return err
}

// Sweep deletes every clip older than the retention window and returns
// how many were removed.
func (s *Store) Sweep() (int, error) {
	cutoff := time.Now().Add(-s.retention)
	removed := 0

	userDirs, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}

	for _, userDir := range userDirs {
		if !userDir.IsDir() {
			continue
		}

		entries, err := os.ReadDir(filepath.Join(s.dir, userDir.Name()))
		if err != nil {
			continue
		}

		for _, entry := range entries {
			info, err := entry.Info()
			if err != nil || info.ModTime().After(cutoff) {
				continue
			}

			if os.Remove(filepath.Join(s.dir, userDir.Name(), entry.Name())) == nil {
				removed++
			}
		}
	}

	return removed, nil
}

// SweepJobHandler adapts Sweep for the worker pool's periodic schedule.
func (s *Store) SweepJobHandler() func(map[string]interface{}) error {
	return func(map[string]interface{}) error {
		removed, err := s.Sweep()
		if err != nil {
			return err
		}

		if removed > 0 {
			logg.Infof("swept %v expired recordings", removed)
		}
		return nil
	}
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func (s *Store) userDir(userID uint) (string, error) {
	dir := filepath.Join(s.dir, fmt.Sprintf("user_%v", userID))
	return dir, utils.CreateDirIfNotExist(dir)
}
