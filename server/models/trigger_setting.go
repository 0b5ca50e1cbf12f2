package models

const (
	DEFAULT_MOTION_THRESHOLD        = 30.0
	DEFAULT_MOTION_COOLDOWN_SECONDS = 30
)

// TriggerSetting holds the per-user arm/disarm state for the automatic
// detection triggers. The manual button is always available and has no
// setting here.
type TriggerSetting struct {
	BaseModel
	UserID                uint    `json:"user_id" gorm:"not null;unique"`
	MotionActive          bool    `json:"motion_active" gorm:"default:false"`
	SoundActive           bool    `json:"sound_active" gorm:"default:false"`
	MotionThreshold       float64 `json:"motion_threshold" gorm:"default:30"`
	MotionCooldownSeconds int     `json:"motion_cooldown_seconds" gorm:"default:30"`
}

func FindTriggerSetting(userID interface{}) (*TriggerSetting, error) {
	setting := TriggerSetting{}
	err := db.First(&setting, "user_id = ?", userID).Error
	if err != nil {
		return nil, err
	}

	return &setting, nil
}
