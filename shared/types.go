package shared

type ServerConfig struct {
	Sqlite   SqliteConfig   `mapstructure:"sqlite" validate:"required"`
	SafeLady SafeLadyConfig `mapstructure:"safelady" validate:"required"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Twilio   TwilioConfig   `mapstructure:"twilio"`
	Google   GoogleConfig   `mapstructure:"google"`
}

type SqliteConfig struct {
	PassPhrase string `mapstructure:"passPhrase" validate:"required"`
}

type SafeLadyConfig struct {
	PrivateKeyPem string         `mapstructure:"privateKeyPem" validate:"required"`
	Cron          CronConfig     `mapstructure:"cron" validate:"required"`
	Listener      ListenerConfig `mapstructure:"listener" validate:"required"`
	Dispatch      DispatchConfig `mapstructure:"dispatch"`
}

type CronConfig struct {
	TimeZone string `mapstructure:"timeZone" validate:"required"`
}

type ListenerConfig struct {
	Port int `mapstructure:"port" validate:"required"`
}

// DispatchConfig tunes the detection triggers feeding the alert dispatcher.
// Zero values fall back to the defaults used by the mobile client.
type DispatchConfig struct {
	MotionThreshold        float64 `mapstructure:"motionThreshold"`
	MotionCooldownSeconds  int     `mapstructure:"motionCooldownSeconds"`
	SpeechHoldoffSeconds   int     `mapstructure:"speechHoldoffSeconds"`
	RecordingMaxSeconds    int     `mapstructure:"recordingMaxSeconds"`
	RecordingRetentionDays int     `mapstructure:"recordingRetentionDays"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"botToken"`

	// BaseURL overrides the Telegram API host. Used in tests.
	BaseURL string `mapstructure:"baseUrl"`
}

type TwilioConfig struct {
	AccountSid          string `mapstructure:"accountSid"`
	AuthToken           string `mapstructure:"authToken"`
	MessagingServiceSid string `mapstructure:"messagingServiceSid"`
}

type GoogleConfig struct {
	ApplicationCredentials string        `mapstructure:"applicationCredentials"`
	Storage                StorageConfig `mapstructure:"storage"`
}

type StorageConfig struct {
	Bucket                    string      `mapstructure:"bucket" validate:"required_with=EnableSqliteBackupAndSync"`
	Prefix                    string      `mapstructure:"prefix" validate:"required_with=EnableSqliteBackupAndSync"`
	SqliteBackupSchedule      string      `mapstructure:"sqliteBackupSchedule" validate:"required_with=EnableSqliteBackupAndSync"`
	EnableSqliteBackupAndSync interface{} `mapstructure:"enableSqliteBackupAndSync" validate:"omitempty,bool"`
}
