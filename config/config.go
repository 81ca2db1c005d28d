// Package config holds the configuration keys, defaults and helpers of the bot. The
// configuration is a viper instance layered from defaults, an optional config file,
// environment variables and a .env file.
package config

import (
	"fmt"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"
)

const (
	TokenKey             = "token"             // Slack bot token (xoxb-...)
	AppTokenKey          = "appToken"          // Slack app-level token used by socket mode (xapp-...)
	DebugKey             = "debug"             // Debug mode
	UserInfoCacheSizeKey = "userInfoCacheSize" // Number of user infos to keep in cache
	TimeLocationKey      = "timeLocation"      // Time location used by the scheduler
	AdminsKey            = "admins"            // User ids allowed to run admin commands. Slack admins/owners when empty
	PluginsKey           = "plugins"           // Root of plugin configuration
	SlashCommandKey      = "slashCommand"      // Slash command routed to plugin commands

	StoragePathKey = "storage.path"      // Directory holding the store and log files
	StoreFileKey   = "storage.storeFile" // Store file name
	LogFileKey     = "storage.logFile"   // Log file name
	SchemaKey      = "storage.schema"    // Store schema: simple or kills_deaths
	LogFormatKey   = "storage.logFormat" // Log format: text or json

	RemoteBackendKey         = "remote.backend"         // Remote backend: gdrive, datastore, leveldb or empty for local only
	RemoteCredentialsKey     = "remote.credentials"     // Service account credentials json content
	RemoteCredentialsFileKey = "remote.credentialsFile" // Service account credentials file
	GCloudProjectIDKey       = "remote.gcloudProjectID" // Google cloud project id (datastore)
	DatastoreKindKey         = "remote.datastoreKind"   // Datastore entity kind
	LevelDBPathKey           = "remote.leveldbPath"     // Directory of the leveldb mirror
	StoreBlobIDKey           = "remote.storeBlobID"     // Remote identifier of the store blob
	LogBlobIDKey             = "remote.logBlobID"       // Remote identifier of the log blob
	BackupBlobIDKey          = "remote.backupBlobID"    // Remote identifier of the extra store backup blob
	ChunkSizeKey             = "remote.chunkSize"       // Resumable upload chunk size in bytes

	BackupIntervalKey = "backup.interval"      // Time between periodic backups
	MinStoreBytesKey  = "backup.minStoreBytes" // Minimum size of a store file worth pushing
	RestoreWindowKey  = "restore.window"       // Restore confirmation window

	KeepaliveAddressKey = "keepalive.address" // Listen address of the keep-alive and metrics server. Disabled when empty
	LoggingFormatKey    = "logging.format"    // Log output format: console or json
	LoggingLevelKey     = "logging.level"     // Log level
)

// Remote backends
const (
	BackendNone      = ""
	BackendGDrive    = "gdrive"
	BackendDatastore = "datastore"
	BackendLevelDB   = "leveldb"
)

var (
	// ErrMissingToken is returned by Validate when a slack token is missing
	ErrMissingToken = errors.New("missing slack token")

	// ErrInvalidSetting is returned by Validate when a configured value is out of range
	ErrInvalidSetting = errors.New("invalid setting")
)

// settings are the values checked by Validate. The key tag names the configuration key
// reported on failure
type settings struct {
	Schema          string        `key:"storage.schema" validate:"oneof=simple kills_deaths"`
	LogFormat       string        `key:"storage.logFormat" validate:"oneof=text json"`
	ChunkSize       int           `key:"remote.chunkSize" validate:"gte=0"`
	BackupInterval  time.Duration `key:"backup.interval" validate:"gte=0"`
	MinStoreBytes   int64         `key:"backup.minStoreBytes" validate:"gte=0"`
	RestoreWindow   time.Duration `key:"restore.window" validate:"gt=0"`
	LeaderboardSize int           `key:"plugins.teamkill.leaderboardSize" validate:"gt=0"`
	LoggingFormat   string        `key:"logging.format" validate:"oneof=console json"`
	LoggingLevel    string        `key:"logging.level" validate:"omitempty,oneof=debug info warn error"`
}

var validate = newValidator()

func newValidator() (vd *validator.Validate) {
	vd = validator.New()
	vd.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("key")
	})

	return vd
}

var envBindings = map[string]string{
	TokenKey:             "SLACK_BOT_TOKEN",
	AppTokenKey:          "SLACK_APP_TOKEN",
	RemoteCredentialsKey: "GOOGLE_CREDENTIALS",
	GCloudProjectIDKey:   "GOOGLE_CLOUD_PROJECT",
	StoreBlobIDKey:       "DRIVE_FILE_ID",
	LogBlobIDKey:         "DRIVE_LOGS_ID",
	BackupBlobIDKey:      "DRIVE_BACKUP_ID",
	AdminsKey:            "TKSCOT_ADMINS",
	DebugKey:             "TKSCOT_DEBUG",
	KeepaliveAddressKey:  "TKSCOT_KEEPALIVE_ADDRESS",
}

// NewViperWithDefaults creates a new viper instance with the default values
func NewViperWithDefaults() (v *viper.Viper) {
	v = viper.New()
	v.SetDefault(DebugKey, false)
	v.SetDefault(UserInfoCacheSizeKey, 0)
	v.SetDefault(TimeLocationKey, "Local")
	v.SetDefault(AdminsKey, []string{})
	v.SetDefault(SlashCommandKey, "/tk")
	v.SetDefault(PluginsKey+".teamkill.leaderboardSize", 10)

	v.SetDefault(StoragePathKey, ".")
	v.SetDefault(StoreFileKey, "data.json")
	v.SetDefault(LogFileKey, "logs.txt")
	v.SetDefault(SchemaKey, "simple")
	v.SetDefault(LogFormatKey, "text")

	v.SetDefault(RemoteBackendKey, BackendNone)
	v.SetDefault(DatastoreKindKey, "tkscotBlob")
	v.SetDefault(LevelDBPathKey, "~/.tkscot/mirror")
	v.SetDefault(ChunkSizeKey, 8*1024*1024)

	v.SetDefault(BackupIntervalKey, 15*time.Minute)
	v.SetDefault(MinStoreBytesKey, 3)
	v.SetDefault(RestoreWindowKey, 30*time.Second)

	v.SetDefault(KeepaliveAddressKey, "")
	v.SetDefault(LoggingFormatKey, "console")
	v.SetDefault(LoggingLevelKey, "info")

	return v
}

// LayerConfigWithDefaults layers the default values under an existing viper instance
func LayerConfigWithDefaults(v *viper.Viper) (lv *viper.Viper) {
	defaults := NewViperWithDefaults()
	for _, key := range defaults.AllKeys() {
		v.SetDefault(key, defaults.Get(key))
	}

	return v
}

// BindEnv binds the configuration keys to their environment variables
func BindEnv(v *viper.Viper) (err error) {
	for key, env := range envBindings {
		if err = v.BindEnv(key, env); err != nil {
			return err
		}
	}

	return nil
}

// Load loads the .env file (if present) and the configuration file (if given) into v.
// Environment variables are bound last and take precedence over the file
func Load(v *viper.Viper, configFile string, envFile string) (err error) {
	if envFile != "" {
		if err = godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "failed to load env file [%s]", envFile)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err = v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "failed to read configuration file [%s]", configFile)
		}
	}

	return BindEnv(v)
}

// Validate returns an error if a required configuration value is missing or if a value is
// out of range. Only the slack tokens are required: every other missing value degrades gracefully
func Validate(v *viper.Viper) (err error) {
	if strings.TrimSpace(v.GetString(TokenKey)) == "" {
		return errors.Wrapf(ErrMissingToken, "set [%s] or %s", TokenKey, envBindings[TokenKey])
	}

	if strings.TrimSpace(v.GetString(AppTokenKey)) == "" {
		return errors.Wrapf(ErrMissingToken, "set [%s] or %s", AppTokenKey, envBindings[AppTokenKey])
	}

	s := settings{
		Schema:          v.GetString(SchemaKey),
		LogFormat:       v.GetString(LogFormatKey),
		ChunkSize:       v.GetInt(ChunkSizeKey),
		BackupInterval:  v.GetDuration(BackupIntervalKey),
		MinStoreBytes:   v.GetInt64(MinStoreBytesKey),
		RestoreWindow:   v.GetDuration(RestoreWindowKey),
		LeaderboardSize: v.GetInt(PluginsKey + ".teamkill.leaderboardSize"),
		LoggingFormat:   v.GetString(LoggingFormatKey),
		LoggingLevel:    v.GetString(LoggingLevelKey),
	}

	if err = validate.Struct(s); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}

		invalid := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			invalid = append(invalid, fmt.Sprintf("[%s] value [%v] fails [%s]", fe.Field(), fe.Value(), fe.ActualTag()))
		}

		return errors.Wrap(ErrInvalidSetting, strings.Join(invalid, ", "))
	}

	return nil
}

// GetTimeLocation returns the time location from the configuration
func GetTimeLocation(v *viper.Viper) (timeLoc *time.Location, err error) {
	timeLoc, err = time.LoadLocation(v.GetString(TimeLocationKey))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load time location [%s]", v.GetString(TimeLocationKey))
	}

	return timeLoc, nil
}

// GetPluginConfig returns the viper sub-tree for a plugin
func GetPluginConfig(v *viper.Viper, name string) (pluginConfig *viper.Viper, err error) {
	pluginConfig = v.Sub(PluginsKey + "." + name)
	if pluginConfig == nil {
		return nil, fmt.Errorf("Missing plugin configuration for plugin [%s]", name)
	}

	return pluginConfig, nil
}

// GetAdmins returns the configured admin user ids. A single string value is split on
// commas and spaces
func GetAdmins(v *viper.Viper) (admins []string) {
	raw := v.Get(AdminsKey)

	if s, ok := raw.(string); ok {
		return strings.FieldsFunc(s, func(r rune) bool {
			return r == ',' || r == ' '
		})
	}

	admins, err := cast.ToStringSliceE(raw)
	if err != nil {
		return []string{}
	}

	return admins
}

// StorePath returns the expanded path of the store file
func StorePath(v *viper.Viper) (path string, err error) {
	return storageFile(v, StoreFileKey)
}

// LogPath returns the expanded path of the log file
func LogPath(v *viper.Viper) (path string, err error) {
	return storageFile(v, LogFileKey)
}

func storageFile(v *viper.Viper, key string) (path string, err error) {
	// Expand '~' as the full home directory path if appropriate
	dir, err := homedir.Expand(v.GetString(StoragePathKey))
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, v.GetString(key)), nil
}

// RemoteSettings holds everything needed to build a remote blob client
type RemoteSettings struct {
	Backend         string
	Credentials     []byte
	CredentialsFile string
	ProjectID       string
	DatastoreKind   string
	LevelDBPath     string
	StoreBlobID     string
	LogBlobID       string
	BackupBlobID    string
	ChunkSize       int
}

// Enabled returns true if a remote backend is configured
func (rs RemoteSettings) Enabled() bool {
	return rs.Backend != BackendNone
}

// GetRemoteSettings returns the remote settings. Incomplete settings degrade to local only
// persistence: the returned reason explains why the backend was disabled
func GetRemoteSettings(v *viper.Viper) (rs RemoteSettings, disabledReason string, err error) {
	rs = RemoteSettings{
		Backend:         strings.ToLower(strings.TrimSpace(v.GetString(RemoteBackendKey))),
		Credentials:     []byte(v.GetString(RemoteCredentialsKey)),
		CredentialsFile: v.GetString(RemoteCredentialsFileKey),
		ProjectID:       v.GetString(GCloudProjectIDKey),
		DatastoreKind:   v.GetString(DatastoreKindKey),
		LevelDBPath:     v.GetString(LevelDBPathKey),
		StoreBlobID:     v.GetString(StoreBlobIDKey),
		LogBlobID:       v.GetString(LogBlobIDKey),
		BackupBlobID:    v.GetString(BackupBlobIDKey),
		ChunkSize:       v.GetInt(ChunkSizeKey),
	}

	// A drive file id without an explicit backend means the default deployment
	if rs.Backend == BackendNone && rs.StoreBlobID != "" && len(rs.Credentials) > 0 {
		rs.Backend = BackendGDrive
	}

	disable := func(reason string) (RemoteSettings, string, error) {
		rs.Backend = BackendNone
		return rs, reason, nil
	}

	switch rs.Backend {
	case BackendNone:
		return disable("no remote backend configured")
	case BackendGDrive:
		if len(rs.Credentials) == 0 && rs.CredentialsFile == "" {
			return disable("missing google credentials")
		}
	case BackendDatastore:
		if rs.ProjectID == "" {
			return disable("missing google cloud project id")
		}
	case BackendLevelDB:
		if rs.LevelDBPath == "" {
			return disable("missing leveldb path")
		}
	default:
		return rs, "", fmt.Errorf("unknown remote backend [%s]", rs.Backend)
	}

	if rs.StoreBlobID == "" && rs.LogBlobID == "" {
		return disable("no remote blob identifiers configured")
	}

	return rs, "", nil
}
