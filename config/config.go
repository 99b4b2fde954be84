package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const defaultPath = "."

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		APIPort    int    `json:"apiPort" yaml:"apiPort"`
		WorkerPort int    `json:"workerPort" yaml:"workerPort"`
		APIToken   string `json:"apiToken" yaml:"apiToken"`
		Timeouts   struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
	} `json:"http" yaml:"http"`

	// Geofence configures the reconciliation engine.
	Geofence GeofenceConfig `json:"geofence" yaml:"geofence"`

	// StateStore configures where the bookkeeping map and notification
	// ledger are persisted.
	StateStore StateStoreConfig `json:"stateStore" yaml:"stateStore"`

	// Firebase configuration for push notification delivery.
	Firebase *FirebaseConfig `json:"firebase" yaml:"firebase"`

	// PubSub configuration for the in-app alert event stream.
	PubSub *PubSubConfig `json:"pubsub" yaml:"pubsub"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// GeofenceConfig defines the engine's operating limits. The defaults mirror
// the platform constraints: at most 20 concurrently monitored regions and a
// 50–50000 meter radius window.
type GeofenceConfig struct {
	// MaxMonitoredRegions is the platform ceiling on simultaneously
	// monitored regions.
	MaxMonitoredRegions int `json:"maxMonitoredRegions" yaml:"maxMonitoredRegions" validate:"min=1"`

	// NotificationCooldown is the minimum wall-clock interval between two
	// alerts for the same spot.
	NotificationCooldown time.Duration `json:"notificationCooldown" yaml:"notificationCooldown" validate:"min=1m"`

	// SignificantMoveMeters is the movement threshold past which the
	// lifecycle bridge flags that re-prioritization should be considered.
	SignificantMoveMeters float64 `json:"significantMoveMeters" yaml:"significantMoveMeters" validate:"gt=0"`

	// PermissionDecisionTimeout bounds how long an upgrade request waits for
	// the authorization-change event before re-checking state.
	PermissionDecisionTimeout time.Duration `json:"permissionDecisionTimeout" yaml:"permissionDecisionTimeout" validate:"gt=0"`

	// GloballyEnabled is the master switch. When false every region is torn
	// down regardless of candidates or permission.
	GloballyEnabled bool `json:"globallyEnabled" yaml:"globallyEnabled"`
}

// StateStoreConfig selects and configures the persistence backend for the
// two flat key-value maps.
type StateStoreConfig struct {
	// Provider is "file" or "redis".
	Provider string `json:"provider" yaml:"provider"`

	// Path is the state directory for the file provider.
	Path string `json:"path" yaml:"path"`

	// Redis connection settings for the redis provider.
	RedisAddr     string `json:"redisAddr" yaml:"redisAddr"`
	RedisPassword string `json:"redisPassword" yaml:"redisPassword"`
	RedisDB       int    `json:"redisDb" yaml:"redisDb"`
	KeyPrefix     string `json:"keyPrefix" yaml:"keyPrefix"`
}

// FirebaseConfig defines Firebase configuration for push notifications and
// device commands.
type FirebaseConfig struct {
	ProjectID       string `json:"projectId" yaml:"projectId"`
	CredentialsPath string `json:"credentialsPath" yaml:"credentialsPath"`
	// DeviceToken is the FCM registration token of the paired device.
	DeviceToken string `json:"deviceToken" yaml:"deviceToken"`
}

// PubSubConfig defines Pub/Sub configuration for alert event publishing.
type PubSubConfig struct {
	// Provider type: "local" for local HTTP or "google" for Google Pub/Sub.
	Provider string `json:"provider" yaml:"provider"`

	// Google Cloud project ID (for google provider).
	ProjectID string `json:"projectId" yaml:"projectId"`

	// Pub/Sub topic ID (for google provider).
	TopicID string `json:"topicId" yaml:"topicId"`

	// Local HTTP endpoint for development (for local provider).
	LocalEndpoint string `json:"localEndpoint" yaml:"localEndpoint"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			abs := filepath.Join(pwd, path)
			searchPaths = append(searchPaths, abs)
		}
	}

	// Try to find and load the config file
	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	// Load YAML config file
	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// Load environment variables
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to path and align each segment with existing YAML keys.
			// Example: STATESTORE_REDISADDR -> stateStore.redisAddr (not statestore.redisaddr)
			key := canonicalizeEnvKey(k, existingConfigMap)

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	// Unmarshal into the config struct (case-insensitive to match env vars)
	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	cfg.applyGeofenceDefaults()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "validate config failed")
	}

	return cfg, nil
}

// applyGeofenceDefaults fills in the platform-derived engine limits when the
// config file leaves them unset.
func (c *Config) applyGeofenceDefaults() {
	if c.Geofence.MaxMonitoredRegions == 0 {
		c.Geofence.MaxMonitoredRegions = 20
	}
	if c.Geofence.NotificationCooldown == 0 {
		c.Geofence.NotificationCooldown = 120 * time.Minute
	}
	if c.Geofence.SignificantMoveMeters == 0 {
		c.Geofence.SignificantMoveMeters = 1000
	}
	if c.Geofence.PermissionDecisionTimeout == 0 {
		c.Geofence.PermissionDecisionTimeout = time.Second
	}
	if c.StateStore.Provider == "" {
		c.StateStore.Provider = "file"
	}
	if c.StateStore.Path == "" {
		c.StateStore.Path = "./state"
	}
	if c.StateStore.KeyPrefix == "" {
		c.StateStore.KeyPrefix = "spotfence"
	}
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}
