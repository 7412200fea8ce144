// Package config loads the daemon configuration from defaults, an optional
// YAML file, an optional .env file and ROZA_* environment variables, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rozadev/roza/common"
	"github.com/rozadev/roza/pkg/rozalib"
	"gopkg.in/yaml.v3"
)

const (
	DefaultFileName = "config.yaml"
	DefaultEnvFile  = ".env"
	DefaultListen   = "127.0.0.1:7650"
	appDirName      = "roza"
)

type LocationConfig struct {
	City        string   `yaml:"city"`
	Name        string   `yaml:"name"`
	Latitude    *float64 `yaml:"latitude"`
	Longitude   *float64 `yaml:"longitude"`
	CountryCode string   `yaml:"country_code"`
	// Refresh is a cron expression for re-resolving the location.
	Refresh string `yaml:"refresh"`
}

type TrackingConfig struct {
	Madhab     string        `yaml:"madhab"`
	Method     string        `yaml:"method"`
	Mode       string        `yaml:"mode"`
	Timezone   string        `yaml:"timezone"`
	Rollover   time.Duration `yaml:"rollover"`
	FireWindow time.Duration `yaml:"fire_window"`
	Tick       time.Duration `yaml:"tick"`
}

type AudioConfig struct {
	LocalFile   string        `yaml:"local_file"`
	RemoteURL   string        `yaml:"remote_url"`
	Command     []string      `yaml:"command"`
	PlayTimeout time.Duration `yaml:"play_timeout"`
	// Unlocked starts the daemon with playback allowed.
	Unlocked bool `yaml:"unlocked"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type NotifyConfig struct {
	Desktop bool       `yaml:"desktop"`
	MQTT    MQTTConfig `yaml:"mqtt"`
}

type GeocoderConfig struct {
	PrimaryURL  string `yaml:"primary_url"`
	FallbackURL string `yaml:"fallback_url"`
	UserAgent   string `yaml:"user_agent"`
}

type CalendarConfig struct {
	Start       string        `yaml:"start"`
	Days        int           `yaml:"days"`
	SehriMargin time.Duration `yaml:"sehri_margin"`
	IftarMargin time.Duration `yaml:"iftar_margin"`
}

type DaemonConfig struct {
	Listen    string `yaml:"listen"`
	MaxConns  int    `yaml:"max_conns"`
	LogFile   string `yaml:"log_file"`
	LogFormat string `yaml:"log_format"`
}

// Config is the full daemon configuration.
type Config struct {
	// Dir holds the database, pidfile, secret and audio cache.
	Dir      string         `yaml:"-"`
	Path     string         `yaml:"-"`
	Database string         `yaml:"database"`
	Location LocationConfig `yaml:"location"`
	Tracking TrackingConfig `yaml:"tracking"`
	Audio    AudioConfig    `yaml:"audio"`
	Notify   NotifyConfig   `yaml:"notify"`
	Geocoder GeocoderConfig `yaml:"geocoder"`
	Calendar CalendarConfig `yaml:"calendar"`
	Daemon   DaemonConfig   `yaml:"daemon"`
}

// Dir returns the config directory: ROZA_CONFIG_DIR or
// os.UserConfigDir()/roza.
func Dir() (string, error) {
	if d := os.Getenv(common.ConfigDirEnv); d != "" {
		return d, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("error: cannot determine config dir: %w", err)
	}
	return filepath.Join(base, appDirName), nil
}

// Default returns a configuration rooted at dir.
func Default(dir string) *Config {
	return &Config{
		Dir:      dir,
		Path:     filepath.Join(dir, DefaultFileName),
		Database: filepath.Join(dir, "roza.db"),
		Location: LocationConfig{Refresh: "0 3 * * *"},
		Tracking: TrackingConfig{
			Madhab:     string(rozalib.MadhabHanafi),
			Mode:       rozalib.ModeAutomatic.String(),
			Rollover:   rozalib.DefaultRollover,
			FireWindow: rozalib.DefaultFireWindow,
			Tick:       time.Second,
		},
		Audio: AudioConfig{
			LocalFile:   filepath.Join(dir, "notification.mp3"),
			RemoteURL:   "https://assets.mixkit.co/active_storage/sfx/2869/2869-preview.mp3",
			PlayTimeout: 30 * time.Second,
		},
		Notify: NotifyConfig{
			Desktop: true,
			MQTT:    MQTTConfig{Topic: "roza/alerts", ClientID: "roza"},
		},
		Calendar: CalendarConfig{
			Start:       "2026-02-18",
			Days:        30,
			SehriMargin: time.Minute,
			IftarMargin: time.Minute,
		},
		Daemon: DaemonConfig{
			Listen:    DefaultListen,
			MaxConns:  32,
			LogFormat: "text",
		},
	}
}

// Load reads the configuration. path may be empty, in which case
// ROZA_CONFIG or <dir>/config.yaml is used; a missing default file is not
// an error, a missing explicit file is.
func Load(path string) (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	cfg := Default(dir)

	explicit := path != ""
	if !explicit {
		if p := os.Getenv(common.ConfigEnv); p != "" {
			path, explicit = p, true
		} else {
			path = cfg.Path
		}
	}
	cfg.Path = path

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error: invalid config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("error: cannot read config: %w", err)
	}

	dotenv, err := readDotenv(filepath.Join(dir, DefaultEnvFile), DefaultEnvFile)
	if err != nil {
		return nil, err
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// readDotenv merges the existing .env files; later files win.
func readDotenv(paths ...string) (map[string]string, error) {
	out := map[string]string{}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		m, err := godotenv.Read(p)
		if err != nil {
			return nil, fmt.Errorf("error: invalid env file %s: %w", p, err)
		}
		for k, v := range m {
			out[k] = v
		}
	}
	return out, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	float := func(key string, dst **float64) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("error: %s: %w", key, err)
		}
		*dst = &f
		return nil
	}
	str(common.ListenEnv, &c.Daemon.Listen)
	str(common.CityEnv, &c.Location.City)
	str(common.TimezoneEnv, &c.Tracking.Timezone)
	str(common.MadhabEnv, &c.Tracking.Madhab)
	str(common.MethodEnv, &c.Tracking.Method)
	str(common.LogFormatEnv, &c.Daemon.LogFormat)
	str(common.AudioURLEnv, &c.Audio.RemoteURL)
	str(common.MQTTBrokerEnv, &c.Notify.MQTT.Broker)
	str(common.MQTTUsernameEnv, &c.Notify.MQTT.Username)
	str(common.MQTTPasswordEnv, &c.Notify.MQTT.Password)
	if err := float(common.LatitudeEnv, &c.Location.Latitude); err != nil {
		return err
	}
	return float(common.LongitudeEnv, &c.Location.Longitude)
}

// Validate checks values that would otherwise fail deep inside the daemon.
func (c *Config) Validate() error {
	if _, err := rozalib.ParseMadhab(c.Tracking.Madhab); err != nil {
		return fmt.Errorf("error: tracking.madhab: %w", err)
	}
	if _, err := rozalib.ParseTrackingMode(c.Tracking.Mode); err != nil {
		return fmt.Errorf("error: tracking.mode: %w", err)
	}
	if (c.Location.Latitude == nil) != (c.Location.Longitude == nil) {
		return errors.New("error: location.latitude and location.longitude must be set together")
	}
	if c.Tracking.Rollover < 0 || c.Tracking.FireWindow < 0 {
		return errors.New("error: durations must not be negative")
	}
	if _, err := c.Zone(); err != nil {
		return err
	}
	if _, err := rozalib.ParseCalendarDate(c.Calendar.Start); err != nil {
		return fmt.Errorf("error: calendar.start: %w", err)
	}
	return nil
}

// Zone resolves the configured IANA zone, defaulting to the host zone.
func (c *Config) Zone() (*time.Location, error) {
	if c.Tracking.Timezone == "" {
		return time.Local, nil
	}
	z, err := time.LoadLocation(c.Tracking.Timezone)
	if err != nil {
		return nil, fmt.Errorf("error: tracking.timezone: %w", err)
	}
	return z, nil
}

// FixedLocation returns the configured coordinates, if any.
func (c *Config) FixedLocation() *rozalib.Location {
	if c.Location.Latitude == nil || c.Location.Longitude == nil {
		return nil
	}
	return &rozalib.Location{
		Name:        c.Location.Name,
		Latitude:    *c.Location.Latitude,
		Longitude:   *c.Location.Longitude,
		CountryCode: strings.ToUpper(c.Location.CountryCode),
	}
}

// PidFile, SecretFile and CacheDir live in Dir.
func (c *Config) PidFile() string    { return filepath.Join(c.Dir, "daemon.pid") }
func (c *Config) SecretFile() string { return filepath.Join(c.Dir, "rpc-secret") }
func (c *Config) CacheDir() string   { return filepath.Join(c.Dir, "audio-cache") }

// EnsureDir creates Dir with user-only permissions.
func (c *Config) EnsureDir() error {
	if err := os.MkdirAll(c.Dir, 0o700); err != nil {
		return fmt.Errorf("error: cannot create %s: %w", c.Dir, err)
	}
	return nil
}
