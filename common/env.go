// Package common provides shared wire types and constants used across the
// roza daemon and its clients.
package common

// Environment variable names for configuration.
const (
	// ConfigEnv points at the YAML config file.
	ConfigEnv = "ROZA_CONFIG"

	// ConfigDirEnv overrides the config and state directory.
	ConfigDirEnv = "ROZA_CONFIG_DIR"

	ListenEnv    = "ROZA_LISTEN"
	CityEnv      = "ROZA_CITY"
	LatitudeEnv  = "ROZA_LATITUDE"
	LongitudeEnv = "ROZA_LONGITUDE"
	TimezoneEnv  = "ROZA_TIMEZONE"
	MadhabEnv    = "ROZA_MADHAB"
	MethodEnv    = "ROZA_METHOD"
	LogFormatEnv = "ROZA_LOG_FORMAT"
	AudioURLEnv  = "ROZA_AUDIO_URL"

	MQTTBrokerEnv   = "ROZA_MQTT_BROKER"
	MQTTUsernameEnv = "ROZA_MQTT_USERNAME"
	MQTTPasswordEnv = "ROZA_MQTT_PASSWORD"

	// TokenEnv supplies the RPC secret to clients, bypassing the keyring.
	TokenEnv = "ROZA_TOKEN"
)
