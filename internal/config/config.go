package config

import (
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mohit83k/aaabridge/internal/routeros"
)

// Config holds all the environment-based configurations.
type Config struct {
	Device      DeviceConfig
	DevicesFile string
	ServiceType string

	RedisAddr string
	RedisPass string
	RedisDB   int
	EventTTL  time.Duration

	LogFilePath string
	LogLevel    string

	RadiusSecret   string
	RadiusAcctPort string
	RadiusCoAPort  int

	MetricsAddr     string
	CollectSchedule string
}

// DeviceConfig describes one access device.
type DeviceConfig struct {
	Name     string        `yaml:"name"`
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port,omitempty"`
	Username string        `yaml:"username,omitempty"`
	Password string        `yaml:"password,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
	TLS      bool          `yaml:"tls,omitempty"`
	// InsecureSkipVerify accepts the self-signed certificates devices ship with.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify,omitempty"`
}

// Load reads the configuration from environment variables.
func Load() Config {
	return Config{
		Device: DeviceConfig{
			Name:               getEnv("DEVICE_NAME", "default"),
			Host:               getEnv("DEVICE_HOST", "192.168.88.1"),
			Port:               getEnvInt("DEVICE_PORT", 0),
			Username:           getEnv("DEVICE_USER", "admin"),
			Password:           getEnv("DEVICE_PASSWORD", ""),
			Timeout:            getEnvDuration("DEVICE_TIMEOUT", routeros.DefaultTimeout),
			TLS:                getEnvBool("DEVICE_TLS", false),
			InsecureSkipVerify: getEnvBool("DEVICE_TLS_INSECURE", false),
		},
		DevicesFile:     getEnv("DEVICES_FILE", ""),
		ServiceType:     getEnv("SERVICE_TYPE", "pppoe"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:       getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		EventTTL:        getEnvDuration("EVENT_TTL", 24*time.Hour),
		LogFilePath:     getEnv("LOG_FILE_PATH", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		RadiusSecret:    getEnv("RADIUS_SECRET", "testing123"),
		RadiusAcctPort:  getEnv("RADIUS_ACCT_PORT", "1813"),
		RadiusCoAPort:   getEnvInt("RADIUS_COA_PORT", 3799),
		MetricsAddr:     getEnv("METRICS_ADDR", ""),
		CollectSchedule: getEnv("COLLECT_SCHEDULE", "@every 1m"),
	}
}

// Resolve picks the device to talk to. An empty name means the device
// described by the environment; any other name is looked up in
// DevicesFile, with unset credentials and timeout inherited from the
// environment device.
func (c Config) Resolve(name string) (DeviceConfig, error) {
	if name == "" || name == c.Device.Name {
		return c.Device, nil
	}
	if c.DevicesFile == "" {
		return DeviceConfig{}, fmt.Errorf("device %q requested but DEVICES_FILE is not set", name)
	}
	devices, err := LoadDevices(c.DevicesFile)
	if err != nil {
		return DeviceConfig{}, err
	}
	for _, d := range devices {
		if d.Name != name {
			continue
		}
		if d.Username == "" {
			d.Username = c.Device.Username
			if d.Password == "" {
				d.Password = c.Device.Password
			}
		}
		if d.Timeout == 0 {
			d.Timeout = c.Device.Timeout
		}
		return d, nil
	}
	return DeviceConfig{}, fmt.Errorf("device %q not found in %s", name, c.DevicesFile)
}

type devicesFile struct {
	Devices []DeviceConfig `yaml:"devices"`
}

// LoadDevices reads a YAML list of device targets.
func LoadDevices(path string) ([]DeviceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read devices file: %w", err)
	}
	var f devicesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse devices file %s: %w", path, err)
	}
	seen := make(map[string]bool, len(f.Devices))
	for i, d := range f.Devices {
		if d.Name == "" || d.Host == "" {
			return nil, fmt.Errorf("devices file %s: entry %d needs name and host", path, i)
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("devices file %s: duplicate device %q", path, d.Name)
		}
		seen[d.Name] = true
	}
	return f.Devices, nil
}

// Address is host:port, with the API default port for the transport.
func (d DeviceConfig) Address() string {
	port := d.Port
	if port == 0 {
		port = routeros.DefaultPort
		if d.TLS {
			port = routeros.DefaultTLSPort
		}
	}
	return net.JoinHostPort(d.Host, strconv.Itoa(port))
}

func (d DeviceConfig) ClientConfig() routeros.Config {
	cfg := routeros.Config{
		Address:  d.Address(),
		Username: d.Username,
		Password: d.Password,
		Timeout:  d.Timeout,
		TLS:      d.TLS,
	}
	if d.TLS {
		cfg.TLSConfig = &tls.Config{
			ServerName:         d.Host,
			InsecureSkipVerify: d.InsecureSkipVerify, //nolint:gosec // opt-in per device
		}
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return defaultVal
}
