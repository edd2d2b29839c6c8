// Package config provides application configuration from environment variables.
package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Settings holds all application configuration.
type Settings struct {
	// Application metadata
	Version  string `envconfig:"VERSION" default:"0.1.0"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// HTTP server settings
	Host string `envconfig:"HOST" default:"0.0.0.0"`
	Port int    `envconfig:"PORT" default:"8080"`

	// MountPoint is the directory every file operation is confined to.
	// On the target device this is the SD card mount.
	MountPoint string `envconfig:"MOUNT_POINT" default:"/mnt/sdcard"`

	// Database settings
	DatabasePath string `envconfig:"DATABASE_PATH" default:"/var/lib/loggerd/settings.db"`

	// Acquisition settings
	SamplePeriod time.Duration `envconfig:"SAMPLE_PERIOD" default:"1s"`

	// SnapshotWait bounds how long readers and the acquisition loop wait
	// for the shared sensor snapshot before giving up.
	SnapshotWait time.Duration `envconfig:"SNAPSHOT_WAIT" default:"25ms"`

	// IIODevices lists the sysfs IIO device directories of the ADC chips,
	// four channels each, in channel order.
	IIODevices []string `envconfig:"IIO_DEVICES" default:"/sys/bus/iio/devices/iio:device0,/sys/bus/iio/devices/iio:device1"`

	// Timeouts
	ReadTimeout time.Duration `envconfig:"READ_TIMEOUT" default:"60s"`
	IdleTimeout time.Duration `envconfig:"IDLE_TIMEOUT" default:"120s"`
}

// ListenAddr returns the address string for the HTTP server to bind to.
func (s *Settings) ListenAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

var (
	cfg  *Settings
	once sync.Once
)

// Get returns the singleton Settings instance.
func Get() *Settings {
	once.Do(func() {
		cfg = &Settings{}
		if err := envconfig.Process("LOGGER", cfg); err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return cfg
}

// Load creates a new Settings instance from environment variables.
func Load() (*Settings, error) {
	s := &Settings{}
	if err := envconfig.Process("LOGGER", s); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return s, nil
}
