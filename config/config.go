// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package config loads the vkprobe configuration from dotenv files
// and the environment.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gobuffalo/envy"
	"github.com/gobuffalo/packr"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Environment variables read by Load
const (
	EnvDeviceCapacity = "VKPROBE_DEVICE_CAPACITY"
	EnvEnumerateAll   = "VKPROBE_ENUMERATE_ALL"
	EnvLoader         = "VKPROBE_LOADER"
	EnvLogLevel       = "VKPROBE_LOG_LEVEL"
	EnvLogFormat      = "VKPROBE_LOG_FORMAT"
	EnvOutputFormat   = "VKPROBE_OUTPUT_FORMAT"
	EnvArchive        = "VKPROBE_ARCHIVE"
	EnvAuthor         = "VKPROBE_AUTHOR"
)

var resources = packr.NewBox("./resources")

// Configuration defines the whole vkprobe configuration
type Configuration struct {
	Enumeration EnumerationConfiguration
	Loader      LoaderConfiguration
	Log         LogConfiguration
	Output      OutputConfiguration
}

// EnumerationConfiguration is used to configure device enumeration
type EnumerationConfiguration struct {
	// DeviceCapacity caps how many devices are described.
	DeviceCapacity int

	// All ignores DeviceCapacity and the queue family bound,
	// describing everything the driver reports.
	All bool
}

// LoaderConfiguration selects how the Vulkan library is loaded
type LoaderConfiguration struct {
	Kind string
}

// LogConfiguration is used to configure logging
type LogConfiguration struct {
	Level  string
	Format string
}

// OutputConfiguration is used to configure reporting
type OutputConfiguration struct {
	Format string

	// Archive, when set, is the path a snapshot archive is written to.
	Archive string
	Author  string
}

// Default returns the configuration used when nothing is set.
func Default() Configuration {
	return Configuration{
		Enumeration: EnumerationConfiguration{
			DeviceCapacity: 8,
		},
		Loader: LoaderConfiguration{
			Kind: "default",
		},
		Log: LogConfiguration{
			Level:  "info",
			Format: "text",
		},
		Output: OutputConfiguration{
			Format: "table",
			Author: currentUser(),
		},
	}
}

// Load reads the given dotenv files, without overriding variables that
// are already set, and builds the configuration from the environment.
func Load(files ...string) (Configuration, error) {
	cfg := Default()

	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return cfg, errors.Wrapf(err, "loading %s", strings.Join(files, ", "))
		}
	}
	envy.Reload()

	var err error
	if cfg.Enumeration.DeviceCapacity, err = intVar(EnvDeviceCapacity, cfg.Enumeration.DeviceCapacity); err != nil {
		return cfg, err
	}
	if cfg.Enumeration.DeviceCapacity < 0 {
		return cfg, errors.Newf("%s must not be negative, got %d", EnvDeviceCapacity, cfg.Enumeration.DeviceCapacity)
	}
	if cfg.Enumeration.All, err = boolVar(EnvEnumerateAll, cfg.Enumeration.All); err != nil {
		return cfg, err
	}

	cfg.Loader.Kind = stringVar(EnvLoader, cfg.Loader.Kind)
	cfg.Log.Level = stringVar(EnvLogLevel, cfg.Log.Level)
	cfg.Log.Format = stringVar(EnvLogFormat, cfg.Log.Format)
	cfg.Output.Format = stringVar(EnvOutputFormat, cfg.Output.Format)
	cfg.Output.Archive = stringVar(EnvArchive, cfg.Output.Archive)
	cfg.Output.Author = stringVar(EnvAuthor, cfg.Output.Author)

	return cfg, nil
}

// Template returns the documented default dotenv file.
func Template() (string, error) {
	return resources.FindString("default.env")
}

// Apply configures logger with the level and format.
func (l LogConfiguration) Apply(logger *log.Logger) error {
	level, err := log.ParseLevel(l.Level)
	if err != nil {
		return errors.Wrapf(err, "%s", EnvLogLevel)
	}
	logger.SetLevel(level)

	switch l.Format {
	case "", "text":
		logger.SetFormatter(&log.TextFormatter{})
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	default:
		return errors.Newf("%s: unknown log format %q", EnvLogFormat, l.Format)
	}
	return nil
}

// stringVar treats empty variables as unset.
func stringVar(key string, fallback string) string {
	if value := envy.Get(key, ""); value != "" {
		return value
	}
	return fallback
}

func intVar(key string, fallback int) (int, error) {
	raw := envy.Get(key, "")
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback, errors.Wrapf(err, "%s", key)
	}
	return value, nil
}

func boolVar(key string, fallback bool) (bool, error) {
	raw := envy.Get(key, "")
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback, errors.Wrapf(err, "%s", key)
	}
	return value, nil
}

func currentUser() string {
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "unknown"
}
