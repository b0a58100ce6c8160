// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/vkprobe/config"
)

var keys = []string{
	config.EnvDeviceCapacity,
	config.EnvEnumerateAll,
	config.EnvLoader,
	config.EnvLogLevel,
	config.EnvLogFormat,
	config.EnvOutputFormat,
	config.EnvArchive,
	config.EnvAuthor,
}

// clearEnv unsets every configuration variable for the duration of the test.
func clearEnv(c *qt.C) {
	for _, key := range keys {
		key := key
		previous, ok := os.LookupEnv(key)
		os.Unsetenv(key)
		c.Cleanup(func() {
			if ok {
				os.Setenv(key, previous)
			} else {
				os.Unsetenv(key)
			}
		})
	}
}

func writeEnv(c *qt.C, content string) string {
	path := filepath.Join(c.TempDir(), ".env")
	c.Assert(ioutil.WriteFile(path, []byte(content), 0644), qt.IsNil)
	return path
}

func TestLoadDefaults(t *testing.T) {
	c := qt.New(t)
	clearEnv(c)

	cfg, err := config.Load()
	c.Assert(err, qt.IsNil)
	c.Assert(cfg, qt.DeepEquals, config.Default())
	c.Assert(cfg.Enumeration.DeviceCapacity, qt.Equals, 8)
	c.Assert(cfg.Output.Format, qt.Equals, "table")
}

func TestLoadFile(t *testing.T) {
	c := qt.New(t)
	clearEnv(c)

	path := writeEnv(c, strings.Join([]string{
		"VKPROBE_DEVICE_CAPACITY=2",
		"VKPROBE_ENUMERATE_ALL=true",
		"VKPROBE_LOADER=sdl",
		"VKPROBE_OUTPUT_FORMAT=json",
		"VKPROBE_ARCHIVE=/tmp/devices.kar",
		"VKPROBE_AUTHOR=devblok",
	}, "\n"))

	cfg, err := config.Load(path)
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Enumeration, qt.DeepEquals, config.EnumerationConfiguration{DeviceCapacity: 2, All: true})
	c.Assert(cfg.Loader.Kind, qt.Equals, "sdl")
	c.Assert(cfg.Output, qt.DeepEquals, config.OutputConfiguration{
		Format:  "json",
		Archive: "/tmp/devices.kar",
		Author:  "devblok",
	})
	c.Assert(cfg.Log, qt.DeepEquals, config.Default().Log)
}

func TestEnvironmentWinsOverFile(t *testing.T) {
	c := qt.New(t)
	clearEnv(c)
	os.Setenv(config.EnvDeviceCapacity, "3")

	path := writeEnv(c, "VKPROBE_DEVICE_CAPACITY=5\nVKPROBE_LOG_LEVEL=debug\n")
	cfg, err := config.Load(path)
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Enumeration.DeviceCapacity, qt.Equals, 3)
	c.Assert(cfg.Log.Level, qt.Equals, "debug")
}

func TestLoadInvalid(t *testing.T) {
	c := qt.New(t)
	tests := []struct {
		content string
		err     string
	}{
		{"VKPROBE_DEVICE_CAPACITY=many", "VKPROBE_DEVICE_CAPACITY: .*invalid syntax"},
		{"VKPROBE_DEVICE_CAPACITY=-1", "VKPROBE_DEVICE_CAPACITY must not be negative, got -1"},
		{"VKPROBE_ENUMERATE_ALL=perhaps", "VKPROBE_ENUMERATE_ALL: .*invalid syntax"},
	}

	for _, test := range tests {
		clearEnv(c)
		_, err := config.Load(writeEnv(c, test.content))
		c.Assert(err, qt.ErrorMatches, test.err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	c := qt.New(t)
	clearEnv(c)

	_, err := config.Load(filepath.Join(c.TempDir(), "missing.env"))
	c.Assert(err, qt.ErrorMatches, "loading .*missing.env: .*")
}

func TestTemplateMatchesDefaults(t *testing.T) {
	c := qt.New(t)
	clearEnv(c)

	template, err := config.Template()
	c.Assert(err, qt.IsNil)
	c.Assert(template, qt.Contains, "VKPROBE_DEVICE_CAPACITY=8")

	cfg, err := config.Load(writeEnv(c, template))
	c.Assert(err, qt.IsNil)
	c.Assert(cfg, qt.DeepEquals, config.Default())
}

func TestLogApply(t *testing.T) {
	c := qt.New(t)
	logger := log.New()

	c.Assert(config.LogConfiguration{Level: "debug", Format: "json"}.Apply(logger), qt.IsNil)
	c.Assert(logger.GetLevel(), qt.Equals, log.DebugLevel)
	_, isJSON := logger.Formatter.(*log.JSONFormatter)
	c.Assert(isJSON, qt.IsTrue)

	c.Assert(config.LogConfiguration{Level: "loud"}.Apply(logger), qt.Not(qt.IsNil))
	c.Assert(config.LogConfiguration{Level: "info", Format: "xml"}.Apply(logger), qt.ErrorMatches, `VKPROBE_LOG_FORMAT: unknown log format "xml"`)
}
