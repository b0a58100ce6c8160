// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/mmap"

	"github.com/devblok/vkprobe/config"
	"github.com/devblok/vkprobe/driver/vulkan"
	"github.com/devblok/vkprobe/probe"
	"github.com/devblok/vkprobe/report"
)

var (
	envFile     = flag.String("env", "", "Dotenv file to load the configuration from")
	format      = flag.String("format", "", "Output format, table or json")
	capacity    = flag.Int("capacity", 0, "Maximum number of devices to describe")
	all         = flag.Bool("all", false, "Describe every device and every queue family")
	archivePath = flag.String("archive", "", "Write the snapshot into this archive")
	readPath    = flag.String("read", "", "Print a snapshot archive instead of probing")
	loader      = flag.String("loader", "", "How the Vulkan library is loaded, default or sdl")
	printConfig = flag.Bool("print-config", false, "Print the default configuration file and exit")
)

func main() {
	flag.Parse()

	logger := log.New()
	logger.SetOutput(os.Stderr)

	if *printConfig {
		template, err := config.Template()
		if err != nil {
			logger.WithError(err).Fatal("config.Template()")
		}
		fmt.Print(template)
		return
	}

	cfg, err := loadConfiguration()
	if err != nil {
		logger.WithError(err).Fatal("loading configuration")
	}
	if err := cfg.Log.Apply(logger); err != nil {
		logger.WithError(err).Fatal("configuring log")
	}

	outputFormat, err := report.ParseFormat(cfg.Output.Format)
	if err != nil {
		logger.WithError(err).Fatal("report.ParseFormat()")
	}

	var snapshot *probe.Snapshot
	if *readPath != "" {
		snapshot, err = readSnapshot(*readPath, logger)
	} else {
		snapshot, err = probeDevices(cfg, logger)
	}
	if err != nil {
		logger.WithError(err).Fatal("no snapshot")
	}

	if *readPath == "" && cfg.Output.Archive != "" {
		if err := writeSnapshot(cfg.Output, snapshot); err != nil {
			logger.WithError(err).Fatal("writing archive")
		}
		logger.WithField("path", cfg.Output.Archive).Info("snapshot archived")
	}

	if err := report.Write(os.Stdout, outputFormat, snapshot); err != nil {
		logger.WithError(err).Fatal("report.Write()")
	}
}

// loadConfiguration reads the dotenv file and applies the flags
// that were given explicitly on top of it.
func loadConfiguration() (config.Configuration, error) {
	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return cfg, err
	}

	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "format":
			cfg.Output.Format = *format
		case "capacity":
			if *capacity < 0 {
				flagErr = errors.Newf("-capacity must not be negative, got %d", *capacity)
			}
			cfg.Enumeration.DeviceCapacity = *capacity
		case "all":
			cfg.Enumeration.All = *all
		case "archive":
			cfg.Output.Archive = *archivePath
		case "loader":
			cfg.Loader.Kind = *loader
		}
	})
	return cfg, flagErr
}

func probeDevices(cfg config.Configuration, logger *log.Logger) (*probe.Snapshot, error) {
	kind, err := vulkan.ParseLoader(cfg.Loader.Kind)
	if err != nil {
		return nil, err
	}

	driver, err := vulkan.New(kind, logger)
	if err != nil {
		return nil, errors.Wrap(err, "loading vulkan")
	}
	defer driver.Close()

	return probe.New(driver, cfg.Enumeration, logger).Probe()
}

func writeSnapshot(cfg config.OutputConfiguration, snapshot *probe.Snapshot) error {
	if _, err := os.Stat(cfg.Archive); err == nil {
		return errors.Newf("%s exists, will not overwrite", cfg.Archive)
	}

	dst, err := os.Create(cfg.Archive)
	if err != nil {
		return err
	}
	if err := probe.WriteArchive(dst, snapshot, cfg.Author); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

func readSnapshot(path string, logger log.FieldLogger) (*probe.Snapshot, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	snapshot, header, err := probe.ReadArchive(r)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	logger.WithFields(log.Fields{
		"author":  header.Author,
		"devices": len(snapshot.Devices),
	}).Debug("snapshot archive read")
	return snapshot, nil
}
