// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package probe runs a full device discovery against a driver and
// keeps the result as a Snapshot.
package probe

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/loov/hrtime"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/vkprobe/config"
	"github.com/devblok/vkprobe/device"
)

// Snapshot is everything a probe found. Device handles are not
// valid anymore once Probe returns.
type Snapshot struct {
	ID      uuid.UUID               `json:"id"`
	Taken   time.Time               `json:"taken"`
	Result  device.Result           `json:"result"`
	Devices []device.PhysicalDevice `json:"devices"`
}

// Incomplete tells whether the driver had more devices than were described.
func (s *Snapshot) Incomplete() bool {
	return s.Result == device.Incomplete
}

// New creates a Prober for driver.
func New(driver device.Driver, cfg config.EnumerationConfiguration, logger log.FieldLogger) *Prober {
	return &Prober{
		driver: driver,
		cfg:    cfg,
		logger: logger,
	}
}

// Prober performs probes. Probes against the same driver must not run
// concurrently.
type Prober struct {
	driver device.Driver
	cfg    config.EnumerationConfiguration
	logger log.FieldLogger
}

// Probe creates an instance, describes the devices and destroys the
// instance again.
func (p *Prober) Probe() (*Snapshot, error) {
	start := hrtime.Now()

	instance, res, err := device.NewInstance(p.driver)
	if err != nil {
		return nil, errors.Wrap(err, "creating instance")
	}
	defer instance.Destroy()

	var devs []device.PhysicalDevice
	if p.cfg.All {
		devs, res, err = instance.EnumerateAll()
	} else {
		devs, res, err = instance.Enumerate(p.cfg.DeviceCapacity)
	}
	if err != nil {
		return nil, errors.Wrap(err, "enumerating physical devices")
	}

	if res == device.Incomplete {
		p.logger.WithFields(log.Fields{
			"count":    len(devs),
			"capacity": p.cfg.DeviceCapacity,
		}).Warn("more physical devices present than described")
	}
	for _, dev := range devs {
		if dev.QueueFamiliesIncomplete {
			p.logger.WithFields(log.Fields{
				"device": dev.Properties.Name,
				"count":  len(dev.QueueFamilies),
			}).Warn("queue families truncated")
		}
	}

	p.logger.WithFields(log.Fields{
		"count":   len(devs),
		"result":  res,
		"elapsed": hrtime.Since(start),
	}).Debug("probe finished")

	return &Snapshot{
		ID:      uuid.New(),
		Taken:   time.Now().UTC(),
		Result:  res,
		Devices: devs,
	}, nil
}
