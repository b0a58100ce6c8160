// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package probe_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	qt "github.com/frankban/quicktest"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/devblok/vkprobe/archive"
	"github.com/devblok/vkprobe/config"
	"github.com/devblok/vkprobe/device"
	"github.com/devblok/vkprobe/device/devicetest"
	"github.com/devblok/vkprobe/probe"
)

func fakeDevices(n, families int) []devicetest.Device {
	devs := make([]devicetest.Device, n)
	for idx := range devs {
		devs[idx] = devicetest.NewDevice(fmt.Sprintf("gpu%d", idx), families)
	}
	return devs
}

func warnings(hook *test.Hook) []string {
	var messages []string
	for _, entry := range hook.AllEntries() {
		if entry.Level == log.WarnLevel {
			messages = append(messages, entry.Message)
		}
	}
	return messages
}

func TestProbe(t *testing.T) {
	c := qt.New(t)
	driver := devicetest.NewDriver(fakeDevices(2, 3)...)
	logger, hook := test.NewNullLogger()

	s, err := probe.New(driver, config.EnumerationConfiguration{DeviceCapacity: 8}, logger).Probe()
	c.Assert(err, qt.IsNil)
	c.Assert(s.Result, qt.Equals, device.Success)
	c.Assert(s.Incomplete(), qt.IsFalse)
	c.Assert(s.Devices, qt.HasLen, 2)
	c.Assert(s.Devices[1].Properties.Name, qt.Equals, "gpu1")
	c.Assert(driver.Created, qt.Equals, 1)
	c.Assert(driver.DestroyCount(), qt.Equals, 1)
	c.Assert(warnings(hook), qt.HasLen, 0)
}

func TestProbeTruncation(t *testing.T) {
	c := qt.New(t)
	driver := devicetest.NewDriver(fakeDevices(3, 40)...)
	logger, hook := test.NewNullLogger()

	s, err := probe.New(driver, config.EnumerationConfiguration{DeviceCapacity: 2}, logger).Probe()
	c.Assert(err, qt.IsNil)
	c.Assert(s.Incomplete(), qt.IsTrue)
	c.Assert(s.Devices, qt.HasLen, 2)
	for _, dev := range s.Devices {
		c.Assert(dev.QueueFamilies, qt.HasLen, device.MaxQueueFamilies)
		c.Assert(dev.QueueFamiliesIncomplete, qt.IsTrue)
	}
	c.Assert(warnings(hook), qt.DeepEquals, []string{
		"more physical devices present than described",
		"queue families truncated",
		"queue families truncated",
	})
	c.Assert(driver.DestroyCount(), qt.Equals, 1)
}

func TestProbeAll(t *testing.T) {
	c := qt.New(t)
	driver := devicetest.NewDriver(fakeDevices(3, 40)...)
	logger, hook := test.NewNullLogger()

	s, err := probe.New(driver, config.EnumerationConfiguration{DeviceCapacity: 1, All: true}, logger).Probe()
	c.Assert(err, qt.IsNil)
	c.Assert(s.Result, qt.Equals, device.Success)
	c.Assert(s.Devices, qt.HasLen, 3)
	c.Assert(s.Devices[2].QueueFamilies, qt.HasLen, 40)
	c.Assert(s.Devices[2].QueueFamiliesIncomplete, qt.IsFalse)
	c.Assert(warnings(hook), qt.HasLen, 0)
	c.Assert(driver.DestroyCount(), qt.Equals, 1)
}

func TestProbeCreateFailure(t *testing.T) {
	c := qt.New(t)
	driver := devicetest.NewDriver(fakeDevices(1, 1)...)
	driver.CreateResult = device.ErrorIncompatibleDriver
	logger, _ := test.NewNullLogger()

	_, err := probe.New(driver, config.EnumerationConfiguration{DeviceCapacity: 8}, logger).Probe()
	c.Assert(err, qt.ErrorMatches, "creating instance: driver returned incompatible driver \\(-9\\)")
	res, ok := device.ResultOf(err)
	c.Assert(ok, qt.IsTrue)
	c.Assert(res, qt.Equals, device.ErrorIncompatibleDriver)
	c.Assert(driver.DestroyCount(), qt.Equals, 0)
	c.Assert(driver.EnumerateCalls, qt.Equals, 0)
}

func TestProbeEnumerateFailure(t *testing.T) {
	c := qt.New(t)
	driver := devicetest.NewDriver(fakeDevices(1, 1)...)
	driver.EnumerateResult = device.ErrorOutOfHostMemory
	logger, _ := test.NewNullLogger()

	_, err := probe.New(driver, config.EnumerationConfiguration{DeviceCapacity: 8}, logger).Probe()
	c.Assert(err, qt.ErrorMatches, "enumerating physical devices: .*")
	res, _ := device.ResultOf(err)
	c.Assert(res, qt.Equals, device.ErrorOutOfHostMemory)
	c.Assert(driver.DestroyCount(), qt.Equals, 1)
}

func TestArchiveRoundTrip(t *testing.T) {
	c := qt.New(t)
	driver := devicetest.NewDriver(fakeDevices(3, 20)...)
	logger, _ := test.NewNullLogger()

	s, err := probe.New(driver, config.EnumerationConfiguration{DeviceCapacity: 2}, logger).Probe()
	c.Assert(err, qt.IsNil)

	var buf bytes.Buffer
	c.Assert(probe.WriteArchive(&buf, s, "devblok"), qt.IsNil)

	got, header, err := probe.ReadArchive(bytes.NewReader(buf.Bytes()))
	c.Assert(err, qt.IsNil)
	c.Assert(header.ID, qt.Equals, s.ID)
	c.Assert(header.Author, qt.Equals, "devblok")
	c.Assert(header.Version, qt.Equals, int64(probe.ArchiveVersion))
	c.Assert(header.Index, qt.HasLen, 3)
	c.Assert(header.Index[0].Name, qt.Equals, "snapshot.json")
	c.Assert(header.Index[2].Name, qt.Equals, "devices/001.json")

	c.Assert(got.ID, qt.Equals, s.ID)
	c.Assert(got.Taken.Equal(s.Taken), qt.IsTrue)
	c.Assert(got.Result, qt.Equals, device.Incomplete)
	c.Assert(got.Devices, qt.HasLen, 2)
	for idx := range got.Devices {
		want := s.Devices[idx]
		want.Handle = nil
		c.Assert(got.Devices[idx], qt.DeepEquals, want)
	}
}

func TestReadArchiveRejectsGarbage(t *testing.T) {
	c := qt.New(t)
	_, _, err := probe.ReadArchive(bytes.NewReader([]byte("not an archive at all")))
	c.Assert(errors.Is(err, archive.ErrFileFormat), qt.IsTrue)
}

func TestReadArchiveRejectsBadDeviceCount(t *testing.T) {
	c := qt.New(t)
	for _, count := range []string{"-1", "2", "1000000000"} {
		builder := archive.NewBuilder(archive.Header{Version: probe.ArchiveVersion})
		c.Assert(builder.Add("snapshot.json", []byte(`{"result":"success","devices":`+count+`}`)), qt.IsNil)
		c.Assert(builder.Add("devices/000.json", []byte(`{}`)), qt.IsNil)

		var buf bytes.Buffer
		_, err := builder.WriteTo(&buf)
		c.Assert(err, qt.IsNil)

		_, _, err = probe.ReadArchive(bytes.NewReader(buf.Bytes()))
		c.Assert(err, qt.ErrorMatches, "snapshot.json: "+count+" devices, archive holds 2 entries")
		c.Assert(errors.Is(err, archive.ErrFileFormat), qt.IsTrue)
	}
}
