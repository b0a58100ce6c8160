// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package devicetest provides an in-memory driver for testing code
// built on top of package device.
package devicetest

import (
	"fmt"

	"github.com/devblok/vkprobe/device"
	"github.com/google/uuid"
)

// Device is the data a fake physical device reports.
type Device struct {
	Properties    device.Properties
	Features      device.Features
	Memory        device.MemoryProperties
	QueueFamilies []device.QueueFamily
}

// Instance is the handle type returned by Driver.CreateInstance.
type Instance struct {
	ID int
}

// Handle is the physical device handle type used by Driver.
type Handle struct {
	Instance int
	Index    int
}

// Driver implements device.Driver over a fixed list of devices.
type Driver struct {
	Devices []Device

	// CreateResult is returned by CreateInstance.
	CreateResult device.Result

	// EnumerateResult, when negative, is returned by every
	// EnumeratePhysicalDevices call.
	EnumerateResult device.Result

	// Created counts successful CreateInstance calls.
	Created int

	// Destroyed counts DestroyInstance calls per instance id.
	Destroyed map[int]int

	// EnumerateCalls counts EnumeratePhysicalDevices calls.
	EnumerateCalls int

	LastApplicationInfo device.ApplicationInfo

	nextID int
}

// NewDriver creates a driver reporting devs.
func NewDriver(devs ...Device) *Driver {
	return &Driver{
		Devices:   devs,
		Destroyed: make(map[int]int),
	}
}

// DestroyCount returns the total number of DestroyInstance calls.
func (d *Driver) DestroyCount() int {
	var n int
	for _, c := range d.Destroyed {
		n += c
	}
	return n
}

// CreateInstance implements device.Driver
func (d *Driver) CreateInstance(info device.ApplicationInfo) (device.InstanceHandle, device.Result) {
	d.LastApplicationInfo = info
	d.nextID++
	if d.CreateResult.Failed() {
		return nil, d.CreateResult
	}
	d.Created++
	return &Instance{ID: d.nextID}, d.CreateResult
}

// DestroyInstance implements device.Driver
func (d *Driver) DestroyInstance(instance device.InstanceHandle) {
	if d.Destroyed == nil {
		d.Destroyed = make(map[int]int)
	}
	d.Destroyed[instance.(*Instance).ID]++
}

// EnumeratePhysicalDevices implements device.Driver
func (d *Driver) EnumeratePhysicalDevices(instance device.InstanceHandle, count *uint32, devices []device.PhysicalDeviceHandle) device.Result {
	d.EnumerateCalls++
	if d.EnumerateResult.Failed() {
		return d.EnumerateResult
	}

	total := uint32(len(d.Devices))
	if devices == nil {
		*count = total
		return device.Success
	}

	res := device.Success
	n := *count
	if uint32(len(devices)) < n {
		n = uint32(len(devices))
	}
	if n < total {
		res = device.Incomplete
	} else {
		n = total
	}

	id := instance.(*Instance).ID
	for idx := uint32(0); idx < n; idx++ {
		devices[idx] = Handle{Instance: id, Index: int(idx)}
	}
	*count = n
	return res
}

func (d *Driver) lookup(handle device.PhysicalDeviceHandle) Device {
	h, ok := handle.(Handle)
	if !ok || h.Index < 0 || h.Index >= len(d.Devices) {
		panic(fmt.Sprintf("devicetest: invalid physical device handle %v", handle))
	}
	return d.Devices[h.Index]
}

// PhysicalDeviceProperties implements device.Driver
func (d *Driver) PhysicalDeviceProperties(handle device.PhysicalDeviceHandle) device.Properties {
	return d.lookup(handle).Properties
}

// PhysicalDeviceFeatures implements device.Driver
func (d *Driver) PhysicalDeviceFeatures(handle device.PhysicalDeviceHandle) device.Features {
	return append(device.Features(nil), d.lookup(handle).Features...)
}

// PhysicalDeviceMemoryProperties implements device.Driver
func (d *Driver) PhysicalDeviceMemoryProperties(handle device.PhysicalDeviceHandle) device.MemoryProperties {
	mem := d.lookup(handle).Memory
	return device.MemoryProperties{
		Heaps: append([]device.MemoryHeap(nil), mem.Heaps...),
		Types: append([]device.MemoryType(nil), mem.Types...),
	}
}

// PhysicalDeviceQueueFamilyProperties implements device.Driver
func (d *Driver) PhysicalDeviceQueueFamilyProperties(handle device.PhysicalDeviceHandle, count *uint32, families []device.QueueFamily) {
	all := d.lookup(handle).QueueFamilies
	if families == nil {
		*count = uint32(len(all))
		return
	}

	n := *count
	if uint32(len(families)) < n {
		n = uint32(len(families))
	}
	if uint32(len(all)) < n {
		n = uint32(len(all))
	}
	copy(families, all[:n])
	*count = n
}

// NewDevice builds a discrete GPU called name with the given
// number of queue families and a typical memory layout.
func NewDevice(name string, queueFamilies int) Device {
	families := make([]device.QueueFamily, queueFamilies)
	for idx := range families {
		flags := device.QueueTransfer
		switch idx % 3 {
		case 0:
			flags |= device.QueueGraphics | device.QueueCompute
		case 1:
			flags |= device.QueueCompute
		}
		families[idx] = device.QueueFamily{
			Flags:                       flags,
			QueueCount:                  uint32(idx%4 + 1),
			TimestampValidBits:          64,
			MinImageTransferGranularity: device.Extent3D{Width: 1, Height: 1, Depth: 1},
		}
	}

	return Device{
		Properties: device.Properties{
			Name:              name,
			Type:              device.DiscreteGPU,
			VendorID:          0x10de,
			DeviceID:          uint32(len(name)),
			APIVersion:        device.MakeVersion(1, 1, 0),
			DriverVersion:     uint32(device.MakeVersion(418, 56, 0)),
			PipelineCacheUUID: uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)),
			Limits: []device.Limit{
				{Name: "maxImageDimension2D", Value: "16384"},
				{Name: "maxBoundDescriptorSets", Value: "8"},
			},
		},
		Features: device.Features{
			{Name: "robustBufferAccess", Supported: true},
			{Name: "geometryShader", Supported: true},
			{Name: "shaderFloat64", Supported: false},
		},
		Memory: device.MemoryProperties{
			Heaps: []device.MemoryHeap{
				{Size: 8 << 30, Flags: device.HeapDeviceLocal},
				{Size: 16 << 30},
			},
			Types: []device.MemoryType{
				{HeapIndex: 1},
				{HeapIndex: 0, Flags: device.MemoryDeviceLocal},
				{HeapIndex: 1, Flags: device.MemoryHostVisible | device.MemoryHostCoherent},
				{HeapIndex: 1, Flags: device.MemoryHostVisible | device.MemoryHostCoherent | device.MemoryHostCached},
			},
		},
		QueueFamilies: families,
	}
}
