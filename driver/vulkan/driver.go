// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package vulkan implements device.Driver on top of the system Vulkan loader.
package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/devblok/vulkan"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/vkprobe/device"
)

// New resolves the Vulkan entry points with loader and initialises them.
func New(loader Loader, logger log.FieldLogger) (*Driver, error) {
	unload, err := loader.load()
	if err != nil {
		return nil, err
	}

	if err := vk.Init(); err != nil {
		unload()
		return nil, errors.Wrap(err, "vk.Init()")
	}

	logger.WithField("loader", string(loader)).Debug("vulkan entry points loaded")
	return &Driver{
		log:    logger,
		unload: unload,
	}, nil
}

// Driver talks to the Vulkan driver through cgo.
type Driver struct {
	log    log.FieldLogger
	unload func()
}

// Close releases the library loaded by New. All instances
// must be destroyed beforehand.
func (d *Driver) Close() {
	if d == nil || d.unload == nil {
		return
	}
	d.unload()
	d.unload = nil
}

// CreateInstance implements device.Driver
func (d *Driver) CreateInstance(info device.ApplicationInfo) (device.InstanceHandle, device.Result) {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   safeString(info.ApplicationName),
		ApplicationVersion: uint32(info.ApplicationVersion),
		PEngineName:        safeString(info.EngineName),
		EngineVersion:      uint32(info.EngineVersion),
		ApiVersion:         uint32(info.APIVersion),
	}

	instanceInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(info.Extensions)),
		PpEnabledExtensionNames: safeStrings(info.Extensions),
		EnabledLayerCount:       uint32(len(info.Layers)),
		PpEnabledLayerNames:     safeStrings(info.Layers),
	}

	var instance vk.Instance
	res := device.Result(vk.CreateInstance(&instanceInfo, nil, &instance))
	if res.Failed() {
		d.log.WithField("result", res).Debug("vk.CreateInstance() failed")
		return instance, res
	}
	if res := initInstance(instance, vk.InitInstance, d.destroy); res.Failed() {
		d.log.WithField("result", res).Debug("vk.InitInstance() failed")
		return nil, res
	}

	d.log.WithFields(log.Fields{
		"application": info.ApplicationName,
		"apiVersion":  info.APIVersion,
	}).Debug("vulkan instance created")
	return instance, res
}

// DestroyInstance implements device.Driver
func (d *Driver) DestroyInstance(instance device.InstanceHandle) {
	d.destroy(instance.(vk.Instance))
}

func (d *Driver) destroy(instance vk.Instance) {
	vk.DestroyInstance(instance, nil)
	d.log.Debug("vulkan instance destroyed")
}

// initInstance loads the instance level entry points. An instance
// whose entry points cannot be loaded is destroyed right away.
func initInstance(instance vk.Instance, load func(vk.Instance) error, destroy func(vk.Instance)) device.Result {
	if err := load(instance); err != nil {
		destroy(instance)
		return device.ErrorInitializationFailed
	}
	return device.Success
}

// EnumeratePhysicalDevices implements device.Driver
func (d *Driver) EnumeratePhysicalDevices(instance device.InstanceHandle, count *uint32, devices []device.PhysicalDeviceHandle) device.Result {
	var physicalDevices []vk.PhysicalDevice
	if devices != nil {
		// a zero capacity still needs a non-nil array, nil means count query
		physicalDevices = make([]vk.PhysicalDevice, *count, *count+1)
	}

	res := device.Result(vk.EnumeratePhysicalDevices(instance.(vk.Instance), count, physicalDevices))
	if res.Failed() {
		return res
	}

	for idx := uint32(0); idx < *count && int(idx) < len(devices); idx++ {
		devices[idx] = physicalDevices[idx]
	}
	d.log.WithFields(log.Fields{
		"count":  *count,
		"result": res,
	}).Debug("physical devices enumerated")
	return res
}

// PhysicalDeviceProperties implements device.Driver
func (d *Driver) PhysicalDeviceProperties(handle device.PhysicalDeviceHandle) device.Properties {
	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(handle.(vk.PhysicalDevice), &properties)
	properties.Deref()
	properties.Limits.Deref()
	return convertProperties(&properties)
}

// PhysicalDeviceFeatures implements device.Driver
func (d *Driver) PhysicalDeviceFeatures(handle device.PhysicalDeviceHandle) device.Features {
	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(handle.(vk.PhysicalDevice), &features)
	features.Deref()
	return convertFeatures(&features)
}

// PhysicalDeviceMemoryProperties implements device.Driver
func (d *Driver) PhysicalDeviceMemoryProperties(handle device.PhysicalDeviceHandle) device.MemoryProperties {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(handle.(vk.PhysicalDevice), &memoryProperties)
	memoryProperties.Deref()

	var mem device.MemoryProperties
	for idx := uint32(0); idx < memoryProperties.MemoryHeapCount; idx++ {
		memoryProperties.MemoryHeaps[idx].Deref()
		heap := memoryProperties.MemoryHeaps[idx]
		mem.Heaps = append(mem.Heaps, device.MemoryHeap{
			Size:  uint64(heap.Size),
			Flags: device.MemoryHeapFlags(heap.Flags),
		})
	}
	for idx := uint32(0); idx < memoryProperties.MemoryTypeCount; idx++ {
		memoryProperties.MemoryTypes[idx].Deref()
		memoryType := memoryProperties.MemoryTypes[idx]
		mem.Types = append(mem.Types, device.MemoryType{
			HeapIndex: memoryType.HeapIndex,
			Flags:     device.MemoryPropertyFlags(memoryType.PropertyFlags),
		})
	}
	return mem
}

// PhysicalDeviceQueueFamilyProperties implements device.Driver
func (d *Driver) PhysicalDeviceQueueFamilyProperties(handle device.PhysicalDeviceHandle, count *uint32, families []device.QueueFamily) {
	physicalDevice := handle.(vk.PhysicalDevice)
	if families == nil {
		vk.GetPhysicalDeviceQueueFamilyProperties(physicalDevice, count, nil)
		return
	}

	properties := make([]vk.QueueFamilyProperties, *count, *count+1)
	vk.GetPhysicalDeviceQueueFamilyProperties(physicalDevice, count, properties)
	for idx := uint32(0); idx < *count && int(idx) < len(families); idx++ {
		properties[idx].Deref()
		properties[idx].MinImageTransferGranularity.Deref()
		families[idx] = device.QueueFamily{
			Flags:              device.QueueFlags(properties[idx].QueueFlags),
			QueueCount:         properties[idx].QueueCount,
			TimestampValidBits: properties[idx].TimestampValidBits,
			MinImageTransferGranularity: device.Extent3D{
				Width:  properties[idx].MinImageTransferGranularity.Width,
				Height: properties[idx].MinImageTransferGranularity.Height,
				Depth:  properties[idx].MinImageTransferGranularity.Depth,
			},
		}
	}
}

func safeString(s string) string {
	return s + "\x00"
}

func safeStrings(list []string) []string {
	safe := make([]string, len(list))
	for idx, s := range list {
		safe[idx] = safeString(s)
	}
	return safe
}
