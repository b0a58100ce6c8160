// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

// InstanceHandle is the driver's opaque instance reference.
type InstanceHandle interface{}

// PhysicalDeviceHandle is the driver's opaque physical device reference.
type PhysicalDeviceHandle interface{}

// ApplicationInfo identifies the application to the driver.
type ApplicationInfo struct {
	ApplicationName    string
	ApplicationVersion Version
	EngineName         string
	EngineVersion      Version
	APIVersion         Version
	Extensions         []string
	Layers             []string
}

// DefaultApplicationInfo is the identity every instance is created with.
// No extensions or layers are requested.
var DefaultApplicationInfo = ApplicationInfo{
	ApplicationName:    "vkprobe",
	ApplicationVersion: MakeVersion(1, 0, 0),
	EngineName:         "vkprobe",
	EngineVersion:      MakeVersion(1, 0, 0),
	APIVersion:         MakeVersion(1, 0, 0),
}

// Driver describes the entry points of a graphics/compute driver.
//
// The enumeration calls follow the driver convention: a nil destination
// asks only for the count, otherwise count holds the capacity of the
// destination on entry and the number of written elements on return.
type Driver interface {
	// CreateInstance creates a new instance. The handle is driver
	// defined when the result is a failure and must not be used.
	CreateInstance(info ApplicationInfo) (InstanceHandle, Result)

	// DestroyInstance releases an instance created by CreateInstance.
	DestroyInstance(instance InstanceHandle)

	// EnumeratePhysicalDevices lists the devices of an instance. It returns
	// Incomplete when devices does not hold all of them.
	EnumeratePhysicalDevices(instance InstanceHandle, count *uint32, devices []PhysicalDeviceHandle) Result

	PhysicalDeviceProperties(device PhysicalDeviceHandle) Properties
	PhysicalDeviceFeatures(device PhysicalDeviceHandle) Features
	PhysicalDeviceMemoryProperties(device PhysicalDeviceHandle) MemoryProperties

	// PhysicalDeviceQueueFamilyProperties lists queue families with the same
	// count convention as EnumeratePhysicalDevices, without a result.
	PhysicalDeviceQueueFamilyProperties(device PhysicalDeviceHandle, count *uint32, families []QueueFamily)
}
