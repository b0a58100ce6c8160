// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package device creates driver instances and enumerates the physical
// devices they expose, together with their properties, features,
// memory layout and queue families.
package device

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// MaxQueueFamilies bounds the queue families retrieved per device
// by the capacity-bounded enumeration.
const MaxQueueFamilies = 16

// Version is a packed major.minor.patch API version.
type Version uint32

// MakeVersion packs a version the way the driver expects it.
func MakeVersion(major, minor, patch uint32) Version {
	return Version(major<<22 | minor<<12 | patch)
}

// Major returns the major version number.
func (v Version) Major() uint32 { return uint32(v) >> 22 }

// Minor returns the minor version number.
func (v Version) Minor() uint32 { return uint32(v) >> 12 & 0x3ff }

// Patch returns the patch version number.
func (v Version) Patch() uint32 { return uint32(v) & 0xfff }

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch())
}

// MarshalText implements encoding.TextMarshaler
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Type is the category of a physical device.
type Type int32

// Physical device categories
const (
	Other Type = iota
	IntegratedGPU
	DiscreteGPU
	VirtualGPU
	CPU
)

func (t Type) String() string {
	switch t {
	case Other:
		return "Neither GPU nor CPU"
	case IntegratedGPU:
		return "Integrated GPU"
	case DiscreteGPU:
		return "Discrete GPU"
	case VirtualGPU:
		return "Virtual GPU"
	case CPU:
		return "CPU"
	default:
		return "Unrecognized device type"
	}
}

// MarshalText implements encoding.TextMarshaler. Unrecognized types
// are written as their number so they survive a round trip.
func (t Type) MarshalText() ([]byte, error) {
	if t < Other || t > CPU {
		return []byte(strconv.Itoa(int(t))), nil
	}
	return []byte(t.String()), nil
}

type flagName struct {
	bit  uint32
	name string
}

func flagString(value uint32, names []flagName) string {
	if value == 0 {
		return "none"
	}
	var parts []string
	for _, n := range names {
		if value&n.bit != 0 {
			parts = append(parts, n.name)
			value &^= n.bit
		}
	}
	if value != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", value))
	}
	return strings.Join(parts, "|")
}

// QueueFlags are the operation categories a queue family supports.
type QueueFlags uint32

// Queue capabilities
const (
	QueueGraphics QueueFlags = 1 << iota
	QueueCompute
	QueueTransfer
	QueueSparseBinding
)

var queueFlagNames = []flagName{
	{uint32(QueueGraphics), "graphics"},
	{uint32(QueueCompute), "compute"},
	{uint32(QueueTransfer), "transfer"},
	{uint32(QueueSparseBinding), "sparse binding"},
}

func (f QueueFlags) String() string { return flagString(uint32(f), queueFlagNames) }

// MarshalText implements encoding.TextMarshaler
func (f QueueFlags) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// MemoryPropertyFlags describe a memory type.
type MemoryPropertyFlags uint32

// Memory type properties
const (
	MemoryDeviceLocal MemoryPropertyFlags = 1 << iota
	MemoryHostVisible
	MemoryHostCoherent
	MemoryHostCached
	MemoryLazilyAllocated
)

var memoryPropertyNames = []flagName{
	{uint32(MemoryDeviceLocal), "device local"},
	{uint32(MemoryHostVisible), "host visible"},
	{uint32(MemoryHostCoherent), "host coherent"},
	{uint32(MemoryHostCached), "host cached"},
	{uint32(MemoryLazilyAllocated), "lazily allocated"},
}

func (f MemoryPropertyFlags) String() string { return flagString(uint32(f), memoryPropertyNames) }

// MarshalText implements encoding.TextMarshaler
func (f MemoryPropertyFlags) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// MemoryHeapFlags describe a memory heap.
type MemoryHeapFlags uint32

// HeapDeviceLocal marks heaps that live on the device
const HeapDeviceLocal MemoryHeapFlags = 1

var memoryHeapNames = []flagName{
	{uint32(HeapDeviceLocal), "device local"},
}

func (f MemoryHeapFlags) String() string { return flagString(uint32(f), memoryHeapNames) }

// MarshalText implements encoding.TextMarshaler
func (f MemoryHeapFlags) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// Limit is a single named device limit, rendered as text.
type Limit struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Properties identify a physical device.
type Properties struct {
	Name              string    `json:"name"`
	Type              Type      `json:"type"`
	VendorID          uint32    `json:"vendorID"`
	DeviceID          uint32    `json:"deviceID"`
	APIVersion        Version   `json:"apiVersion"`
	DriverVersion     uint32    `json:"driverVersion"`
	PipelineCacheUUID uuid.UUID `json:"pipelineCacheUUID"`
	Limits            []Limit   `json:"limits,omitempty"`
}

// Limit looks up a limit by name.
func (p Properties) Limit(name string) (string, bool) {
	for _, l := range p.Limits {
		if l.Name == name {
			return l.Value, true
		}
	}
	return "", false
}

// Feature tells whether a single named capability is supported.
type Feature struct {
	Name      string `json:"name"`
	Supported bool   `json:"supported"`
}

// Features lists device capabilities in driver order.
type Features []Feature

// Supported reports whether the named feature is present and supported.
func (f Features) Supported(name string) bool {
	for _, feature := range f {
		if feature.Name == name {
			return feature.Supported
		}
	}
	return false
}

// Count returns the number of supported features.
func (f Features) Count() int {
	var n int
	for _, feature := range f {
		if feature.Supported {
			n++
		}
	}
	return n
}

// MemoryHeap is one heap of device visible memory.
type MemoryHeap struct {
	Size  uint64          `json:"size"`
	Flags MemoryHeapFlags `json:"flags"`
}

// MemoryType is a kind of memory living in one heap.
type MemoryType struct {
	HeapIndex uint32              `json:"heapIndex"`
	Flags     MemoryPropertyFlags `json:"flags"`
}

// MemoryProperties lays out device memory. Types are ordered so that
// the first one matching a requirement is the most efficient for it;
// the order is never changed.
type MemoryProperties struct {
	Heaps []MemoryHeap `json:"heaps"`
	Types []MemoryType `json:"types"`
}

// HeapTypes returns the indices of the memory types backed by heap,
// in driver order.
func (m MemoryProperties) HeapTypes(heap int) []int {
	var indices []int
	for idx, t := range m.Types {
		if int(t.HeapIndex) == heap {
			indices = append(indices, idx)
		}
	}
	return indices
}

// FindType returns the first memory type allowed by filter
// that has all of the wanted properties.
func (m MemoryProperties) FindType(filter uint32, want MemoryPropertyFlags) (int, bool) {
	for idx, t := range m.Types {
		if idx >= 32 {
			break
		}
		if filter&(1<<uint(idx)) != 0 && t.Flags&want == want {
			return idx, true
		}
	}
	return 0, false
}

// Extent3D is a three dimensional size.
type Extent3D struct {
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
	Depth  uint32 `json:"depth"`
}

// QueueFamily describes a group of queues sharing capabilities.
type QueueFamily struct {
	Flags                       QueueFlags `json:"flags"`
	QueueCount                  uint32     `json:"queueCount"`
	TimestampValidBits          uint32     `json:"timestampValidBits"`
	MinImageTransferGranularity Extent3D   `json:"minImageTransferGranularity"`
}

// PhysicalDevice aggregates everything known about one device.
// Handle is a reference owned by the instance and is not valid
// after the instance is destroyed.
type PhysicalDevice struct {
	Handle                  PhysicalDeviceHandle `json:"-"`
	Properties              Properties           `json:"properties"`
	Features                Features             `json:"features"`
	Memory                  MemoryProperties     `json:"memory"`
	QueueFamilies           []QueueFamily        `json:"queueFamilies"`
	QueueFamiliesIncomplete bool                 `json:"queueFamiliesIncomplete"`
}

// QueueFamilyIndex returns the first family supporting all of flags.
func (d PhysicalDevice) QueueFamilyIndex(flags QueueFlags) (int, bool) {
	for idx, family := range d.QueueFamilies {
		if family.Flags&flags == flags && family.QueueCount > 0 {
			return idx, true
		}
	}
	return 0, false
}
