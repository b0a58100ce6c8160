// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

// EnumerateInto fills devs with up to len(devs) physical devices and
// returns how many were written. When more devices exist the result is
// Incomplete, which is not an error: every written descriptor is still
// complete. A failing driver result leaves devs untouched.
func (i *Instance) EnumerateInto(devs []PhysicalDevice) (int, Result, error) {
	count := uint32(len(devs))
	handles := make([]PhysicalDeviceHandle, count)

	res := i.driver.EnumeratePhysicalDevices(i.handle, &count, handles)
	if err := res.Err(); err != nil {
		return 0, res, err
	}
	if int(count) > len(devs) {
		count = uint32(len(devs))
	}

	for idx := uint32(0); idx < count; idx++ {
		devs[idx] = describe(i.driver, handles[idx], MaxQueueFamilies)
	}
	return int(count), res, nil
}

// Enumerate returns at most capacity physical devices.
func (i *Instance) Enumerate(capacity int) ([]PhysicalDevice, Result, error) {
	if capacity < 0 {
		capacity = 0
	}
	devs := make([]PhysicalDevice, capacity)
	n, res, err := i.EnumerateInto(devs)
	if err != nil {
		return nil, res, err
	}
	return devs[:n], res, nil
}

// EnumerateAll returns every physical device with every queue family,
// asking the driver for the counts first.
func (i *Instance) EnumerateAll() ([]PhysicalDevice, Result, error) {
	var (
		count   uint32
		handles []PhysicalDeviceHandle
		res     = Incomplete
	)
	for res == Incomplete {
		if res = i.driver.EnumeratePhysicalDevices(i.handle, &count, nil); res.Failed() {
			return nil, res, res.Err()
		}
		handles = make([]PhysicalDeviceHandle, count)
		if res = i.driver.EnumeratePhysicalDevices(i.handle, &count, handles); res.Failed() {
			return nil, res, res.Err()
		}
	}
	if int(count) < len(handles) {
		handles = handles[:count]
	}

	devs := make([]PhysicalDevice, len(handles))
	for idx, handle := range handles {
		devs[idx] = describe(i.driver, handle, -1)
	}
	return devs, res, nil
}

// describe queries everything about a single device. maxFamilies bounds
// the retrieved queue families, a negative value retrieves all of them.
func describe(driver Driver, handle PhysicalDeviceHandle, maxFamilies int) PhysicalDevice {
	dev := PhysicalDevice{
		Handle:     handle,
		Properties: driver.PhysicalDeviceProperties(handle),
		Features:   driver.PhysicalDeviceFeatures(handle),
		Memory:     driver.PhysicalDeviceMemoryProperties(handle),
	}

	var total uint32
	driver.PhysicalDeviceQueueFamilyProperties(handle, &total, nil)

	count := total
	if maxFamilies >= 0 {
		count = uint32(maxFamilies)
	}
	families := make([]QueueFamily, count)
	driver.PhysicalDeviceQueueFamilyProperties(handle, &count, families)
	if int(count) > len(families) {
		count = uint32(len(families))
	}

	dev.QueueFamilies = families[:count]
	dev.QueueFamiliesIncomplete = count < total
	return dev
}
