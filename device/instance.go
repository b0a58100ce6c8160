// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

// NewInstance creates a driver instance from DefaultApplicationInfo.
// On failure no Instance is returned and the driver result is passed
// through unchanged.
func NewInstance(driver Driver) (*Instance, Result, error) {
	handle, res := driver.CreateInstance(DefaultApplicationInfo)
	if err := res.Err(); err != nil {
		return nil, res, err
	}

	return &Instance{
		driver: driver,
		handle: handle,
	}, res, nil
}

// Instance is a connection to the driver. It must not be used from
// several goroutines at once.
type Instance struct {
	driver Driver
	handle InstanceHandle
}

// Handle returns the underlying driver handle
func (i *Instance) Handle() InstanceHandle {
	return i.handle
}

// Driver returns the driver the instance was created with
func (i *Instance) Driver() Driver {
	return i.driver
}

// Destroy releases the instance. Any device handle obtained from it
// becomes invalid. Destroy must be called once.
func (i *Instance) Destroy() {
	if i == nil {
		return
	}
	i.driver.DestroyInstance(i.handle)
}
