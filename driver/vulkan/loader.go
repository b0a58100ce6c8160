// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/devblok/vulkan"
	"github.com/veandco/go-sdl2/sdl"
)

// Loader selects how vkGetInstanceProcAddr is resolved.
type Loader string

// Supported loaders
const (
	// LoaderDefault opens the system Vulkan library directly.
	LoaderDefault Loader = "default"

	// LoaderSDL lets SDL2 locate and load the Vulkan library.
	LoaderSDL Loader = "sdl"
)

// ParseLoader validates a loader name, empty means LoaderDefault.
func ParseLoader(name string) (Loader, error) {
	switch Loader(name) {
	case "", LoaderDefault:
		return LoaderDefault, nil
	case LoaderSDL:
		return LoaderSDL, nil
	default:
		return "", errors.Newf("unknown vulkan loader %q", name)
	}
}

// load installs the instance proc address and returns
// the function undoing whatever it had to set up.
func (l Loader) load() (func(), error) {
	switch l {
	case LoaderSDL:
		if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
			return nil, errors.Wrap(err, "sdl.Init()")
		}
		if err := sdl.VulkanLoadLibrary(""); err != nil {
			sdl.Quit()
			return nil, errors.Wrap(err, "sdl.VulkanLoadLibrary()")
		}
		vk.SetGetInstanceProcAddr(sdl.VulkanGetVkGetInstanceProcAddr())
		return func() {
			sdl.VulkanUnloadLibrary()
			sdl.Quit()
		}, nil
	default:
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			return nil, errors.Wrap(err, "vk.SetDefaultGetInstanceProcAddr()")
		}
		return func() {}, nil
	}
}
