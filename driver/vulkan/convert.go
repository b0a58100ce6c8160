// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vulkan

import (
	"fmt"
	"reflect"
	"unicode"
	"unicode/utf8"

	vk "github.com/devblok/vulkan"
	"github.com/google/uuid"

	"github.com/devblok/vkprobe/device"
)

var bool32Type = reflect.TypeOf(vk.Bool32(0))

func convertProperties(p *vk.PhysicalDeviceProperties) device.Properties {
	cacheUUID, err := uuid.FromBytes(p.PipelineCacheUUID[:])
	if err != nil {
		cacheUUID = uuid.Nil
	}

	return device.Properties{
		Name:              vk.ToString(p.DeviceName[:]),
		Type:              device.Type(p.DeviceType),
		VendorID:          p.VendorID,
		DeviceID:          p.DeviceID,
		APIVersion:        device.Version(p.ApiVersion),
		DriverVersion:     p.DriverVersion,
		PipelineCacheUUID: cacheUUID,
		Limits:            convertLimits(&p.Limits),
	}
}

// convertFeatures lists every VkBool32 member of the features struct
// under its Vulkan name, in declaration order.
func convertFeatures(f *vk.PhysicalDeviceFeatures) device.Features {
	var features device.Features
	eachField(reflect.ValueOf(f).Elem(), func(name string, value reflect.Value) {
		if value.Type() != bool32Type {
			return
		}
		features = append(features, device.Feature{
			Name:      name,
			Supported: value.Uint() != 0,
		})
	})
	return features
}

func convertLimits(l *vk.PhysicalDeviceLimits) []device.Limit {
	var limits []device.Limit
	eachField(reflect.ValueOf(l).Elem(), func(name string, value reflect.Value) {
		var text string
		if value.Type() == bool32Type {
			text = fmt.Sprint(value.Uint() != 0)
		} else {
			text = fmt.Sprint(value.Interface())
		}
		limits = append(limits, device.Limit{Name: name, Value: text})
	})
	return limits
}

// eachField calls fn for the exported plain data members of a struct.
// Bookkeeping members of the bindings are unexported and skipped.
func eachField(v reflect.Value, fn func(name string, value reflect.Value)) {
	t := v.Type()
	for idx := 0; idx < t.NumField(); idx++ {
		field := t.Field(idx)
		if field.PkgPath != "" {
			continue
		}
		switch field.Type.Kind() {
		case reflect.Ptr, reflect.Struct, reflect.Map, reflect.Func, reflect.Chan, reflect.Interface, reflect.UnsafePointer:
			continue
		}
		fn(lowerFirst(field.Name), v.Field(idx))
	}
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
