// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// UnmarshalText implements encoding.TextUnmarshaler
func (v *Version) UnmarshalText(text []byte) error {
	var major, minor, patch uint32
	if _, err := fmt.Sscanf(string(text), "%d.%d.%d", &major, &minor, &patch); err != nil {
		return errors.Wrapf(err, "invalid version %q", text)
	}
	*v = MakeVersion(major, minor, patch)
	return nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *Type) UnmarshalText(text []byte) error {
	for candidate := Other; candidate <= CPU; candidate++ {
		if candidate.String() == string(text) {
			*t = candidate
			return nil
		}
	}
	num, err := strconv.ParseInt(string(text), 10, 32)
	if err != nil {
		return errors.Newf("unknown device type %q", text)
	}
	*t = Type(num)
	return nil
}

func parseFlags(text string, names []flagName) (uint32, error) {
	if text == "none" {
		return 0, nil
	}
	var value uint32
next:
	for _, part := range strings.Split(text, "|") {
		for _, n := range names {
			if n.name == part {
				value |= n.bit
				continue next
			}
		}
		if !strings.HasPrefix(part, "0x") {
			return 0, errors.Newf("unknown flag %q", part)
		}
		bits, err := strconv.ParseUint(part[2:], 16, 32)
		if err != nil {
			return 0, errors.Wrapf(err, "invalid flag %q", part)
		}
		value |= uint32(bits)
	}
	return value, nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (f *QueueFlags) UnmarshalText(text []byte) error {
	value, err := parseFlags(string(text), queueFlagNames)
	*f = QueueFlags(value)
	return err
}

// UnmarshalText implements encoding.TextUnmarshaler
func (f *MemoryPropertyFlags) UnmarshalText(text []byte) error {
	value, err := parseFlags(string(text), memoryPropertyNames)
	*f = MemoryPropertyFlags(value)
	return err
}

// UnmarshalText implements encoding.TextUnmarshaler
func (f *MemoryHeapFlags) UnmarshalText(text []byte) error {
	value, err := parseFlags(string(text), memoryHeapNames)
	*f = MemoryHeapFlags(value)
	return err
}

// UnmarshalText implements encoding.TextUnmarshaler
func (r *Result) UnmarshalText(text []byte) error {
	for candidate, name := range resultNames {
		if name == string(text) {
			*r = candidate
			return nil
		}
	}
	var num int32
	if _, err := fmt.Sscanf(string(text), "result %d", &num); err != nil {
		return errors.Newf("unknown result %q", text)
	}
	*r = Result(num)
	return nil
}
