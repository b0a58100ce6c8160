// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package report renders probe snapshots for people and for tools.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/xlab/tablewriter"

	"github.com/devblok/vkprobe/device"
	"github.com/devblok/vkprobe/probe"
)

// Format is a report output format
type Format string

// Supported formats
const (
	JSON  Format = "json"
	Table Format = "table"
)

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case JSON, Table:
		return f, nil
	default:
		return "", errors.Newf("unknown output format %q", name)
	}
}

// Write renders s to w in the given format.
func Write(w io.Writer, format Format, s *probe.Snapshot) error {
	switch format {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case Table:
		return writeTables(w, s)
	default:
		return errors.Newf("unknown output format %q", string(format))
	}
}

func writeTables(w io.Writer, s *probe.Snapshot) error {
	summary := tablewriter.CreateTable()
	summary.UTF8Box()
	summary.AddTitle("Snapshot " + s.ID.String())
	summary.AddRow("Taken", s.Taken.Format("2006-01-02 15:04:05 MST"))
	summary.AddRow("Physical Devices", len(s.Devices))
	summary.AddRow("Result", s.Result.String())
	if s.Incomplete() {
		summary.AddRow("Note", "more devices present than described")
	}
	if _, err := fmt.Fprintln(w, summary.Render()); err != nil {
		return err
	}

	for idx, dev := range s.Devices {
		if _, err := fmt.Fprintln(w, deviceTable(idx, dev).Render()); err != nil {
			return err
		}
	}
	return nil
}

func deviceTable(idx int, dev device.PhysicalDevice) *tablewriter.Table {
	props := dev.Properties

	table := tablewriter.CreateTable()
	table.UTF8Box()
	table.AddTitle(fmt.Sprintf("%d: %s", idx, props.Name))
	table.AddRow("Physical Device Vendor", fmt.Sprintf("%x", props.VendorID))
	table.AddRow("Physical Device ID", fmt.Sprintf("%x", props.DeviceID))
	table.AddRow("Physical Device Type", props.Type.String())
	table.AddRow("API Version", props.APIVersion.String())
	table.AddRow("Driver Version", fmt.Sprintf("%d (0x%x)", props.DriverVersion, props.DriverVersion))
	table.AddRow("Pipeline Cache UUID", props.PipelineCacheUUID.String())

	for heap, h := range dev.Memory.Heaps {
		table.AddRow(fmt.Sprintf("Memory Heap %d", heap), fmt.Sprintf("%s, %s", byteSize(h.Size), h.Flags))
		for _, typ := range dev.Memory.HeapTypes(heap) {
			table.AddRow(fmt.Sprintf("  Memory Type %d", typ), dev.Memory.Types[typ].Flags.String())
		}
	}

	for family, q := range dev.QueueFamilies {
		table.AddRow(fmt.Sprintf("Queue Family %d", family), fmt.Sprintf("%d x %s", q.QueueCount, q.Flags))
	}
	if dev.QueueFamiliesIncomplete {
		table.AddRow("Queue Families", "truncated")
	}

	table.AddRow("Supported Features", fmt.Sprintf("%d of %d", dev.Features.Count(), len(dev.Features)))
	return table
}

func byteSize(size uint64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := uint64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
