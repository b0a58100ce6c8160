// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package probe

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/devblok/vkprobe/archive"
	"github.com/devblok/vkprobe/device"
)

// ArchiveVersion is the snapshot layout version stored in archive headers.
const ArchiveVersion = 1

const snapshotEntry = "snapshot.json"

type snapshotRecord struct {
	ID      uuid.UUID     `json:"id"`
	Taken   time.Time     `json:"taken"`
	Result  device.Result `json:"result"`
	Devices int           `json:"devices"`
}

func deviceEntry(idx int) string {
	return fmt.Sprintf("devices/%03d.json", idx)
}

// WriteArchive stores s into an archive written to w.
func WriteArchive(w io.Writer, s *Snapshot, author string) error {
	builder := archive.NewBuilder(archive.Header{
		ID:          s.ID,
		Author:      author,
		DateCreated: s.Taken.Unix(),
		Version:     ArchiveVersion,
	})

	record, err := json.Marshal(snapshotRecord{
		ID:      s.ID,
		Taken:   s.Taken,
		Result:  s.Result,
		Devices: len(s.Devices),
	})
	if err != nil {
		return errors.Wrapf(err, "encoding %s", snapshotEntry)
	}
	if err := builder.Add(snapshotEntry, record); err != nil {
		return err
	}

	// Devices are encoded in parallel but added in order, the
	// index order is what ReadArchive relies on.
	encoded := make([][]byte, len(s.Devices))
	var g errgroup.Group
	for idx := range s.Devices {
		idx := idx
		g.Go(func() error {
			data, err := json.Marshal(s.Devices[idx])
			if err != nil {
				return errors.Wrapf(err, "encoding %s", deviceEntry(idx))
			}
			encoded[idx] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for idx, data := range encoded {
		if err := builder.Add(deviceEntry(idx), data); err != nil {
			return err
		}
	}

	_, err = builder.WriteTo(w)
	return errors.Wrap(err, "writing archive")
}

// ReadArchive loads a snapshot previously stored by WriteArchive.
func ReadArchive(r io.ReaderAt) (*Snapshot, archive.Header, error) {
	ar, err := archive.Open(r)
	if err != nil {
		return nil, archive.Header{}, err
	}
	header := ar.Header()
	if header.Version != ArchiveVersion {
		return nil, header, errors.Newf("unsupported snapshot version %d", header.Version)
	}

	read := func(name string, v interface{}) error {
		data, err := ar.ReadAll(name)
		if err != nil {
			return err
		}
		return errors.Wrapf(json.Unmarshal(data, v), "decoding %s", name)
	}

	var record snapshotRecord
	if err := read(snapshotEntry, &record); err != nil {
		return nil, header, err
	}
	if record.Devices < 0 || record.Devices > len(header.Index)-1 {
		return nil, header, errors.Mark(
			errors.Newf("%s: %d devices, archive holds %d entries", snapshotEntry, record.Devices, len(header.Index)),
			archive.ErrFileFormat)
	}

	s := &Snapshot{
		ID:      record.ID,
		Taken:   record.Taken,
		Result:  record.Result,
		Devices: make([]device.PhysicalDevice, record.Devices),
	}
	for idx := range s.Devices {
		if err := read(deviceEntry(idx), &s.Devices[idx]); err != nil {
			return nil, header, err
		}
	}
	return s, header, nil
}
