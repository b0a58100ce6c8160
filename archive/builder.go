// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package archive

import (
	"bytes"
	"io"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/pierrec/lz4"
)

// NewBuilder creates a new Builder. Do not fill the Index in
// the header, it will be overwritten anyway.
func NewBuilder(header Header) *Builder {
	return &Builder{
		header: header,
		names:  make(map[string]bool),
	}
}

type compressed struct {
	Name string
	Size int64
	Data []byte
}

// Builder is the way to create an archive. Archives cannot be appended
// to once written: entries are compressed as they are added and
// bundled together by WriteTo.
type Builder struct {
	header Header

	mutex   sync.Mutex
	names   map[string]bool
	entries []compressed
}

// Add compresses data and stores it under name. Will block until lz4
// finishes compression. Is safe to use concurrently in different goroutines.
func (b *Builder) Add(name string, data []byte) error {
	var buf bytes.Buffer
	writer := lz4.NewWriter(&buf)
	written, err := io.Copy(writer, bytes.NewReader(data))
	if err != nil {
		return errors.Wrapf(err, "compressing %s", name)
	}
	if err := writer.Close(); err != nil {
		return errors.Wrapf(err, "compressing %s", name)
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.names[name] {
		return errors.Wrapf(ErrDuplicate, "%s", name)
	}
	b.names[name] = true
	b.entries = append(b.entries, compressed{
		Name: name,
		Size: written,
		Data: buf.Bytes(),
	})
	return nil
}

// Len returns the number of entries added so far.
func (b *Builder) Len() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.entries)
}

// WriteTo bundles and writes all of the entries added to the Builder
// into an archive that is ready to use. Entries are kept in the order
// they were added.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	header := b.header
	header.Index = nil
	var offset int64
	for _, e := range b.entries {
		header.Index = append(header.Index, IndexEntry{
			Name:           e.Name,
			Offset:         offset,
			Size:           e.Size,
			CompressedSize: int64(len(e.Data)),
		})
		offset += int64(len(e.Data))
	}

	rawHeader, err := gobEncode(header)
	if err != nil {
		return 0, errors.Wrap(err, "encoding header")
	}

	var total int64
	write := func(p []byte) error {
		n, err := w.Write(p)
		total += int64(n)
		return err
	}

	if err := write(magic[:]); err != nil {
		return total, err
	}
	if err := write(int64ToBinary(int64(len(rawHeader)))); err != nil {
		return total, err
	}
	if err := write(rawHeader); err != nil {
		return total, err
	}
	for _, e := range b.entries {
		if err := write(e.Data); err != nil {
			return total, err
		}
	}
	return total, nil
}
