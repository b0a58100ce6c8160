// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package archive

import (
	"bytes"
	"io"
	"io/ioutil"

	"github.com/cockroachdb/errors"
	"github.com/pierrec/lz4"
)

// Open opens the archive read from r. It will also check
// if the file is actually an archive, will return ErrFileFormat
// when it's not.
func Open(r io.ReaderAt) (*Archive, error) {
	preamble := make([]byte, MagicLength+HeaderSizeNumberLength)
	if num, err := r.ReadAt(preamble, 0); num < len(preamble) {
		if err == nil || err == io.EOF {
			return nil, ErrFileFormat
		}
		return nil, err
	}
	if !bytes.Equal(preamble[:MagicLength], magic[:]) {
		return nil, ErrFileFormat
	}

	headerSize, err := binaryToint64(preamble[MagicLength:])
	if err != nil {
		return nil, err
	}
	if headerSize <= 0 || headerSize > maxHeaderSize {
		return nil, ErrFileFormat
	}

	headerBytes := make([]byte, headerSize)
	if num, err := r.ReadAt(headerBytes, int64(len(preamble))); int64(num) < headerSize {
		if err == nil || err == io.EOF {
			return nil, ErrFileFormat
		}
		return nil, err
	}

	var header Header
	if err := gobDecode(&header, headerBytes); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decoding header"), ErrFileFormat)
	}

	index := make(map[string]IndexEntry, len(header.Index))
	for _, e := range header.Index {
		index[e.Name] = e
	}

	return &Archive{
		reader: r,
		header: header,
		base:   int64(len(preamble)) + headerSize,
		index:  index,
	}, nil
}

// Archive provides concurrent io for an archive, and can provide
// an io.Reader for each entry separately to perform actions on.
type Archive struct {
	reader io.ReaderAt
	header Header
	base   int64
	index  map[string]IndexEntry
}

// Header returns the archive header, index included.
func (a *Archive) Header() Header {
	return a.header
}

// Entries lists the entries in the order they were written.
func (a *Archive) Entries() []IndexEntry {
	return append([]IndexEntry(nil), a.header.Index...)
}

// ReadAll returns the entire decompressed contents of the named entry.
func (a *Archive) ReadAll(name string) ([]byte, error) {
	r, err := a.Open(name)
	if err != nil {
		return nil, err
	}
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", name)
	}
	if int64(len(data)) != r.entry.Size {
		return nil, errors.Mark(errors.Newf("%s: expected %d bytes, got %d", name, r.entry.Size, len(data)), ErrFileFormat)
	}
	return data, nil
}

// Open returns a Reader for an entry in the Archive.
func (a *Archive) Open(name string) (*Reader, error) {
	entry, ok := a.index[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "%s", name)
	}

	section := io.NewSectionReader(a.reader, a.base+entry.Offset, entry.CompressedSize)
	return &Reader{
		entry:  entry,
		reader: lz4.NewReader(section),
	}, nil
}

// Reader is a reader for a single entry in an Archive.
// Abstracts away the location that needs to be known.
type Reader struct {
	entry  IndexEntry
	reader io.Reader
}

// Entry returns the index entry being read.
func (r *Reader) Entry() IndexEntry {
	return r.entry
}

// Read reads already decompressed data
func (r *Reader) Read(p []byte) (n int, err error) {
	return r.reader.Read(p)
}
