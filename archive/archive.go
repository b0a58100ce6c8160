// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package archive implements a small lz4 backed container format used
// to keep device snapshots. The container itself is not compressed,
// every entry is compressed on its own, so the index tells where each
// entry lives before any of them is read and entries can be decompressed
// independently. An Archive can be read from concurrently.
package archive

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// package errors
var (
	ErrFileFormat = errors.New("corrupted or not a snapshot archive")
	ErrNotFound   = errors.New("no such entry in archive")
	ErrDuplicate  = errors.New("entry already present in archive")
)

// Sizes relevant to the preamble of the file
const (
	MagicLength            = 4
	HeaderSizeNumberLength = 8

	maxHeaderSize = 64 << 20
)

var magic = [MagicLength]byte{'V', 'K', 'A', '\x00'}

// IndexEntry is info for one entry in the index. Offset is
// relative to the end of the header.
type IndexEntry struct {
	Name           string
	Offset         int64
	Size           int64
	CompressedSize int64
}

// Header is the file header of an archive.
type Header struct {
	ID          uuid.UUID
	Author      string
	DateCreated int64
	Version     int64
	Index       []IndexEntry
}

func int64ToBinary(num int64) []byte {
	bts := make([]byte, HeaderSizeNumberLength)
	binary.LittleEndian.PutUint64(bts, uint64(num))
	return bts
}

func binaryToint64(bts []byte) (int64, error) {
	if len(bts) < HeaderSizeNumberLength {
		return 0, ErrFileFormat
	}
	return int64(binary.LittleEndian.Uint64(bts)), nil
}

func gobEncode(data interface{}) ([]byte, error) {
	var encoded bytes.Buffer
	enc := gob.NewEncoder(&encoded)
	if err := enc.Encode(data); err != nil {
		return nil, err
	}
	return encoded.Bytes(), nil
}

func gobDecode(obj interface{}, bts []byte) error {
	dec := gob.NewDecoder(bytes.NewBuffer(bts))
	return dec.Decode(obj)
}
