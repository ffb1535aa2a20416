// Package moc reads and writes the versioned, tagged object-graph stream
// that character models are serialized in.
package moc

import (
	"encoding/binary"
	"fmt"
)

// Format versions. Each constant names the first version that carries the
// corresponding optional field group.
const (
	VersionInitial       = 6
	VersionOpacity       = 7
	VersionTextureOption = 8
	VersionAvatarParts   = 9
	VersionSDK2          = 10
	VersionSDK21         = 11

	VersionCurrent = VersionSDK21
)

// HeaderSize is the length of the magic and version preamble.
const HeaderSize = 4

// EndMarker terminates every stream body.
const EndMarker = 0x88888888

// flagLittleEndian in the version byte selects a little-endian body.
const flagLittleEndian = 0x80

// Object tags. Any tag not listed here is a class number.
const (
	TagNull         = 0
	TagString       = 1
	TagObjectArray  = 15
	TagInt32Array   = 25
	TagFloat64Array = 26
	TagFloat32Array = 27
	TagBackRef      = 33
)

// Class numbers of the model object graph.
const (
	ClassParamID         = 50
	ClassBaseDataID      = 51
	ClassPartsDataID     = 60
	ClassBoxGrid         = 65
	ClassPivotManager    = 66
	ClassParamPivots     = 67
	ClassAffine          = 68
	ClassAffineEnt       = 69
	ClassTexture         = 70
	ClassModelImpl       = 131
	ClassPartsData       = 133
	ClassDrawDataID      = 134
	ClassAvatarPartsItem = 136
	ClassParamDefSet     = 142
	ClassParamDefFloat   = 143
)

// Header is the decoded stream preamble.
type Header struct {
	Version      int
	LittleEndian bool
}

// ByteOrder decodes and appends multi-byte primitives.
type ByteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// ByteOrder returns the byte order of the stream body.
func (h Header) ByteOrder() ByteOrder {
	if h.LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

func (h Header) String() string {
	order := "BE"
	if h.LittleEndian {
		order = "LE"
	}
	return fmt.Sprintf("moc v%d %s", h.Version, order)
}

// ParseHeader validates the magic and declared version of a stream.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: header needs %d bytes, have %d", ErrEOF, HeaderSize, len(data))
	}
	if data[0] != 'm' || data[1] != 'o' || data[2] != 'c' {
		return Header{}, ErrInvalidMagic
	}
	h := Header{
		Version:      int(data[3] &^ flagLittleEndian),
		LittleEndian: data[3]&flagLittleEndian != 0,
	}
	if h.Version < VersionInitial || h.Version > VersionCurrent {
		return h, &VersionError{Version: h.Version}
	}
	return h, nil
}

func (h Header) bytes() []byte {
	b := byte(h.Version)
	if h.LittleEndian {
		b |= flagLittleEndian
	}
	return []byte{'m', 'o', 'c', b}
}
