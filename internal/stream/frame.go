package stream

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/dtlaine/huedevice/internal/colormath"
)

// LightColor is one Light Model entry snapshotted for a single tick: its
// bridge light id and its current gamut-projected color.
type LightColor struct {
	ID    int
	Color colormath.Color
}

const (
	streamHeaderMagic  = "HueStream"
	streamVersionMajor = 0x01
	streamVersionMinor = 0x00
	streamSequence     = 0x01
	colorModeXYBri     = 0x01
)

// encodeFrame renders lights into the wire-canonical HueStream datagram
// (spec 4.G): a fixed 16-byte header followed by one 9-byte record per
// light, in the order given.
func encodeFrame(lights []LightColor) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, 16+9*len(lights)))

	buf.WriteString(streamHeaderMagic)
	buf.WriteByte(streamVersionMajor)
	buf.WriteByte(streamVersionMinor)
	buf.WriteByte(streamSequence)
	buf.WriteByte(0x00) // reserved
	buf.WriteByte(0x00) // reserved
	buf.WriteByte(colorModeXYBri)
	buf.WriteByte(0x00) // reserved

	for _, lc := range lights {
		buf.WriteByte(0x00) // reserved
		buf.WriteByte(0x00) // reserved
		buf.WriteByte(byte(lc.ID & 0xFF))
		binary.Write(buf, binary.BigEndian, toU16(lc.Color.X))
		binary.Write(buf, binary.BigEndian, toU16(lc.Color.Y))
		binary.Write(buf, binary.BigEndian, toU16(lc.Color.Bri))
	}

	return buf.Bytes()
}

// toU16 maps a [0,1] component to the 0..0xFFFF wire encoding, rounding to
// nearest and clamping against floating-point overshoot.
func toU16(v float64) uint16 {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return uint16(math.Round(v * 0xFFFF))
}
