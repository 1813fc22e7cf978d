package magichome

import "fmt"

// Protocol constants. Values come from the bulb firmware and are not
// configurable.
const (
	// DefaultPort is the TCP port bulbs listen on.
	DefaultPort = 5577

	// minStatusLength is the shortest status response worth parsing.
	minStatusLength = 14

	// Status response byte positions.
	statusPowerIndex     = 2
	statusRedIndex       = 6
	statusGreenIndex     = 7
	statusBlueIndex      = 8
	statusWarmWhiteIndex = 9

	// powerOnSentinel and powerOffSentinel are the values of the power
	// byte in a status response.
	powerOnSentinel  = 0x23
	powerOffSentinel = 0x24
)

// Status is a bulb's self-reported state from a status query.
type Status struct {
	PowerOn   bool
	Red       uint8
	Green     uint8
	Blue      uint8
	WarmWhite uint8
}

// checksum computes the trailing checksum byte: the unsigned sum of the
// frame bytes modulo 256.
func checksum(frame []byte) byte {
	var sum int
	for _, b := range frame {
		sum += int(b)
	}
	return byte(sum & 0xFF)
}

// withChecksum returns the frame with its checksum byte appended.
func withChecksum(frame []byte) []byte {
	return append(frame, checksum(frame))
}

// powerFrame builds the power command frame.
func powerFrame(on bool) []byte {
	sentinel := byte(powerOffSentinel)
	if on {
		sentinel = powerOnSentinel
	}
	return withChecksum([]byte{0x71, sentinel, 0x0F})
}

// colorFrame builds the RGB colour command frame.
// Sending a colour implicitly powers the bulb on in firmware.
func colorFrame(r, g, b uint8) []byte {
	return withChecksum([]byte{0x31, r, g, b, 0x00, 0x00, 0xF0, 0x0F})
}

// warmWhiteFrame builds the warm-white command frame. The level is the
// raw 0-255 warm-white channel value.
func warmWhiteFrame(level uint8) []byte {
	return withChecksum([]byte{0x31, 0x00, 0x00, 0x00, level, 0x00, 0x0F, 0xF0})
}

// statusQueryFrame builds the fixed status query. The final byte is the
// frame's checksum, pre-computed by the vendor.
func statusQueryFrame() []byte {
	return []byte{0x81, 0x8A, 0x8B, 0x96}
}

// parseStatus decodes a status response frame.
//
// Responses shorter than 14 bytes are rejected; the caller should treat
// that the same as a transport failure (bulb offline).
func parseStatus(frame []byte) (*Status, error) {
	if len(frame) < minStatusLength {
		return nil, fmt.Errorf("%w: got %d bytes, need %d", ErrShortResponse, len(frame), minStatusLength)
	}

	return &Status{
		PowerOn:   frame[statusPowerIndex] == powerOnSentinel,
		Red:       frame[statusRedIndex],
		Green:     frame[statusGreenIndex],
		Blue:      frame[statusBlueIndex],
		WarmWhite: frame[statusWarmWhiteIndex],
	}, nil
}
