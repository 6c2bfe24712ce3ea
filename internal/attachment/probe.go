package attachment

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Prober reports the playable duration of a video in seconds.
type Prober interface {
	Duration(data []byte) (float64, error)
}

var errNoMovieHeader = errors.New("no movie header found")

// MP4Prober reads the duration from the mvhd box of ISO base media files
// (MP4, MOV, 3GP). Other containers are reported as undeterminable.
type MP4Prober struct{}

func (MP4Prober) Duration(data []byte) (float64, error) {
	moov, err := findBox(data, "moov")
	if err != nil {
		return 0, err
	}
	mvhd, err := findBox(moov, "mvhd")
	if err != nil {
		return 0, err
	}
	if len(mvhd) < 4 {
		return 0, errNoMovieHeader
	}

	var timescale uint32
	var duration uint64
	switch version := mvhd[0]; version {
	case 0:
		// version+flags, creation, modification, timescale, duration
		if len(mvhd) < 20 {
			return 0, errNoMovieHeader
		}
		timescale = binary.BigEndian.Uint32(mvhd[12:16])
		duration = uint64(binary.BigEndian.Uint32(mvhd[16:20]))
	case 1:
		if len(mvhd) < 32 {
			return 0, errNoMovieHeader
		}
		timescale = binary.BigEndian.Uint32(mvhd[20:24])
		duration = binary.BigEndian.Uint64(mvhd[24:32])
	default:
		return 0, fmt.Errorf("unknown mvhd version %d", version)
	}
	if timescale == 0 {
		return 0, errors.New("mvhd timescale is zero")
	}
	return float64(duration) / float64(timescale), nil
}

// findBox scans sibling boxes in buf and returns the payload of the first
// one with the given type.
func findBox(buf []byte, want string) ([]byte, error) {
	for len(buf) >= 8 {
		size := uint64(binary.BigEndian.Uint32(buf[0:4]))
		typ := string(buf[4:8])
		header := uint64(8)
		switch size {
		case 0:
			size = uint64(len(buf))
		case 1:
			if len(buf) < 16 {
				return nil, errNoMovieHeader
			}
			size = binary.BigEndian.Uint64(buf[8:16])
			header = 16
		}
		if size < header || size > uint64(len(buf)) {
			return nil, fmt.Errorf("malformed %q box", typ)
		}
		if typ == want {
			return buf[header:size], nil
		}
		buf = buf[size:]
	}
	return nil, errNoMovieHeader
}
