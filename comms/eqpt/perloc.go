// Package eqpt defines the messages exchanged with the rover's equipment
// servers: perception/localisation, mechanisms, and cameras.
package eqpt

import (
	"encoding/base64"
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
)

// PerlocCmd is a command to the perception/localisation equipment.
type PerlocCmd string

// All perloc commands.
const (
	// PerlocAcqDepthFrame acquires a single depth image.
	PerlocAcqDepthFrame PerlocCmd = "ACQ_DEPTH_FRAME"

	// PerlocStartLocStream starts the localisation data stream.
	PerlocStartLocStream PerlocCmd = "START_LOC_STREAM"

	// PerlocStopLocStream stops the localisation data stream.
	PerlocStopLocStream PerlocCmd = "STOP_LOC_STREAM"
)

// LocStreamStatus reports the state of the localisation stream.
type LocStreamStatus struct {
	// Running reports whether the stream is active.
	Running bool `json:"running"`

	// UptimeS is how long the stream has been running, zero when not
	// running.
	UptimeS float64 `json:"uptime_s"`
}

// PerlocRep is a reply from the perloc server.
type PerlocRep struct {
	// DepthFrame is set for replies to PerlocAcqDepthFrame.
	DepthFrame *DepthFrame `json:"depth_frame,omitempty"`

	// LocStreamStatus is set for replies to stream commands.
	LocStreamStatus *LocStreamStatus `json:"loc_stream_status,omitempty"`

	// Error is set when the server failed to serve the command.
	Error string `json:"error,omitempty"`
}

// DepthFrame is the serialisable form of a depth image: the 16-bit raster is
// flattened row-major, converted to big-endian bytes, and base64 encoded.
type DepthFrame struct {
	// Timestamp is the UTC time at which the frame was acquired, in
	// milliseconds since the epoch.
	Timestamp int64 `json:"timestamp"`

	Width  int `json:"width"`
	Height int `json:"height"`

	B64Data string `json:"b64_data"`
}

// DepthImage is a 16-bit single-channel image of depths in millimeters from
// the camera's optical centre.
type DepthImage struct {
	// Timestamp is the UTC time at which the frame was acquired.
	Timestamp time.Time `json:"timestamp"`

	Width  int `json:"width"`
	Height int `json:"height"`

	// PixelsMm is the row-major raster of depths.
	PixelsMm []uint16 `json:"pixels_mm"`
}

// NewDepthImage creates an all-zero depth image of the given size.
func NewDepthImage(width, height int, timestamp time.Time) *DepthImage {
	return &DepthImage{
		Timestamp: timestamp,
		Width:     width,
		Height:    height,
		PixelsMm:  make([]uint16, width*height),
	}
}

// GetDepth returns the depth in millimeters at the given pixel.
func (img *DepthImage) GetDepth(x, y int) uint16 {
	return img.PixelsMm[y*img.Width+x]
}

// SetDepth sets the depth in millimeters at the given pixel.
func (img *DepthImage) SetDepth(x, y int, depthMm uint16) {
	img.PixelsMm[y*img.Width+x] = depthMm
}

// DepthImageFromFrame decodes a frame into a concrete depth image.
func DepthImageFromFrame(frame DepthFrame) (*DepthImage, error) {
	raw, err := base64.StdEncoding.DecodeString(frame.B64Data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode depth image from base64")
	}

	if len(raw) != frame.Width*frame.Height*2 {
		return nil, errors.New("the encoded frame data was the wrong size")
	}

	pixels := make([]uint16, frame.Width*frame.Height)
	for i := range pixels {
		pixels[i] = binary.BigEndian.Uint16(raw[2*i:])
	}

	return &DepthImage{
		Timestamp: time.UnixMilli(frame.Timestamp).UTC(),
		Width:     frame.Width,
		Height:    frame.Height,
		PixelsMm:  pixels,
	}, nil
}

// ToFrame encodes the image into its serialisable frame form.
func (img *DepthImage) ToFrame() DepthFrame {
	raw := make([]byte, len(img.PixelsMm)*2)
	for i, px := range img.PixelsMm {
		binary.BigEndian.PutUint16(raw[2*i:], px)
	}

	return DepthFrame{
		Timestamp: img.Timestamp.UnixMilli(),
		Width:     img.Width,
		Height:    img.Height,
		B64Data:   base64.StdEncoding.EncodeToString(raw),
	}
}

// Clone returns a deep copy of the image.
func (img *DepthImage) Clone() *DepthImage {
	out := *img
	out.PixelsMm = append([]uint16{}, img.PixelsMm...)
	return &out
}
