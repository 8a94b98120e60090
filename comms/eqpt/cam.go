package eqpt

import "time"

// CamId identifies a camera on the rover.
type CamId string

// All cameras.
const (
	CamLeftNav  CamId = "LEFT_NAV"
	CamRightNav CamId = "RIGHT_NAV"
	CamArm      CamId = "ARM"
)

// CamFormat selects the encoding of returned frames.
type CamFormat struct {
	// Format is "PNG" or "JPEG".
	Format string `json:"format"`

	// JpegQuality is the quality for JPEG encoding, ignored for PNG.
	JpegQuality int `json:"jpeg_quality,omitempty"`
}

// PngFormat returns the PNG camera format.
func PngFormat() CamFormat { return CamFormat{Format: "PNG"} }

// JpegFormat returns the JPEG camera format with the given quality.
func JpegFormat(quality int) CamFormat {
	return CamFormat{Format: "JPEG", JpegQuality: quality}
}

// CamRequest asks the camera server for one frame from each listed camera.
type CamRequest struct {
	Cameras []CamId   `json:"cameras"`
	Format  CamFormat `json:"format"`
}

// CamFrame is a single encoded camera frame.
type CamFrame struct {
	Timestamp time.Time `json:"timestamp"`
	Format    CamFormat `json:"format"`
	B64Data   string    `json:"b64_data"`
}

// CamResponse is the camera server's reply to a CamRequest.
type CamResponse struct {
	Frames map[CamId]CamFrame `json:"frames"`
}
