package camera

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"signal-controller-go/internal/config"
	"signal-controller-go/internal/models"
)

const maxConsecutiveErrors = 10

// StreamCapture opens lane videos with OpenCV
type StreamCapture struct {
	cfg *config.Config
}

// NewStreamCapture creates a new stream capture service
func NewStreamCapture(cfg *config.Config) *StreamCapture {
	return &StreamCapture{
		cfg: cfg,
	}
}

// VideoSource decodes one lane video into RGBA pixel buffers at the sampling
// frame rate, looping back to the first frame at end of stream. It is not safe
// for concurrent use.
type VideoSource struct {
	laneID models.LaneID
	uri    string
	width  int
	height int
	every  time.Duration

	cap     *gocv.VideoCapture
	img     gocv.Mat
	resized gocv.Mat
	rgba    gocv.Mat

	frameID  int64
	lastRead time.Time
}

// Open opens the video at uri (file path or stream URL) for a lane
func (sc *StreamCapture) Open(laneID models.LaneID, uri string) (*VideoSource, error) {
	log.Info().
		Str("lane_id", laneID.String()).
		Str("uri", uri).
		Msg("Opening lane video")

	cap, err := gocv.OpenVideoCapture(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to open video %s: %w", uri, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("video capture is not opened for lane %s", laneID)
	}

	fps := sc.cfg.SamplingFPS
	if fps <= 0 {
		fps = 30
	}

	log.Info().
		Str("lane_id", laneID.String()).
		Float64("source_fps", cap.Get(gocv.VideoCaptureFPS)).
		Float64("source_width", cap.Get(gocv.VideoCaptureFrameWidth)).
		Float64("source_height", cap.Get(gocv.VideoCaptureFrameHeight)).
		Float64("frame_count", cap.Get(gocv.VideoCaptureFrameCount)).
		Int("sampling_fps", fps).
		Msg("Lane video opened")

	return &VideoSource{
		laneID:  laneID,
		uri:     uri,
		width:   sc.cfg.FrameWidth,
		height:  sc.cfg.FrameHeight,
		every:   time.Second / time.Duration(fps),
		cap:     cap,
		img:     gocv.NewMat(),
		resized: gocv.NewMat(),
		rgba:    gocv.NewMat(),
	}, nil
}

// Read returns the next frame, paced to the sampling frame rate
func (vs *VideoSource) Read(ctx context.Context) (*models.PixelBuffer, error) {
	if wait := vs.every - time.Since(vs.lastRead); wait > 0 {
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	vs.lastRead = time.Now()

	consecutiveErrors := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if ok := vs.cap.Read(&vs.img); ok && !vs.img.Empty() {
			break
		}

		consecutiveErrors++
		if consecutiveErrors >= maxConsecutiveErrors {
			return nil, fmt.Errorf("too many consecutive frame read errors (%d) on lane %s", consecutiveErrors, vs.laneID)
		}

		// end of file: loop the clip
		log.Debug().
			Str("lane_id", vs.laneID.String()).
			Int64("frames_read", vs.frameID).
			Msg("Rewinding lane video")
		vs.cap.Set(gocv.VideoCapturePosFrames, 0)
	}

	vs.frameID++

	src := vs.img
	if vs.width > 0 && vs.height > 0 && (vs.img.Cols() != vs.width || vs.img.Rows() != vs.height) {
		gocv.Resize(vs.img, &vs.resized, image.Pt(vs.width, vs.height), 0, 0, gocv.InterpolationLinear)
		src = vs.resized
	}
	gocv.CvtColor(src, &vs.rgba, gocv.ColorBGRToRGBA)

	return &models.PixelBuffer{
		Width:     vs.rgba.Cols(),
		Height:    vs.rgba.Rows(),
		Pix:       vs.rgba.ToBytes(),
		FrameID:   vs.frameID,
		Timestamp: vs.lastRead,
	}, nil
}

// Close releases the capture and its buffers
func (vs *VideoSource) Close() error {
	vs.img.Close()
	vs.resized.Close()
	vs.rgba.Close()
	return vs.cap.Close()
}
