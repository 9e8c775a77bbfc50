// Package preview serves the most recent frame of each lane as an MJPEG stream.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"signal-controller-go/internal/models"
)

const (
	boundary      = "frame"
	jpegQuality   = 85
	keepaliveTick = 2 * time.Second
)

// Encoder turns a lane frame into JPEG bytes
type Encoder func(buf *models.PixelBuffer) ([]byte, error)

// Publisher keeps the latest JPEG of each lane and streams it to viewers.
// Frames are only encoded for lanes somebody is watching.
type Publisher struct {
	encode      Encoder
	minInterval time.Duration
	now         func() time.Time

	jpegMutex  sync.RWMutex
	latestJPEG map[models.LaneID][]byte
	lastEncode map[models.LaneID]time.Time

	subMutex    sync.Mutex
	subscribers map[models.LaneID]map[chan struct{}]struct{}
}

// NewPublisher creates a preview publisher that encodes at most fps frames
// per second per lane. fps <= 0 encodes every frame.
func NewPublisher(fps int) *Publisher {
	p := &Publisher{
		encode:      EncodeJPEG,
		now:         time.Now,
		latestJPEG:  make(map[models.LaneID][]byte),
		lastEncode:  make(map[models.LaneID]time.Time),
		subscribers: make(map[models.LaneID]map[chan struct{}]struct{}),
	}
	if fps > 0 {
		p.minInterval = time.Second / time.Duration(fps)
	}
	return p
}

// EncodeJPEG converts an RGBA pixel buffer to JPEG with gocv
func EncodeJPEG(buf *models.PixelBuffer) ([]byte, error) {
	rgba, err := gocv.NewMatFromBytes(buf.Height, buf.Width, gocv.MatTypeCV8UC4, buf.Pix)
	if err != nil {
		return nil, fmt.Errorf("failed to create Mat from frame data: %w", err)
	}
	defer rgba.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(rgba, &bgr, gocv.ColorRGBAToBGR)

	out, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, bgr, []int{gocv.IMWriteJpegQuality, jpegQuality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	defer out.Close()

	b := out.GetBytes()
	jpegCopy := make([]byte, len(b))
	copy(jpegCopy, b)
	return jpegCopy, nil
}

// ObserveFrame records a decoded lane frame, throttled to the configured rate
func (p *Publisher) ObserveFrame(laneID models.LaneID, buf *models.PixelBuffer) {
	if buf == nil || !p.hasSubscribers(laneID) {
		return
	}

	now := p.now()
	p.jpegMutex.Lock()
	if last, ok := p.lastEncode[laneID]; ok && now.Sub(last) < p.minInterval {
		p.jpegMutex.Unlock()
		return
	}
	p.lastEncode[laneID] = now
	p.jpegMutex.Unlock()

	jpeg, err := p.encode(buf)
	if err != nil {
		log.Debug().Err(err).Str("lane_id", laneID.String()).Msg("Preview encode failed")
		return
	}

	p.jpegMutex.Lock()
	p.latestJPEG[laneID] = jpeg
	p.jpegMutex.Unlock()

	p.notify(laneID)
}

// Latest returns the last encoded frame of a lane
func (p *Publisher) Latest(laneID models.LaneID) ([]byte, bool) {
	p.jpegMutex.RLock()
	defer p.jpegMutex.RUnlock()
	b, ok := p.latestJPEG[laneID]
	return b, ok && len(b) > 0
}

func (p *Publisher) hasSubscribers(laneID models.LaneID) bool {
	p.subMutex.Lock()
	defer p.subMutex.Unlock()
	return len(p.subscribers[laneID]) > 0
}

func (p *Publisher) notify(laneID models.LaneID) {
	p.subMutex.Lock()
	defer p.subMutex.Unlock()
	for ch := range p.subscribers[laneID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (p *Publisher) subscribe(laneID models.LaneID) chan struct{} {
	ch := make(chan struct{}, 1)
	p.subMutex.Lock()
	defer p.subMutex.Unlock()
	if p.subscribers[laneID] == nil {
		p.subscribers[laneID] = make(map[chan struct{}]struct{})
	}
	p.subscribers[laneID][ch] = struct{}{}
	return ch
}

func (p *Publisher) unsubscribe(laneID models.LaneID, ch chan struct{}) {
	p.subMutex.Lock()
	defer p.subMutex.Unlock()
	delete(p.subscribers[laneID], ch)
	if len(p.subscribers[laneID]) == 0 {
		delete(p.subscribers, laneID)
	}
}

// Viewers returns the number of open streams for a lane
func (p *Publisher) Viewers(laneID models.LaneID) int {
	p.subMutex.Lock()
	defer p.subMutex.Unlock()
	return len(p.subscribers[laneID])
}

// StreamMJPEGHTTP writes multipart JPEG parts until the client goes away
func (p *Publisher) StreamMJPEGHTTP(w http.ResponseWriter, r *http.Request, laneID models.LaneID) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	notify := p.subscribe(laneID)
	defer p.unsubscribe(laneID, notify)

	writePart := func(jpeg []byte) bool {
		if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", boundary, len(jpeg)); err != nil {
			return false
		}
		if _, err := w.Write(jpeg); err != nil {
			return false
		}
		if _, err := io.WriteString(w, "\r\n"); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	first, ok := p.Latest(laneID)
	if !ok {
		first = placeholder(laneID)
	}
	if len(first) > 0 && !writePart(first) {
		return
	}

	keepalive := time.NewTicker(keepaliveTick)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-notify:
		case <-keepalive.C:
		}
		if buf, ok := p.Latest(laneID); ok {
			if !writePart(buf) {
				return
			}
		}
	}
}

func placeholder(laneID models.LaneID) []byte {
	mat := gocv.NewMatWithSize(150, 200, gocv.MatTypeCV8UC3)
	defer mat.Close()

	mat.SetTo(gocv.Scalar{Val1: 64, Val2: 64, Val3: 64, Val4: 0})

	textColor := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	gocv.PutText(&mat, laneID.String(), image.Pt(10, 70), gocv.FontHersheySimplex, 0.8, textColor, 2)
	gocv.PutText(&mat, "Waiting for video", image.Pt(10, 100), gocv.FontHersheySimplex, 0.5, textColor, 1)

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, jpegQuality})
	if err != nil {
		return nil
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...)
}
