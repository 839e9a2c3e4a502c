package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/intervox/intervox/internal/audio"
	"github.com/intervox/intervox/internal/logger"
)

// defaultFrameInterval is the cadence encoded audio frames are pushed on
// for the life of the connection.
const defaultFrameInterval = 250 * time.Millisecond

// StreamConfig configures the network streaming recognizer.
type StreamConfig struct {
	// URL is the websocket endpoint of the transcription service.
	URL string
	// Language is the target recognition language.
	Language string
	// Model selects a service-side model.
	Model string
	// FrameInterval overrides the audio push cadence. Zero keeps 250ms.
	FrameInterval time.Duration
}

// serverMessage is the wire shape the transcription service sends back.
type serverMessage struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"isFinal"`
}

// wsConn is the websocket surface Stream needs; *websocket.Conn satisfies it.
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Stream is the network streaming recognizer: it holds a persistent
// bidirectional connection to a transcription service, pushes encoded
// audio frames on a fixed cadence and accumulates final-flagged text into
// the canonical transcript for the turn. Partial-flagged text is surfaced
// as a live preview only and never appended.
type Stream struct {
	cfg    StreamConfig
	device audio.Device
	cb     Callbacks
	logger *zap.Logger
	dial   func(endpoint string) (wsConn, error)

	mu       sync.Mutex
	state    State
	lastErr  string
	buffer   string
	conn     wsConn
	cancel   context.CancelFunc
	stopping bool
}

// NewStream creates a streaming recognizer over the given audio device.
func NewStream(cfg StreamConfig, device audio.Device, cb Callbacks, log *zap.Logger) *Stream {
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = defaultFrameInterval
	}

	return &Stream{
		cfg:    cfg,
		device: device,
		cb:     cb,
		logger: logger.WithFields(log, zap.String("capture_backend", "stream")),
		dial: func(endpoint string) (wsConn, error) {
			conn, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
			if err != nil {
				return nil, err
			}
			return conn, nil
		},
		state: StateIdle,
	}
}

// Supported reports whether an endpoint and audio device are available.
func (s *Stream) Supported() bool {
	return strings.TrimSpace(s.cfg.URL) != "" && s.device != nil
}

// State returns the current capture state.
func (s *Stream) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the last fatal error reason, or empty.
func (s *Stream) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Buffer returns the accumulated final transcript so far.
func (s *Stream) Buffer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer
}

// StartListening dials the service, acquires the audio device and starts
// pushing frames. No-op while already listening.
func (s *Stream) StartListening() error {
	if !s.Supported() {
		return fmt.Errorf("streaming recognizer is not configured")
	}

	s.mu.Lock()
	if s.state == StateListening {
		s.mu.Unlock()
		return nil
	}
	s.state = StateListening
	s.lastErr = ""
	s.buffer = ""
	s.stopping = false
	s.mu.Unlock()

	endpoint, err := s.endpoint()
	if err != nil {
		s.fail(fmt.Sprintf("network: %v", err))
		return err
	}

	conn, err := s.dial(endpoint)
	if err != nil {
		err = fmt.Errorf("connecting to transcription service: %w", err)
		s.fail(fmt.Sprintf("network: %v", err))
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())

	frames, err := s.device.Start(ctx)
	if err != nil {
		cancel()
		_ = conn.Close()
		err = fmt.Errorf("acquiring audio device: %w", err)
		s.fail(fmt.Sprintf("audio-capture: %v", err))
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.cancel = cancel
	s.mu.Unlock()

	go s.writeLoop(ctx, conn, frames)
	go s.readLoop(conn)

	s.logger.Debug("streaming capture started", zap.String("endpoint", endpoint))

	return nil
}

// StopListening tears the connection down gracefully: close signal first,
// then the local recorder, then the audio device. Each step's failure is
// tolerated without blocking the others.
func (s *Stream) StopListening() {
	s.mu.Lock()
	if s.state != StateListening || s.stopping {
		s.mu.Unlock()
		return
	}
	s.stopping = true
	conn := s.conn
	cancel := s.cancel
	s.mu.Unlock()

	if conn != nil {
		deadline := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := conn.WriteMessage(websocket.CloseMessage, deadline); err != nil {
			s.logger.Debug("close signal failed", zap.Error(err))
		}
	}

	if cancel != nil {
		cancel()
	}

	if err := s.device.Stop(); err != nil {
		s.logger.Debug("device release failed", zap.Error(err))
	}

	// Unblock the reader; it finalizes the turn on exit.
	if conn != nil {
		_ = conn.Close()
	}
}

// writeLoop pushes accumulated audio on the frame cadence.
func (s *Stream) writeLoop(ctx context.Context, conn wsConn, frames <-chan []byte) {
	ticker := time.NewTicker(s.cfg.FrameInterval)
	defer ticker.Stop()

	var pending []byte
	for {
		select {
		case chunk, ok := <-frames:
			if !ok {
				return
			}
			pending = append(pending, chunk...)
		case <-ticker.C:
			if len(pending) == 0 {
				continue
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, pending); err != nil {
				s.logger.Debug("frame write failed", zap.Error(err))
				return
			}
			pending = nil
		case <-ctx.Done():
			return
		}
	}
}

// readLoop consumes partial/final messages until the connection ends.
func (s *Stream) readLoop(conn wsConn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.finishRead(err)
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Debug("unparseable service message", zap.Error(err))
			continue
		}

		text := strings.TrimSpace(msg.Text)
		if text == "" {
			continue
		}

		if msg.IsFinal {
			s.mu.Lock()
			s.buffer = joinUtterances(s.buffer, text)
			preview := s.buffer
			s.mu.Unlock()

			if s.cb.OnTranscript != nil {
				s.cb.OnTranscript(preview)
			}
			continue
		}

		// Partial results are a live preview only.
		s.mu.Lock()
		preview := joinUtterances(s.buffer, text)
		s.mu.Unlock()

		if s.cb.OnTranscript != nil {
			s.cb.OnTranscript(preview)
		}
	}
}

// finishRead resolves the end of the connection: a requested stop
// finalizes the turn, anything else is a fatal network failure.
func (s *Stream) finishRead(err error) {
	s.mu.Lock()
	stopping := s.stopping
	buffer := s.buffer
	if stopping {
		s.state = StateIdle
		s.stopping = false
		s.conn = nil
	}
	s.mu.Unlock()

	if stopping {
		if s.cb.OnStopped != nil {
			s.cb.OnStopped(buffer)
		}
		return
	}

	// Unexpected teardown. Release local resources before reporting.
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	_ = s.device.Stop()

	s.fail(fmt.Sprintf("network: %v", err))
}

func (s *Stream) fail(reason string) {
	s.mu.Lock()
	alreadyFailed := s.state == StateError
	s.state = StateError
	s.lastErr = reason
	s.stopping = false
	s.conn = nil
	s.mu.Unlock()

	if alreadyFailed {
		return
	}

	s.logger.Warn("fatal capture error", zap.String("reason", reason))

	if s.cb.OnError != nil {
		s.cb.OnError(reason)
	}
}

// endpoint builds the negotiated connection URL with language and model
// parameters.
func (s *Stream) endpoint() (string, error) {
	u, err := url.Parse(s.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parsing service url: %w", err)
	}

	q := u.Query()
	if s.cfg.Language != "" {
		q.Set("language", s.cfg.Language)
	}
	if s.cfg.Model != "" {
		q.Set("model", s.cfg.Model)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// joinUtterances space-joins two transcript fragments, tolerating empties.
func joinUtterances(a, b string) string {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}
