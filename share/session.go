package wcshare

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpillora/sizestr"
)

// FrameKind tags a Frame with the kind of websocket message it carries.
type FrameKind int

const (
	// FrameText is a UTF-8 chat message
	FrameText FrameKind = iota

	// FrameBinary is a binary message; the chat ignores these
	FrameBinary

	// FramePing is a keep-alive probe that must be answered with a pong
	FramePing

	// FramePong answers a ping, echoing its payload
	FramePong

	// FrameClose ends the session, optionally carrying a code and reason
	FrameClose
)

var frameKindNames = [...]string{
	"text", "binary", "ping", "pong", "close",
}

func (k FrameKind) String() string {
	if k < FrameText || k > FrameClose {
		return "unknown"
	}
	return frameKindNames[k]
}

// Frame is one discrete unit of the framed protocol: a kind plus an
// optional payload. Code and Reason are only meaningful for FrameClose.
type Frame struct {
	Kind    FrameKind
	Payload []byte
	Code    int
	Reason  string
}

// FramedSession is the send/receive surface the duplex pump drives. The two
// capabilities are independent: Send may be called concurrently with
// receiving from Frames (sends are serialized internally).
type FramedSession interface {
	// Send transmits one frame to the peer
	Send(f Frame) error

	// Frames yields inbound frames until the session ends; the channel is
	// closed on any receive failure or end of stream
	Frames() <-chan Frame

	// ReadErr reports the receive failure, if any, once Frames is closed
	ReadErr() error

	// Close releases the underlying connection; safe to call more than once
	Close() error
}

// writeControlTimeout bounds control-frame writes (pong, close) so a stalled
// peer cannot wedge the pump.
const writeControlTimeout = 10 * time.Second

// Session is a FramedSession over an upgraded websocket connection. Exactly
// one Session exists per process run.
type Session struct {
	Logger
	role    Role
	ws      *websocket.Conn
	frames  chan Frame
	readErr error

	// writeLock serializes writers; the read half needs no lock because
	// readLoop is the only reader
	writeLock sync.Mutex

	closeOnce sync.Once
	closeErr  error

	numBytesSent     int64
	numBytesReceived int64
}

// NewSession wraps an upgraded websocket connection as a Framed Session and
// starts its receive loop.
func NewSession(logger Logger, role Role, wsConn *websocket.Conn) *Session {
	s := &Session{
		Logger: logger.Fork("session(%s)", wsConn.RemoteAddr()),
		role:   role,
		ws:     wsConn,
		frames: make(chan Frame, 16),
	}
	// surface pings and pongs to the pump instead of letting the library
	// answer them behind its back
	wsConn.SetPingHandler(func(appData string) error {
		s.frames <- Frame{Kind: FramePing, Payload: []byte(appData)}
		return nil
	})
	wsConn.SetPongHandler(func(appData string) error {
		s.frames <- Frame{Kind: FramePong, Payload: []byte(appData)}
		return nil
	})
	go s.readLoop()
	return s
}

// readLoop receives until the peer closes or the channel breaks. A clean
// peer close surfaces as a FrameClose; anything else ends the frame stream
// with ReadErr set.
func (s *Session) readLoop() {
	defer close(s.frames)
	for {
		kind, data, err := s.ws.ReadMessage()
		if err != nil {
			if ce, ok := err.(*websocket.CloseError); ok && ce.Code != websocket.CloseAbnormalClosure {
				s.frames <- Frame{Kind: FrameClose, Code: ce.Code, Reason: ce.Text}
			} else {
				s.readErr = err
			}
			return
		}
		atomic.AddInt64(&s.numBytesReceived, int64(len(data)))
		switch kind {
		case websocket.TextMessage:
			s.frames <- Frame{Kind: FrameText, Payload: data}
		case websocket.BinaryMessage:
			s.frames <- Frame{Kind: FrameBinary, Payload: data}
		}
	}
}

// Send transmits one frame to the peer. After a FrameClose has been sent the
// websocket layer refuses further frames.
func (s *Session) Send(f Frame) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()
	var err error
	switch f.Kind {
	case FrameText:
		err = s.ws.WriteMessage(websocket.TextMessage, f.Payload)
	case FrameBinary:
		err = s.ws.WriteMessage(websocket.BinaryMessage, f.Payload)
	case FramePing:
		err = s.ws.WriteControl(websocket.PingMessage, f.Payload, time.Now().Add(writeControlTimeout))
	case FramePong:
		err = s.ws.WriteControl(websocket.PongMessage, f.Payload, time.Now().Add(writeControlTimeout))
	case FrameClose:
		code := f.Code
		if code == 0 {
			code = websocket.CloseNormalClosure
		}
		msg := websocket.FormatCloseMessage(code, f.Reason)
		err = s.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeControlTimeout))
	default:
		err = s.Errorf("cannot send frame of kind %s", f.Kind)
	}
	if err == nil {
		atomic.AddInt64(&s.numBytesSent, int64(len(f.Payload)))
	}
	return err
}

// Frames yields inbound frames until the session ends.
func (s *Session) Frames() <-chan Frame {
	return s.frames
}

// ReadErr reports the receive failure, if any. Only valid after the Frames
// channel has been closed.
func (s *Session) ReadErr() error {
	return s.readErr
}

// Close tears down the websocket and its underlying connection. The first
// call wins; later calls return the same result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.ws.Close()
		s.ILogf("%s session closed (sent %s received %s)", s.role,
			sizestr.ToString(atomic.LoadInt64(&s.numBytesSent)),
			sizestr.ToString(atomic.LoadInt64(&s.numBytesReceived)))
	})
	return s.closeErr
}
