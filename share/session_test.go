package wcshare

import (
	"bytes"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prep/socketpair"
)

const testTimeout = 5 * time.Second

// newSessionPair builds two Sessions joined by an in-memory socket pair,
// running the real websocket handshake between them.
func newSessionPair(t *testing.T) (server, client *Session) {
	t.Helper()
	c0, c1, err := socketpair.New("unix")
	if err != nil {
		t.Fatalf("socketpair.New failed: %s", err)
	}
	logger := NewLogger("test", LogLevelError)

	serverC := make(chan *Session, 1)
	errC := make(chan error, 1)
	go func() {
		srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wsConn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				errC <- err
				return
			}
			serverC <- NewSession(logger.Fork("server"), RoleListener, wsConn)
		})}
		srv.Serve(newConnListener(c0))
	}()

	u, _ := url.Parse("ws://wschat.test/")
	wsConn, _, err := websocket.NewClient(c1, u, nil, 1024, 1024)
	if err != nil {
		t.Fatalf("client websocket handshake failed: %s", err)
	}
	client = NewSession(logger.Fork("client"), RoleInitiator, wsConn)

	select {
	case server = <-serverC:
	case err := <-errC:
		t.Fatalf("server websocket handshake failed: %s", err)
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for server session")
	}
	return server, client
}

func recvFrame(t *testing.T, s *Session) Frame {
	t.Helper()
	select {
	case f, ok := <-s.Frames():
		if !ok {
			t.Fatalf("frame stream ended unexpectedly (readErr: %v)", s.ReadErr())
		}
		return f
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for a frame")
	}
	return Frame{}
}

func TestSessionTextRoundTrip(t *testing.T) {
	server, client := newSessionPair(t)
	defer server.Close()
	defer client.Close()

	if err := client.Send(Frame{Kind: FrameText, Payload: []byte("hello")}); err != nil {
		t.Fatalf("send failed: %s", err)
	}
	f := recvFrame(t, server)
	if f.Kind != FrameText || string(f.Payload) != "hello" {
		t.Fatalf("got %s %q, want text \"hello\"", f.Kind, f.Payload)
	}

	if err := server.Send(Frame{Kind: FrameText, Payload: []byte("hi there")}); err != nil {
		t.Fatalf("reply failed: %s", err)
	}
	f = recvFrame(t, client)
	if f.Kind != FrameText || string(f.Payload) != "hi there" {
		t.Fatalf("got %s %q, want text \"hi there\"", f.Kind, f.Payload)
	}
}

func TestSessionPingSurfacesAsFrame(t *testing.T) {
	server, client := newSessionPair(t)
	defer server.Close()
	defer client.Close()

	payload := []byte{0x00, 0x01, 0xfe, 0xff}
	if err := client.Send(Frame{Kind: FramePing, Payload: payload}); err != nil {
		t.Fatalf("ping send failed: %s", err)
	}
	f := recvFrame(t, server)
	if f.Kind != FramePing {
		t.Fatalf("got %s frame, want ping", f.Kind)
	}
	if !bytes.Equal(f.Payload, payload) {
		t.Fatalf("ping payload = %v, want %v", f.Payload, payload)
	}
}

func TestSessionCloseSurfacesAsFrame(t *testing.T) {
	server, client := newSessionPair(t)
	defer server.Close()
	defer client.Close()

	if err := client.Send(Frame{Kind: FrameClose, Code: websocket.CloseNormalClosure, Reason: "bye"}); err != nil {
		t.Fatalf("close send failed: %s", err)
	}
	f := recvFrame(t, server)
	if f.Kind != FrameClose {
		t.Fatalf("got %s frame, want close", f.Kind)
	}
	if f.Code != websocket.CloseNormalClosure || f.Reason != "bye" {
		t.Fatalf("close frame = %d %q, want %d \"bye\"", f.Code, f.Reason, websocket.CloseNormalClosure)
	}

	// the frame stream ends after a close
	select {
	case _, ok := <-server.Frames():
		if ok {
			t.Fatal("received a frame after close")
		}
	case <-time.After(testTimeout):
		t.Fatal("frame stream did not end after close")
	}

	// the websocket layer refuses frames after a close has been sent
	if err := client.Send(Frame{Kind: FrameText, Payload: []byte("late")}); err == nil {
		t.Fatal("send succeeded after close")
	}
}

func TestSessionDefaultsCloseCode(t *testing.T) {
	server, client := newSessionPair(t)
	defer server.Close()
	defer client.Close()

	if err := client.Send(Frame{Kind: FrameClose}); err != nil {
		t.Fatalf("close send failed: %s", err)
	}
	f := recvFrame(t, server)
	if f.Kind != FrameClose || f.Code != websocket.CloseNormalClosure {
		t.Fatalf("got %s frame code %d, want close %d", f.Kind, f.Code, websocket.CloseNormalClosure)
	}
}
