package wcshare

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/jpillora/requestlog"
)

// ListenerConfig is the configuration for the listening role
type ListenerConfig struct {
	// Addr is the host:port bind endpoint; DefaultBindAddr when empty
	Addr string

	// NoIPInfo suppresses the best-effort reachability display
	NoIPInfo bool
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// connListener adapts a single already-established connection to
// net.Listener so net/http can drive the websocket upgrade over it. Accept
// hands out the connection once and then blocks until Close.
type connListener struct {
	conn      net.Conn
	mu        sync.Mutex
	served    bool
	done      chan struct{}
	closeOnce sync.Once
}

func newConnListener(conn net.Conn) *connListener {
	return &connListener{conn: conn, done: make(chan struct{})}
}

func (cl *connListener) Accept() (net.Conn, error) {
	cl.mu.Lock()
	first := !cl.served
	cl.served = true
	cl.mu.Unlock()
	if first {
		return cl.conn, nil
	}
	<-cl.done
	return nil, net.ErrClosed
}

func (cl *connListener) Close() error {
	cl.closeOnce.Do(func() { close(cl.done) })
	return nil
}

func (cl *connListener) Addr() net.Addr {
	return cl.conn.LocalAddr()
}

// handshakeConn notifies errC if the HTTP server tears the connection down
// before the upgrade completes (malformed upgrade exchange, channel closed
// mid-handshake). After a successful upgrade the connection is hijacked by
// the websocket layer and this Close only fires at session end, when nobody
// is listening on errC any more.
type handshakeConn struct {
	net.Conn
	errC chan<- error
	once sync.Once
}

func (c *handshakeConn) Close() error {
	c.once.Do(func() {
		select {
		case c.errC <- c.Conn.Close():
		default:
			c.Conn.Close()
		}
	})
	return nil
}

// SessionListener accepts exactly one secure session per process run.
type SessionListener struct {
	Logger
	tlsConfig *tls.Config
	rawLn     net.Listener
	connLn    *connListener
	sessionC  chan *websocket.Conn
	errC      chan error
}

// NewSessionListener provisions a fresh ephemeral identity and binds the
// endpoint. Identity generation or bind failure is fatal.
func NewSessionListener(logger Logger, config *ListenerConfig) (*SessionListener, error) {
	identity, err := GenerateIdentity()
	if err != nil {
		return nil, logger.Errorf("ephemeral identity generation failed: %s", err)
	}
	addr, err := ResolveBindAddr(config.Addr)
	if err != nil {
		return nil, logger.Errorf("bad bind address %q: %s", config.Addr, err)
	}
	rawLn, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, logger.Errorf("listen on %s failed: %s", addr, err)
	}
	return &SessionListener{
		Logger:    logger.Fork("listener"),
		tlsConfig: ServerTLSConfig(identity),
		rawLn:     rawLn,
		sessionC:  make(chan *websocket.Conn, 1),
		errC:      make(chan error, 1),
	}, nil
}

// Addr returns the bound endpoint.
func (l *SessionListener) Addr() net.Addr {
	return l.rawLn.Addr()
}

// AcceptSession waits for the first inbound connection, runs the TLS and
// websocket handshakes over it, and returns the framed session.
//
// Only the first connection is ever examined — there is no accept loop and
// no pending-connection queue. A second peer connecting while a session is
// active completes its TCP handshake in the kernel backlog and is never
// looked at. This is the listener's contract, not a loop accident.
func (l *SessionListener) AcceptSession() (*Session, error) {
	rawConn, err := l.rawLn.Accept()
	if err != nil {
		return nil, l.Errorf("accept failed: %s", err)
	}
	l.ILogf("connection from %s", rawConn.RemoteAddr())

	tlsConn := tls.Server(rawConn, l.tlsConfig)
	if err := tlsConn.Handshake(); err != nil {
		rawConn.Close()
		return nil, l.Errorf("tls handshake failed: %s", err)
	}
	l.DLogf("tls handshake complete")

	h := http.Handler(http.HandlerFunc(l.handleUpgrade))
	if l.GetLogLevel() >= LogLevelDebug {
		h = requestlog.Wrap(h)
	}
	l.connLn = newConnListener(&handshakeConn{Conn: tlsConn, errC: l.errC})
	srv := &http.Server{Handler: h}
	go srv.Serve(l.connLn)

	select {
	case wsConn := <-l.sessionC:
		l.ILogf("websocket session established with %s", wsConn.RemoteAddr())
		return NewSession(l.Logger, RoleListener, wsConn), nil
	case err := <-l.errC:
		if err == nil {
			err = l.Errorf("connection closed during websocket handshake")
		}
		return nil, l.Errorf("websocket handshake failed: %s", err)
	}
}

// handleUpgrade is the one-shot websocket upgrade handler.
func (l *SessionListener) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if strings.ToLower(r.Header.Get("Upgrade")) != "websocket" {
		http.Error(w, "Not Found", 404)
		return
	}
	l.DLogf("upgrading to websocket, URL tail=%q", r.URL.String())
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		select {
		case l.errC <- err:
		default:
		}
		return
	}
	select {
	case l.sessionC <- wsConn:
	default:
		// a session was already delivered on this run
		wsConn.Close()
	}
}

// Close releases the bound endpoint and the single serviced connection, if
// any. The Session, once returned, is closed by its owner.
func (l *SessionListener) Close() error {
	err := l.rawLn.Close()
	if l.connLn != nil {
		l.connLn.Close()
	}
	return err
}

// RunListener runs the listening role end to end: provision an identity,
// bind, print reachability hints, accept one peer, then pump the
// conversation. The returned error is non-nil only for setup failures; a
// finished conversation returns nil.
func RunListener(logger Logger, config *ListenerConfig) error {
	l, err := NewSessionListener(logger, config)
	if err != nil {
		return err
	}
	defer l.Close()

	fmt.Printf("Listening on %s\n", l.Addr())
	if !config.NoIPInfo {
		DisplayReachability(l.Logger, os.Stdout, l.Addr())
	}
	fmt.Println("Waiting for a peer... Ctrl+C to quit")

	session, err := l.AcceptSession()
	if err != nil {
		return err
	}
	defer session.Close()

	inputHint(os.Stdout)
	return NewPump(l.Logger, session, os.Stdin, os.Stdout).Run()
}
