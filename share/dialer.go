package wcshare

import (
	"fmt"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

// DialerConfig is the configuration for the connecting role
type DialerConfig struct {
	// URI is the target endpoint, scheme://host[:port]
	URI string
}

// wsHandshakeTimeout bounds session establishment only; an established
// session has no idle timeout.
const wsHandshakeTimeout = 45 * time.Second

// DialSession resolves the target endpoint, dials it, and runs the TLS and
// websocket handshakes. The TLS handshake uses the accept-any-peer policy:
// the remote certificate is never verified. Any failure is fatal; there is
// no retry.
func DialSession(logger Logger, config *DialerConfig) (*Session, error) {
	u, err := ResolveServerURI(config.URI)
	if err != nil {
		return nil, logger.Errorf("bad target URI %q: %s", config.URI, err)
	}
	d := websocket.Dialer{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: wsHandshakeTimeout,
		TLSClientConfig:  InsecureClientTLSConfig(),
	}
	logger.ILogf("connecting to %s", u)
	wsConn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		return nil, logger.Errorf("connect to %s failed: %s", u, err)
	}
	logger.ILogf("websocket session established with %s", wsConn.RemoteAddr())
	return NewSession(logger, RoleInitiator, wsConn), nil
}

// RunInitiator runs the connecting role end to end: dial, handshake, then
// pump the conversation. The returned error is non-nil only for setup
// failures; a finished conversation returns nil.
func RunInitiator(logger Logger, config *DialerConfig) error {
	fmt.Printf("Connecting to %s\n", config.URI)
	session, err := DialSession(logger, config)
	if err != nil {
		return err
	}
	defer session.Close()

	fmt.Println("Connected.")
	inputHint(os.Stdout)
	return NewPump(logger, session, os.Stdin, os.Stdout).Run()
}
