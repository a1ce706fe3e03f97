package wcshare

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
)

// Role selects which side of the chat this process plays. It is fixed for
// the process lifetime.
type Role int

const (
	// RoleListener waits for the peer to connect
	RoleListener Role = iota

	// RoleInitiator connects out to a listening peer
	RoleInitiator
)

func (r Role) String() string {
	if r == RoleListener {
		return "listener"
	}
	return "initiator"
}

// DefaultPort is used when an endpoint omits one.
const DefaultPort = "8080"

// DefaultBindAddr is the listen endpoint used when none is given.
const DefaultBindAddr = "127.0.0.1:" + DefaultPort

var hasPortRegexp = regexp.MustCompile(`:\d+$`)

// ResolveBindAddr validates a host:port bind endpoint for the listener,
// applying DefaultBindAddr when addr is empty.
func ResolveBindAddr(addr string) (string, error) {
	if addr == "" {
		return DefaultBindAddr, nil
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return "", err
	}
	return addr, nil
}

// ResolveServerURI resolves an initiator target of the form
// scheme://host[:port] to the wss URL to dial. The given scheme is
// informational only (the chat always runs over TLS) and the port defaults
// to DefaultPort.
func ResolveServerURI(uri string) (*url.URL, error) {
	if !strings.Contains(uri, "://") {
		uri = "wss://" + uri
	}
	u, err := url.Parse(uri)
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, fmt.Errorf("no host in target URI %q", uri)
	}
	//apply default port
	if !hasPortRegexp.MatchString(u.Host) {
		u.Host = u.Host + ":" + DefaultPort
	}
	u.Scheme = "wss"
	return u, nil
}
