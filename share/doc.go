// Package wcshare implements the wschat session core: ephemeral TLS
// identity provisioning, secure transport establishment for the listener
// and initiator roles, the websocket framing handshake, and the duplex
// pump that services local input and inbound frames for the lifetime of
// one session.
//
// The trust model is deliberate: the channel is encrypted, but the
// initiator accepts any peer certificate (see InsecureClientTLSConfig).
// Exactly one peer is serviced per process run.
package wcshare
