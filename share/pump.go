package wcshare

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	termutil "github.com/andrew-d/go-termutil"
)

// Pump drives one live conversation: it services local line input and
// inbound frames concurrently, so a typing human and a sending peer never
// block each other, until either side ends the session.
type Pump struct {
	Logger
	session FramedSession
	input   io.Reader
	display io.Writer
}

// NewPump creates a Pump over an established session. input is the local
// line-oriented source (normally stdin); display receives connection status
// and peer messages (normally stdout).
func NewPump(logger Logger, session FramedSession, input io.Reader, display io.Writer) *Pump {
	return &Pump{
		Logger:  logger.Fork("pump"),
		session: session,
		input:   input,
		display: display,
	}
}

// Run services both event sources until a terminal event fires, then
// returns. It returns nil on every normal end — either side closing, local
// input exhausted, or a mid-session I/O failure — because a disconnect is a
// normal end state, not an application failure.
func (p *Pump) Run() error {
	// Unbuffered, so at most one local line is outstanding at a time: the
	// reader goroutine cannot pull the next line until the pump has sent
	// the previous one.
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(p.input)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			p.DLogf("local input error: %s", err)
		}
		close(lines)
	}()

	frames := p.session.Frames()
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(p.display, "Input closed, ending chat.")
				// best-effort close notification; the session is ending
				// either way
				if err := p.session.Send(Frame{Kind: FrameClose}); err != nil {
					p.DLogf("close notification failed: %s", err)
				}
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if err := p.session.Send(Frame{Kind: FrameText, Payload: []byte(line)}); err != nil {
				p.ELogf("send failed: %s", err)
				return nil
			}
		case f, ok := <-frames:
			if !ok {
				if err := p.session.ReadErr(); err != nil {
					p.DLogf("receive failed: %s", err)
				}
				fmt.Fprintln(p.display, "Peer disconnected.")
				return nil
			}
			switch f.Kind {
			case FrameText:
				fmt.Fprintf(p.display, "peer> %s\n", f.Payload)
			case FramePing:
				if err := p.session.Send(Frame{Kind: FramePong, Payload: f.Payload}); err != nil {
					p.ELogf("pong failed: %s", err)
					return nil
				}
			case FrameClose:
				if f.Reason != "" {
					fmt.Fprintf(p.display, "Peer disconnected: %d %s\n", f.Code, f.Reason)
				} else {
					fmt.Fprintln(p.display, "Peer disconnected.")
				}
				return nil
			default:
				// binary and pong frames carry nothing for a text chat
			}
		}
	}
}

// inputHint prints the getting-started line, but only when a human is
// actually typing at a terminal.
func inputHint(w io.Writer) {
	if termutil.Isatty(os.Stdin.Fd()) {
		fmt.Fprintln(w, "Chat started. Type a message and press Enter to send.")
	}
}
