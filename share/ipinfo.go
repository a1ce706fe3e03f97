package wcshare

import (
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net"
	"net/http"
	"strings"
	"time"
)

// publicIPServices are tried in order; the first one that answers wins.
var publicIPServices = []string{
	"https://api.ipify.org",
	"https://httpbin.org/ip",
	"https://icanhazip.com",
}

const ipLookupTimeout = 10 * time.Second

// LocalIP returns the preferred outbound local address, found with the
// UDP-dial trick (no packet is actually sent).
func LocalIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", fmt.Errorf("unexpected local address %v", conn.LocalAddr())
	}
	return addr.IP.String(), nil
}

// PublicIP looks up this host's public address using a list of well-known
// reflector services.
func PublicIP(logger Logger) (string, error) {
	client := &http.Client{Timeout: ipLookupTimeout}
	for _, service := range publicIPServices {
		ip, err := fetchIP(client, service)
		if err != nil {
			logger.DLogf("public IP lookup via %s failed: %s", service, err)
			continue
		}
		return ip, nil
	}
	return "", fmt.Errorf("all public IP services failed")
}

func fetchIP(client *http.Client, service string) (string, error) {
	resp, err := client.Get(service)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	ip := strings.TrimSpace(string(body))
	if strings.Contains(service, "httpbin.org") {
		// httpbin answers with JSON: {"origin": "x.x.x.x"}
		var v struct {
			Origin string `json:"origin"`
		}
		if err := json.Unmarshal(body, &v); err != nil {
			return "", err
		}
		ip = strings.TrimSpace(v.Origin)
	}
	if ip == "" || !strings.ContainsAny(ip, "0123456789") {
		return "", fmt.Errorf("invalid address %q from %s", ip, service)
	}
	return ip, nil
}

// DisplayReachability prints best-effort connection hints for a listener
// bound to the given endpoint: the URL to use from the local network and,
// if discoverable, from the outside. Discovery problems only affect what
// gets printed; they never gate session establishment.
func DisplayReachability(logger Logger, w io.Writer, bound net.Addr) {
	_, port, err := net.SplitHostPort(bound.String())
	if err != nil {
		return
	}
	if ip, err := LocalIP(); err == nil {
		fmt.Fprintf(w, "Local network URL: wss://%s:%s\n", ip, port)
	} else {
		logger.DLogf("local IP lookup failed: %s", err)
	}
	fmt.Fprintln(w, "Looking up public IP address...")
	ip, err := PublicIP(logger)
	if err != nil {
		logger.WLogf("public IP lookup failed: %s", err)
		fmt.Fprintln(w, "Accepting connections on the local address only.")
		return
	}
	fmt.Fprintf(w, "Public URL: wss://%s:%s\n", ip, port)
	fmt.Fprintf(w, "Note: reaching this URL from outside requires forwarding port %s to this host.\n", port)
}
