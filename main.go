package main

import (
	"flag"
	"fmt"
	"os"

	wcshare "github.com/wschat-go/wschat/share"
)

var help = `
  Usage: wschat [command] [--help]

  Commands:
    listen  - wait for a peer to connect, then chat
    connect - connect to a listening peer, then chat

  Read more:
    https://github.com/wschat-go/wschat

`

func main() {
	args := os.Args[1:]

	if len(args) == 0 {
		fmt.Print(help)
		os.Exit(0)
	}

	subcmd := args[0]
	args = args[1:]

	switch subcmd {
	case "listen":
		listen(args)
	case "connect":
		connect(args)
	case "--version", "version":
		fmt.Println(wcshare.BuildVersion)
	default:
		fmt.Print(help)
		os.Exit(1)
	}
}

func newLogger(debug bool) wcshare.Logger {
	logLevel := wcshare.LogLevelInfo
	if debug {
		logLevel = wcshare.LogLevelDebug
	}
	return wcshare.NewLogger("wschat", logLevel)
}

var listenHelp = `
  Usage: wschat listen [options]

  Options:
    --addr, bind address (host:port, defaults to ` + wcshare.DefaultBindAddr + `)
    --no-ip-info, skip the local/public IP reachability display
    --debug, enable debug logging

`

func listen(args []string) {
	flags := flag.NewFlagSet("listen", flag.ExitOnError)
	flags.Usage = func() {
		fmt.Print(listenHelp)
		os.Exit(1)
	}
	addr := flags.String("addr", wcshare.DefaultBindAddr, "")
	noIPInfo := flags.Bool("no-ip-info", false, "")
	debug := flags.Bool("debug", false, "")
	flags.Parse(args)

	logger := newLogger(*debug)
	config := &wcshare.ListenerConfig{
		Addr:     *addr,
		NoIPInfo: *noIPInfo,
	}
	if err := wcshare.RunListener(logger, config); err != nil {
		logger.Fatalf("%s", err)
	}
}

var connectHelp = `
  Usage: wschat connect [options] <uri>

  uri is the peer to connect to, of the form scheme://host[:port]
  (for example wss://192.0.2.10:8080; the port defaults to ` + wcshare.DefaultPort + `).

  Options:
    --debug, enable debug logging

`

func connect(args []string) {
	flags := flag.NewFlagSet("connect", flag.ExitOnError)
	flags.Usage = func() {
		fmt.Print(connectHelp)
		os.Exit(1)
	}
	debug := flags.Bool("debug", false, "")
	flags.Parse(args)

	if flags.NArg() != 1 {
		flags.Usage()
	}

	logger := newLogger(*debug)
	config := &wcshare.DialerConfig{
		URI: flags.Arg(0),
	}
	if err := wcshare.RunInitiator(logger, config); err != nil {
		logger.Fatalf("%s", err)
	}
}
