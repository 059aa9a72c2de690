package main

import (
	"net"
	"os"
	"strconv"
	"syscall"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
)

// docker-proxy forwards a single published port to a container. It is
// invoked once per port binding by the port-mapping manager, which passes
// the frontend listening socket down as file descriptor 3 when one was
// pre-bound, and tears the process down by sending SIGTERM when the
// binding is removed.
func main() {
	var (
		hostIP           string
		hostPort         int
		containerIP      string
		containerPort    int
		proto            string
		useListenSocket  bool
		proxyProtoAccept bool
		proxyProtoSend   bool
		debug            bool
	)

	flags := flag.NewFlagSet("docker-proxy", flag.ExitOnError)
	flags.StringVar(&proto, "proto", "tcp", "proxied protocol (tcp, udp or sctp)")
	flags.StringVar(&hostIP, "host-ip", "", "host-facing IP address")
	flags.IntVar(&hostPort, "host-port", 0, "host-facing port")
	flags.StringVar(&containerIP, "container-ip", "", "container-facing IP address")
	flags.IntVar(&containerPort, "container-port", 0, "container-facing port")
	flags.BoolVar(&useListenSocket, "use-listen-fd", true, "adopt the pre-bound socket on fd 3 instead of binding host-ip:host-port itself")
	flags.BoolVar(&proxyProtoAccept, "proxy-protocol-accept", false, "expect a PROXY protocol v1 header on each accepted connection")
	flags.BoolVar(&proxyProtoSend, "proxy-protocol-send", false, "emit a PROXY protocol v1 header to the backend before relaying")
	flags.BoolVar(&debug, "debug", false, "enable debug-level logging")
	if err := flags.Parse(os.Args[1:]); err != nil {
		logrus.Fatal(err)
	}

	if debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	config := ProxyConfig{
		Proto:         proto,
		HostIP:        net.ParseIP(hostIP),
		HostPort:      hostPort,
		ContainerIP:   net.ParseIP(containerIP),
		ContainerPort: containerPort,
	}
	if config.HostIP == nil {
		logrus.Fatalf("docker-proxy: invalid --host-ip %q", hostIP)
	}
	if config.ContainerIP == nil {
		logrus.Fatalf("docker-proxy: invalid --container-ip %q", containerIP)
	}

	if useListenSocket && proto != "sctp" {
		config.ListenSock = os.NewFile(3, "listen-fd")
	}

	p, err := newProxy(config)
	if err != nil {
		logrus.Fatal(err)
	}
	if tcp, ok := p.(*TCPProxy); ok {
		tcp.WithProxyProtocol(proxyProtoAccept, proxyProtoSend)
	}

	sigCh := make(chan os.Signal, 1)
	notifySignals(sigCh)
	go func() {
		for sig := range sigCh {
			if sig == syscall.SIGTERM || sig == syscall.SIGINT {
				p.Close()
				return
			}
		}
	}()

	logrus.WithFields(logrus.Fields{
		"proto":     config.Proto,
		"host":      net.JoinHostPort(config.HostIP.String(), strconv.Itoa(config.HostPort)),
		"container": net.JoinHostPort(config.ContainerIP.String(), strconv.Itoa(config.ContainerPort)),
	}).Info("docker-proxy: starting")

	p.Run()
}
