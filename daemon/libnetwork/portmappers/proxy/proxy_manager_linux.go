//go:build linux

package proxy

import (
	"os"
	"os/exec"
	"strconv"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/moby/l4reactor/daemon/libnetwork/portmapperapi"
	"github.com/moby/l4reactor/daemon/libnetwork/types"
)

// ProxyManager starts and supervises docker-proxy child processes, one per
// port binding, by invoking the binary at ProxyPath.
type ProxyManager struct {
	ProxyPath string
}

// StartProxy launches a docker-proxy process for pb. listenSock, when
// non-nil, is inherited by the child as fd 3.
func (pm ProxyManager) StartProxy(pb types.PortBinding, listenSock *os.File) (portmapperapi.Proxy, error) {
	args := []string{
		"-proto=" + pb.Proto.String(),
		"-host-ip=" + pb.HostIP.String(),
		"-host-port=" + strconv.Itoa(int(pb.HostPort)),
		"-container-ip=" + pb.IP.String(),
		"-container-port=" + strconv.Itoa(int(pb.Port)),
	}
	if listenSock == nil {
		args = append(args, "-use-listen-fd=false")
	}

	cmd := exec.Command(pm.ProxyPath, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if listenSock != nil {
		cmd.ExtraFiles = []*os.File{listenSock}
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, "failed to start userland proxy")
	}

	return &Proxy{p: cmd.Process, pidfd: openPidfd(cmd.Process.Pid)}, nil
}

// Proxy is a running docker-proxy child process.
type Proxy struct {
	p *os.Process
	// pidfd lets callers (notably tests) poll liveness without races against
	// pid reuse; -1 when the kernel doesn't support pidfd_open (pre-5.3).
	pidfd int
}

// Stop asks the proxy to exit via SIGTERM and waits for it. An error is
// returned if the process didn't exit cleanly, e.g. because it was killed
// out from under us.
func (p *Proxy) Stop() error {
	if p.p == nil {
		return nil
	}
	_ = p.p.Signal(syscall.SIGTERM)
	state, err := p.p.Wait()
	if err != nil {
		return err
	}
	if !state.Success() {
		return errors.New(state.String())
	}
	return nil
}

func openPidfd(pid int) int {
	fd, err := unix.PidfdOpen(pid, 0)
	if err != nil {
		return -1
	}
	return fd
}
