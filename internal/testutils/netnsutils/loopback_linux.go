package netnsutils

import "os/exec"

// bringLoopbackUp brings the "lo" interface up in the current (network)
// namespace. Shelling out to iproute2 keeps this test helper from needing a
// netlink client dependency for a one-line ioctl-equivalent.
func bringLoopbackUp() error {
	return exec.Command("ip", "link", "set", "lo", "up").Run()
}
