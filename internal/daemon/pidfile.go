package daemon

import (
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/netguy204/ve/internal/verrors"
)

// isProcessAlive probes pid with signal 0, the standard liveness check via
// syscall.Kill.
func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}

// readPID reads the integer PID stored at path.
func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// writePID stores the current process's PID at path.
func writePID(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644)
}

// checkAlreadyRunning reads pidPath and, if it names a live process,
// returns *verrors.AlreadyRunning. A stale PID file (process gone) is
// removed and nil is returned.
func checkAlreadyRunning(pidPath string) error {
	pid, err := readPID(pidPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return nil // unreadable PID file treated as stale
	}
	if isProcessAlive(pid) {
		return &verrors.AlreadyRunning{PID: pid}
	}
	_ = os.Remove(pidPath)
	return nil
}

// connectTimeoutError names the socket for a *verrors.ConnectTimeout.
func connectTimeoutError(socket string) error {
	return &verrors.ConnectTimeout{Socket: socket}
}
