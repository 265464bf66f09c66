// Package pid guards a physical sensor against concurrent labctl
// processes with one PID file per sensor.
package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/labctl/internal/errors"
)

func path(name string) string {
	return filepath.Join(os.TempDir(), "labctl-"+name+".pid")
}

// Write records the current process as the holder of name. It fails with
// ErrAlreadyRunning while another live process holds it; stale files are
// taken over.
func Write(name string) error {
	errFactory := errors.New()
	file := path(name)

	if bytes, err := os.ReadFile(file); err == nil {
		holder, err := strconv.Atoi(strings.TrimSpace(string(bytes)))
		if err == nil && holder != os.Getpid() && alive(holder) {
			return errFactory.WithData(errors.ErrAlreadyRunning, struct {
				Sensor string
				PID    int
			}{
				Sensor: name,
				PID:    holder,
			})
		}
	} else if !os.IsNotExist(err) {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	if err := os.WriteFile(file, []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// Remove removes the PID file for name.
func Remove(name string) error {
	if err := os.Remove(path(name)); err != nil && !os.IsNotExist(err) {
		return errors.New().Wrap(errors.ErrInternal, err)
	}

	return nil
}

func alive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	return process.Signal(syscall.Signal(0)) == nil
}
