//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-ps"
)

// ErrAlreadyRunning is returned when another process with the same executable is alive.
var ErrAlreadyRunning = errors.New("another instance is already running")

// EnsureSingleInstance fails when another process runs the same executable.
// Two bridges on one marker file would disagree about the arm flag.
func EnsureSingleInstance() error {
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}

	return ensureSingle(filepath.Base(executable), os.Getpid())
}

func ensureSingle(name string, selfPID int) error {
	processList, err := ps.Processes()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	for _, process := range processList {
		if process.Pid() == selfPID {
			continue
		}

		if !sameExecutable(process.Executable(), name) {
			continue
		}

		return fmt.Errorf("%w: pid %d", ErrAlreadyRunning, process.Pid())
	}

	return nil
}

// sameExecutable compares names the way the process table reports them.
// Linux truncates executable names to 15 characters.
func sameExecutable(reported, name string) bool {
	const linuxCommLen = 15

	if strings.EqualFold(reported, name) {
		return true
	}

	return len(name) > linuxCommLen && len(reported) == linuxCommLen && strings.HasPrefix(name, reported)
}
