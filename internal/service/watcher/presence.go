package watcher

import (
	"os"
	"strings"

	"github.com/mitchellh/go-ps"
)

// DeviceExecutable is the executable name of the interactive runtime.
const DeviceExecutable = "alert-device"

// DeviceRunning reports whether an alert-device process other than this one is running.
func DeviceRunning() (bool, error) {
	processList, err := ps.Processes()
	if err != nil {
		return false, err
	}

	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if isDeviceExecutable(process.Executable()) {
			return true, nil
		}
	}

	return false, nil
}

func isDeviceExecutable(name string) bool {
	name = strings.TrimSuffix(strings.ToLower(name), ".exe")

	return name == DeviceExecutable
}
