package comm

import (
	"sort"

	"go.bug.st/serial"
)

// ListPorts returns the serial ports present on the host, sorted by name.
// The names are the ones Dialer.Open accepts.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, err
	}
	sort.Strings(ports)
	return ports, nil
}
