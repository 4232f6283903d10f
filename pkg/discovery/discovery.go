package discovery

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"go.bug.st/serial/enumerator"
)

// USB identifiers of the PD Buddy Sink.
const (
	VendorID  uint16 = 0x1209
	ProductID uint16 = 0x9DB5
)

// Errors returned by FindOne.
var (
	ErrNotFound  = errors.New("no PD Buddy Sink found")
	ErrAmbiguous = errors.New("more than one PD Buddy Sink found")
)

// Device is an attached sink.
type Device struct {
	// Port is the serial port name (e.g. /dev/ttyACM0, COM3).
	Port string

	VendorID     uint16
	ProductID    uint16
	SerialNumber string
	Product      string
}

// String returns a one-line description.
func (d Device) String() string {
	s := fmt.Sprintf("%s %04X:%04X", d.Port, d.VendorID, d.ProductID)
	if d.SerialNumber != "" {
		s += " serial=" + d.SerialNumber
	}
	if d.Product != "" {
		s += " (" + d.Product + ")"
	}
	return s
}

// Lister enumerates the serial ports of the host.
type Lister func() ([]*enumerator.PortDetails, error)

// FilterFunc selects devices.
type FilterFunc func(Device) bool

// FilterBySerial matches an exact USB serial number.
func FilterBySerial(serial string) FilterFunc {
	return func(d Device) bool { return d.SerialNumber == serial }
}

// Finder locates sinks among the host's serial ports.
type Finder struct {
	list      Lister
	vendorID  uint16
	productID uint16
}

// NewFinder creates a Finder backed by the operating system's port list.
func NewFinder() *Finder {
	return NewFinderWithLister(enumerator.GetDetailedPortsList)
}

// NewFinderWithLister creates a Finder backed by list.
func NewFinderWithLister(list Lister) *Finder {
	return &Finder{list: list, vendorID: VendorID, productID: ProductID}
}

// Find returns every attached sink, sorted by port name.
func (f *Finder) Find(filters ...FilterFunc) ([]Device, error) {
	ports, err := f.list()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}

	var devices []Device
	for _, p := range ports {
		if p == nil || !p.IsUSB {
			continue
		}
		vid, err1 := strconv.ParseUint(p.VID, 16, 16)
		pid, err2 := strconv.ParseUint(p.PID, 16, 16)
		if err1 != nil || err2 != nil {
			continue
		}
		if uint16(vid) != f.vendorID || uint16(pid) != f.productID {
			continue
		}
		d := Device{
			Port:         p.Name,
			VendorID:     uint16(vid),
			ProductID:    uint16(pid),
			SerialNumber: p.SerialNumber,
			Product:      p.Product,
		}
		if matchAll(d, filters) {
			devices = append(devices, d)
		}
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].Port < devices[j].Port })
	return devices, nil
}

// FindOne returns the only attached sink matching filters.
func (f *Finder) FindOne(filters ...FilterFunc) (Device, error) {
	devices, err := f.Find(filters...)
	if err != nil {
		return Device{}, err
	}
	switch len(devices) {
	case 0:
		return Device{}, ErrNotFound
	case 1:
		return devices[0], nil
	default:
		return Device{}, fmt.Errorf("%w: %d candidates", ErrAmbiguous, len(devices))
	}
}

// Find returns every attached sink using the operating system's port list.
func Find() ([]Device, error) {
	return NewFinder().Find()
}

func matchAll(d Device, filters []FilterFunc) bool {
	for _, f := range filters {
		if !f(d) {
			return false
		}
	}
	return true
}
