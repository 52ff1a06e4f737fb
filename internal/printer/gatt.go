package printer

import (
	"strings"
)

// Well-known GATT identifiers for BLE receipt printers.
const (
	PrinterServiceUUID      = "000018f0-0000-1000-8000-00805f9b34fb"
	VendorServiceUUID       = "0000ff00-0000-1000-8000-00805f9b34fb"
	WriteCharacteristicUUID = "00002af1-0000-1000-8000-00805f9b34fb"
)

// DefaultNamePrefixes are advertised names accepted during discovery.
var DefaultNamePrefixes = []string{"POS", "Printer", "EPSON", "STAR", "Citizen"}

// DefaultServiceUUIDs are advertised services accepted during discovery.
var DefaultServiceUUIDs = []string{PrinterServiceUUID, VendorServiceUUID}

const bluetoothBaseSuffix = "-0000-1000-8000-00805f9b34fb"

// NormalizeUUID expands 16 and 32-bit short forms to the full lowercase
// 128-bit form and inserts dashes where missing.
func NormalizeUUID(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "0x")
	switch len(s) {
	case 4:
		return "0000" + s + bluetoothBaseSuffix
	case 8:
		return s + bluetoothBaseSuffix
	case 32:
		return s[0:8] + "-" + s[8:12] + "-" + s[12:16] + "-" + s[16:20] + "-" + s[20:]
	default:
		return s
	}
}

// Device is a printer seen during discovery.
type Device struct {
	Name     string   `json:"name"`
	Address  string   `json:"address"`
	RSSI     int      `json:"rssi,omitempty"`
	Services []string `json:"services,omitempty"`
	handle   any
}

// Label is the best human-readable identity of the device.
func (d Device) Label() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Address
}

// Service is a GATT service with its characteristics.
type Service struct {
	UUID            string
	Characteristics []Characteristic
}

// Characteristic is a GATT characteristic. Only write properties matter here.
type Characteristic struct {
	UUID            string
	Write           bool
	WriteNoResponse bool
	handle          any
}

// Writable reports whether the characteristic accepts writes of either kind.
func (c Characteristic) Writable() bool {
	return c.Write || c.WriteNoResponse
}

// Filter decides which advertisements are printers.
type Filter struct {
	NamePrefixes []string
	ServiceUUIDs []string
}

// DefaultFilter accepts the well-known services and name prefixes.
func DefaultFilter() Filter {
	return Filter{NamePrefixes: DefaultNamePrefixes, ServiceUUIDs: DefaultServiceUUIDs}
}

// Match accepts a device advertising a known service or a known name prefix.
func (f Filter) Match(d Device) bool {
	for _, adv := range d.Services {
		adv = NormalizeUUID(adv)
		for _, want := range f.ServiceUUIDs {
			if adv == NormalizeUUID(want) {
				return true
			}
		}
	}
	for _, p := range f.NamePrefixes {
		if p != "" && strings.HasPrefix(d.Name, p) {
			return true
		}
	}
	return false
}

// resolveService prefers the printer service, then the vendor service, then
// whatever the device lists first.
func resolveService(services []Service) (Service, error) {
	if len(services) == 0 {
		return Service{}, ErrNoService
	}
	for _, want := range []string{PrinterServiceUUID, VendorServiceUUID} {
		for _, s := range services {
			if NormalizeUUID(s.UUID) == want {
				return s, nil
			}
		}
	}
	return services[0], nil
}

// resolveCharacteristic prefers the well-known write characteristic and falls
// back to the first writable one.
func resolveCharacteristic(s Service) (Characteristic, error) {
	for _, c := range s.Characteristics {
		if NormalizeUUID(c.UUID) == WriteCharacteristicUUID && c.Writable() {
			return c, nil
		}
	}
	for _, c := range s.Characteristics {
		if c.Writable() {
			return c, nil
		}
	}
	return Characteristic{}, ErrNoWritableCharacteristic
}
