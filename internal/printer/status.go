package printer

import "time"

// Summary provides a lightweight overview of the link for health checks
type Summary struct {
	Status        string    `json:"status"` // "ok", "warning", "disconnected"
	State         string    `json:"state"`
	Transport     string    `json:"transport"`
	DeviceName    string    `json:"device_name,omitempty"`
	DeviceAddress string    `json:"device_address,omitempty"`
	ConnectedAt   time.Time `json:"connected_at,omitempty"`
	DetectedCount int       `json:"detected_count"`
}

// DeviceDTO is the JSON shape of a scanned printer
type DeviceDTO struct {
	Name     string   `json:"name"`
	Address  string   `json:"address"`
	RSSI     int      `json:"rssi,omitempty"`
	Services []string `json:"services,omitempty"`
}

// ToDTOs converts scan results for the wire.
func ToDTOs(devices []Device) []DeviceDTO {
	dtos := make([]DeviceDTO, len(devices))
	for i, d := range devices {
		services := make([]string, len(d.Services))
		for j, s := range d.Services {
			services[j] = NormalizeUUID(s)
		}
		dtos[i] = DeviceDTO{Name: d.Name, Address: d.Address, RSSI: d.RSSI, Services: services}
	}
	return dtos
}
