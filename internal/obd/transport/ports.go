package transport

import (
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"

	"cardiag/internal/models"
	"cardiag/pkg/log"
)

// Description substrings that mark a device as a likely OBD2 adapter.
var obdHints = []string{"obd", "elm327", "obdii", "stn11", "adapter"}

// ScanPorts lists serial devices that could be an OBD2 adapter, likely
// adapters first, generic USB serial devices after them.
func ScanPorts() ([]models.PortDescriptor, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}

	var likely, generic []models.PortDescriptor
	for _, d := range details {
		desc := models.PortDescriptor{
			Device:      d.Name,
			Description: d.Product,
			VendorID:    d.VID,
			ProductID:   d.PID,
		}
		switch {
		case matchesHint(d.Product):
			log.Info("found OBD2 adapter", zap.String("device", d.Name), zap.String("description", d.Product))
			likely = append(likely, desc)
		case d.IsUSB || strings.Contains(strings.ToLower(d.Name), "usb"):
			log.Debug("found USB serial device", zap.String("device", d.Name), zap.String("description", d.Product))
			generic = append(generic, desc)
		}
	}
	return append(likely, generic...), nil
}

func matchesHint(description string) bool {
	description = strings.ToLower(description)
	for _, hint := range obdHints {
		if strings.Contains(description, hint) {
			return true
		}
	}
	return false
}
