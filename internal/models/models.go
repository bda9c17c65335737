package models

// DTCKind classifies which mode a trouble code was reported through.
type DTCKind string

const (
	DTCStored    DTCKind = "stored"
	DTCPending   DTCKind = "pending"
	DTCPermanent DTCKind = "permanent"
)

// TroubleCode is a decoded diagnostic trouble code. Immutable once parsed.
type TroubleCode struct {
	Code        string
	Description string
	Kind        DTCKind
}

// SensorReading is a decoded mode 01/02 value. Raw keeps the original hex
// payload so a suspect decode can always be checked against the wire data.
type SensorReading struct {
	PID   string
	Name  string
	Value float64
	Unit  string
	Raw   string
}

// PortDescriptor describes a candidate serial device for an adapter.
type PortDescriptor struct {
	Device      string
	Description string
	VendorID    string
	ProductID   string
}

// VehicleInfo holds the identifiers negotiated during connect.
type VehicleInfo struct {
	VIN      string
	ECUName  string
	Protocol string
}

// ConnectionStatus is a snapshot of the connector state for callers.
type ConnectionStatus struct {
	Connected bool
	Protocol  string
	Vehicle   VehicleInfo
}
