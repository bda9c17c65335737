package obd

// Mode command prefixes per SAE J1979.
const (
	ModeLiveData      = "01"
	ModeFreezeFrame   = "02"
	ModeStoredDTCs    = "03"
	ModeClearDTCs     = "04"
	ModePendingDTCs   = "07"
	ModeVehicleInfo   = "09"
	ModePermanentDTCs = "0A"
)

// ELM327 AT commands used by the connector.
const (
	CommandReset            = "ATZ"
	CommandEchoOff          = "ATE0"
	CommandLineFeedsOff     = "ATL0"
	CommandSpacesOff        = "ATS0"
	CommandHeadersOff       = "ATH0"
	CommandAdaptiveTiming   = "ATAT1"
	CommandSetProtocolAuto  = "ATSP0"
	CommandSetProtocolCAN   = "ATSP6"
	CommandDescribeProtocol = "ATDP"
	CommandReadVoltage      = "ATRV"
)

// PIDInfo describes how a raw mode 01 payload turns into a scaled value.
type PIDInfo struct {
	Name   string
	Unit   string
	Bytes  int
	Decode func(data []byte) float64
}

// The SAE-standard scaling formulas. These are wire contract, not tuning
// knobs; A is data[0], B is data[1].
var pidTable = map[string]PIDInfo{
	"04": {"Engine Load", "%", 1, func(b []byte) float64 { return float64(b[0]) * 100.0 / 255.0 }},
	"05": {"Coolant Temperature", "°C", 1, minus40},
	"06": {"Short Term Fuel Trim - Bank 1", "%", 1, fuelTrim},
	"07": {"Long Term Fuel Trim - Bank 1", "%", 1, fuelTrim},
	"08": {"Short Term Fuel Trim - Bank 2", "%", 1, fuelTrim},
	"09": {"Long Term Fuel Trim - Bank 2", "%", 1, fuelTrim},
	"0A": {"Fuel Pressure", "kPa", 1, func(b []byte) float64 { return float64(b[0]) * 3 }},
	"0B": {"Intake Manifold Pressure", "kPa", 1, func(b []byte) float64 { return float64(b[0]) }},
	"0C": {"Engine RPM", "rpm", 2, func(b []byte) float64 { return (float64(b[0])*256 + float64(b[1])) / 4.0 }},
	"0D": {"Vehicle Speed", "km/h", 1, func(b []byte) float64 { return float64(b[0]) }},
	"0E": {"Timing Advance", "°", 1, func(b []byte) float64 { return (float64(b[0]) - 128) / 2.0 }},
	"0F": {"Intake Air Temperature", "°C", 1, minus40},
	"10": {"Mass Air Flow", "g/s", 2, func(b []byte) float64 { return (float64(b[0])*256 + float64(b[1])) / 100.0 }},
	"11": {"Throttle Position", "%", 1, func(b []byte) float64 { return float64(b[0]) * 100.0 / 255.0 }},
	"1F": {"Run Time Since Engine Start", "s", 2, func(b []byte) float64 { return float64(b[0])*256 + float64(b[1]) }},
}

func minus40(b []byte) float64 {
	return float64(b[0]) - 40
}

func fuelTrim(b []byte) float64 {
	return (float64(b[0]) - 128) * 100.0 / 128.0
}

// DefaultLivePIDs is the scan order for a full live-data pass.
var DefaultLivePIDs = []string{
	"04", "05", "06", "07", "08", "09", "0A", "0B",
	"0C", "0D", "0E", "0F", "10", "11", "1F",
}
