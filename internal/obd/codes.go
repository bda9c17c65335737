package obd

// UnknownCodeDescription is used for codes missing from the table below.
const UnknownCodeDescription = "Unknown code description"

// Describe resolves a trouble code against the static description table.
// Unknown codes get the placeholder; they are never dropped.
func Describe(code string) string {
	if desc, ok := dtcDescriptions[code]; ok {
		return desc
	}
	return UnknownCodeDescription
}

// Generic SAE J2012 descriptions for the codes seen in practice. Extending
// coverage is a data change only.
var dtcDescriptions = map[string]string{
	// Powertrain: air metering and intake
	"P0100": "Mass or Volume Air Flow Circuit Malfunction",
	"P0101": "Mass or Volume Air Flow Circuit Range/Performance Problem",
	"P0102": "Mass or Volume Air Flow Circuit Low Input",
	"P0103": "Mass or Volume Air Flow Circuit High Input",
	"P0104": "Mass or Volume Air Flow Circuit Intermittent",
	"P0105": "Manifold Absolute Pressure/Barometric Pressure Circuit Malfunction",
	"P0106": "Manifold Absolute Pressure/Barometric Pressure Circuit Range/Performance Problem",
	"P0107": "Manifold Absolute Pressure/Barometric Pressure Circuit Low Input",
	"P0108": "Manifold Absolute Pressure/Barometric Pressure Circuit High Input",
	"P0109": "Manifold Absolute Pressure/Barometric Pressure Circuit Intermittent",
	"P0110": "Intake Air Temperature Circuit Malfunction",
	"P0111": "Intake Air Temperature Circuit Range/Performance Problem",
	"P0112": "Intake Air Temperature Circuit Low Input",
	"P0113": "Intake Air Temperature Circuit High Input",
	"P0114": "Intake Air Temperature Circuit Intermittent",
	"P0115": "Engine Coolant Temperature Circuit Malfunction",
	"P0116": "Engine Coolant Temperature Circuit Range/Performance Problem",
	"P0117": "Engine Coolant Temperature Circuit Low Input",
	"P0118": "Engine Coolant Temperature Circuit High Input",
	"P0119": "Engine Coolant Temperature Circuit Intermittent",
	"P0120": "Throttle/Pedal Position Sensor/Switch A Circuit Malfunction",
	"P0121": "Throttle/Pedal Position Sensor/Switch A Circuit Range/Performance Problem",
	"P0122": "Throttle/Pedal Position Sensor/Switch A Circuit Low Input",
	"P0123": "Throttle/Pedal Position Sensor/Switch A Circuit High Input",
	"P0124": "Throttle/Pedal Position Sensor/Switch A Circuit Intermittent",
	"P0125": "Insufficient Coolant Temperature for Closed Loop Fuel Control",
	"P0126": "Insufficient Coolant Temperature for Stable Operation",
	"P0127": "Intake Air Temperature Too High",
	"P0128": "Coolant Thermostat (Coolant Temperature Below Thermostat Regulating Temperature)",
	"P0129": "Barometric Pressure Too Low",

	// Powertrain: oxygen sensors
	"P0130": "O2 Sensor Circuit Malfunction (Bank 1 Sensor 1)",
	"P0131": "O2 Sensor Circuit Low Voltage (Bank 1 Sensor 1)",
	"P0132": "O2 Sensor Circuit High Voltage (Bank 1 Sensor 1)",
	"P0133": "O2 Sensor Circuit Slow Response (Bank 1 Sensor 1)",
	"P0134": "O2 Sensor Circuit No Activity Detected (Bank 1 Sensor 1)",
	"P0135": "O2 Sensor Heater Circuit Malfunction (Bank 1 Sensor 1)",
	"P0136": "O2 Sensor Circuit Malfunction (Bank 1 Sensor 2)",
	"P0137": "O2 Sensor Circuit Low Voltage (Bank 1 Sensor 2)",
	"P0138": "O2 Sensor Circuit High Voltage (Bank 1 Sensor 2)",
	"P0139": "O2 Sensor Circuit Slow Response (Bank 1 Sensor 2)",
	"P0140": "O2 Sensor Circuit No Activity Detected (Bank 1 Sensor 2)",
	"P0141": "O2 Sensor Heater Circuit Malfunction (Bank 1 Sensor 2)",
	"P0150": "O2 Sensor Circuit Malfunction (Bank 2 Sensor 1)",
	"P0151": "O2 Sensor Circuit Low Voltage (Bank 2 Sensor 1)",
	"P0152": "O2 Sensor Circuit High Voltage (Bank 2 Sensor 1)",
	"P0153": "O2 Sensor Circuit Slow Response (Bank 2 Sensor 1)",
	"P0154": "O2 Sensor Circuit No Activity Detected (Bank 2 Sensor 1)",
	"P0155": "O2 Sensor Heater Circuit Malfunction (Bank 2 Sensor 1)",
	"P0156": "O2 Sensor Circuit Malfunction (Bank 2 Sensor 2)",
	"P0157": "O2 Sensor Circuit Low Voltage (Bank 2 Sensor 2)",
	"P0158": "O2 Sensor Circuit High Voltage (Bank 2 Sensor 2)",
	"P0159": "O2 Sensor Circuit Slow Response (Bank 2 Sensor 2)",
	"P0160": "O2 Sensor Circuit No Activity Detected (Bank 2 Sensor 2)",
	"P0161": "O2 Sensor Heater Circuit Malfunction (Bank 2 Sensor 2)",

	// Powertrain: fuel and air metering
	"P0168": "Fuel Temperature Too High",
	"P0169": "Incorrect Fuel Composition",
	"P0170": "Fuel Trim Malfunction (Bank 1)",
	"P0171": "System Too Lean (Bank 1)",
	"P0172": "System Too Rich (Bank 1)",
	"P0173": "Fuel Trim Malfunction (Bank 2)",
	"P0174": "System Too Lean (Bank 2)",
	"P0175": "System Too Rich (Bank 2)",
	"P0176": "Fuel Composition Sensor Circuit Malfunction",
	"P0177": "Fuel Composition Sensor Circuit Range/Performance",
	"P0178": "Fuel Composition Sensor Circuit Low Input",
	"P0179": "Fuel Composition Sensor Circuit High Input",
	"P0180": "Fuel Temperature Sensor A Circuit Malfunction",

	// Powertrain: misfires
	"P0300": "Random/Multiple Cylinder Misfire Detected",
	"P0301": "Cylinder 1 Misfire Detected",
	"P0302": "Cylinder 2 Misfire Detected",
	"P0303": "Cylinder 3 Misfire Detected",
	"P0304": "Cylinder 4 Misfire Detected",
	"P0305": "Cylinder 5 Misfire Detected",
	"P0306": "Cylinder 6 Misfire Detected",

	// Powertrain: emissions
	"P0401": "Exhaust Gas Recirculation Flow Insufficient",
	"P0402": "Exhaust Gas Recirculation Flow Excessive",
	"P0420": "Catalyst System Efficiency Below Threshold (Bank 1)",
	"P0430": "Catalyst System Efficiency Below Threshold (Bank 2)",
	"P0440": "Evaporative Emission Control System Malfunction",
	"P0441": "Evaporative Emission Control System Incorrect Purge Flow",
	"P0442": "Evaporative Emission Control System Leak Detected (Small Leak)",
	"P0443": "Evaporative Emission Control System Purge Control Valve Circuit",
	"P0446": "Evaporative Emission Control System Vent Control Circuit Malfunction",
	"P0455": "Evaporative Emission Control System Leak Detected (Large Leak)",
	"P0456": "Evaporative Emission Control System Leak Detected (Very Small Leak)",

	// Powertrain: speed and idle control
	"P0500": "Vehicle Speed Sensor Malfunction",
	"P0505": "Idle Control System Malfunction",
	"P0506": "Idle Control System RPM Lower Than Expected",
	"P0507": "Idle Control System RPM Higher Than Expected",
	"P0700": "Transmission Control System Malfunction",

	// Chassis
	"C1A00": "TPMS Control Module Malfunction",
	"C1A11": "Tire Pressure Sensor LF Malfunction",
	"C1A12": "Tire Pressure Sensor RF Malfunction",
	"C1A13": "Tire Pressure Sensor RR Malfunction",
	"C1A14": "Tire Pressure Sensor LR Malfunction",
	"C2100": "Tire Pressure Too Low - Left Front",
	"C2101": "Tire Pressure Too Low - Right Front",
	"C2102": "Tire Pressure Too Low - Right Rear",
	"C2103": "Tire Pressure Too Low - Left Rear",

	// Body
	"B1000": "Body Control Module Malfunction",
	"B1342": "ECU Defective",
	"B1600": "Ignition Switch Malfunction",

	// Network
	"U0001": "High Speed CAN Communication Bus",
	"U0100": "Lost Communication With ECM/PCM",
	"U0101": "Lost Communication With TCM",
	"U0121": "Lost Communication With ABS Module",
	"U0140": "Lost Communication With Body Control Module",
	"U0155": "Lost Communication With Instrument Cluster",
}
