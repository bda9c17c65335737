package obd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"cardiag/internal/models"
	"cardiag/internal/obd/transport"
	"cardiag/pkg/log"
)

// ErrNotConnected is returned by operations that need a live vehicle link.
var ErrNotConnected = errors.New("obd: not connected to vehicle")

// State of the adapter initialization machine.
type State int

const (
	StateDisconnected State = iota
	StateResetting
	StateConfiguring
	StateProtocolDetecting
	StateVehicleConnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateResetting:
		return "resetting"
	case StateConfiguring:
		return "configuring"
	case StateProtocolDetecting:
		return "protocol-detecting"
	case StateVehicleConnected:
		return "vehicle-connected"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// The fixed configuration sequence after reset. Each command must come
// back without an error string or the connect attempt fails.
var initSequence = []string{
	CommandEchoOff,
	CommandLineFeedsOff,
	CommandSpacesOff,
	CommandHeadersOff,
	CommandAdaptiveTiming,
}

// Anchors of the 32-PID capability ranges probed during discovery.
var pidRangeAnchors = []string{"00", "20", "40", "60", "80", "A0", "C0", "E0"}

// Connector drives one ELM327 adapter over a transport.Port. One mutex
// serializes every transport exchange: a second logical operation, the
// monitor included, waits for the one in flight. The connector holds no
// state across sessions beyond its open link; the capability set and
// vehicle identifiers are rebuilt on every connect.
type Connector struct {
	port        transport.Port
	settleDelay time.Duration

	mu        sync.Mutex
	state     State
	protocol  string
	supported map[string]bool
	vehicle   models.VehicleInfo

	monitorStop chan struct{}
	monitorDone chan struct{}
}

// NewConnector wraps a transport. The port may be closed; Connect opens it.
func NewConnector(port transport.Port) *Connector {
	return &Connector{
		port:        port,
		settleDelay: time.Second,
		supported:   make(map[string]bool),
	}
}

// Connect runs the initialization machine: reset, configure, detect the
// protocol, then discover capabilities and vehicle identifiers. It returns
// false on any failed transition; retrying with a different port is the
// caller's decision.
func (c *Connector) Connect() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateVehicleConnected {
		return true
	}
	if err := c.port.Open(); err != nil {
		log.Error("adapter open failed", zap.String("port", c.port.Description()), zap.Error(err))
		c.state = StateFailed
		return false
	}

	// Reset needs settle time; no reply is expected or required.
	c.state = StateResetting
	c.port.Send(CommandReset)
	time.Sleep(c.settleDelay)

	c.state = StateConfiguring
	for _, cmd := range initSequence {
		resp, err := c.port.Send(cmd)
		if err != nil || transport.IsSentinel(resp) {
			log.Error("adapter configuration failed",
				zap.String("cmd", cmd), zap.String("resp", resp), zap.Error(err))
			c.fail()
			return false
		}
	}

	c.state = StateProtocolDetecting
	if !c.detectProtocol() {
		c.fail()
		return false
	}

	if resp, err := c.port.Send(CommandDescribeProtocol); err == nil && !transport.IsSentinel(resp) {
		c.protocol = resp
	}

	c.discoverSupportedPIDs()
	c.vehicle = c.readVehicleInfo()
	c.vehicle.Protocol = c.protocol

	c.state = StateVehicleConnected
	log.Info("vehicle connected",
		zap.String("protocol", c.protocol),
		zap.Int("supported_pids", len(c.supported)),
		zap.String("vin", c.vehicle.VIN))
	return true
}

func (c *Connector) fail() {
	c.state = StateFailed
	c.port.Close()
}

// detectProtocol asks for auto mode and probes with a supported-PIDs
// request. A sentinel probe result gets one retry with the CAN protocol
// forced; there is no further retry loop here.
func (c *Connector) detectProtocol() bool {
	if resp, err := c.port.Send(CommandSetProtocolAuto); err != nil || transport.IsSentinel(resp) {
		log.Error("auto protocol request failed", zap.String("resp", resp), zap.Error(err))
		return false
	}
	if c.probe() {
		return true
	}

	log.Warn("auto protocol probe failed, forcing CAN")
	if resp, err := c.port.Send(CommandSetProtocolCAN); err != nil || transport.IsSentinel(resp) {
		log.Error("CAN protocol request failed", zap.String("resp", resp), zap.Error(err))
		return false
	}
	if c.probe() {
		return true
	}
	log.Error("no response from vehicle, check that the ignition is on")
	return false
}

func (c *Connector) probe() bool {
	resp, err := c.port.Send(ModeLiveData + "00")
	return err == nil && resp != "" && !transport.IsSentinel(resp)
}

// Disconnect resets the adapter and closes the link. Calling it while
// already disconnected is a no-op returning true.
func (c *Connector) Disconnect() bool {
	c.StopMonitoring()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateDisconnected {
		return true
	}
	if c.state == StateVehicleConnected {
		// leave the adapter in a clean state for the next session
		c.port.Send(CommandReset)
	}
	err := c.port.Close()

	c.state = StateDisconnected
	c.protocol = ""
	c.supported = make(map[string]bool) // stale capabilities must not survive a reconnect
	c.vehicle = models.VehicleInfo{}

	if err != nil {
		log.Warn("close failed", zap.Error(err))
		return false
	}
	log.Info("disconnected from adapter")
	return true
}

// Status reports the connection snapshot for callers.
func (c *Connector) Status() models.ConnectionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.ConnectionStatus{
		Connected: c.state == StateVehicleConnected,
		Protocol:  c.protocol,
		Vehicle:   c.vehicle,
	}
}

// State returns the current initialization state.
func (c *Connector) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsSupported reports whether the last discovery saw the PID. Only valid
// for the lifetime of one link.
func (c *Connector) IsSupported(pid string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.supported[strings.ToUpper(pid)]
}

// discoverSupportedPIDs walks the range anchors and fills the capability
// set from the 32-bit masks, MSB first: bit i set means PID anchor+1+i.
// A sentinel or absent range ends the walk; higher ranges simply do not
// exist on that ECU.
func (c *Connector) discoverSupportedPIDs() {
	c.supported = make(map[string]bool)
	for _, anchor := range pidRangeAnchors {
		resp, err := c.port.Send(ModeLiveData + anchor)
		if err != nil {
			log.Warn("capability probe failed", zap.String("anchor", anchor), zap.Error(err))
			return
		}
		payload := extractPayload(resp, "41", anchor)
		if len(payload) < 8 {
			log.Debug("capability range absent", zap.String("anchor", anchor))
			return
		}
		mask, err := strconv.ParseUint(payload[:8], 16, 32)
		if err != nil {
			log.Warn("bad capability mask", zap.String("anchor", anchor), zap.String("payload", payload))
			return
		}
		base, _ := strconv.ParseUint(anchor, 16, 8)
		for i := 0; i < 32; i++ {
			if mask&(1<<(31-i)) != 0 {
				c.supported[fmt.Sprintf("%02X", int(base)+1+i)] = true
			}
		}
	}
}

// ScanForDTCs queries stored, pending and permanent codes and merges the
// results. A failed mode is skipped, not fatal: a partial scan still
// returns what was decoded.
func (c *Connector) ScanForDTCs() []models.TroubleCode {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateVehicleConnected {
		log.Error("dtc scan refused", zap.Stringer("state", c.state))
		return nil
	}

	var codes []models.TroubleCode
	for _, q := range []struct {
		cmd  string
		kind models.DTCKind
	}{
		{ModeStoredDTCs, models.DTCStored},
		{ModePendingDTCs, models.DTCPending},
		{ModePermanentDTCs, models.DTCPermanent},
	} {
		resp, err := c.port.Send(q.cmd)
		if err != nil {
			log.Warn("dtc query failed", zap.String("kind", string(q.kind)), zap.Error(err))
			continue
		}
		codes = append(codes, ParseDTCs(resp, q.kind)...)
	}
	log.Info("dtc scan complete", zap.Int("count", len(codes)))
	return codes
}

// ClearDTCs issues mode 04. The adapter acknowledges with 44; clearance is
// not verified by re-scanning, that is up to the caller.
func (c *Connector) ClearDTCs() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateVehicleConnected {
		log.Error("clear refused", zap.Stringer("state", c.state))
		return false
	}
	resp, err := c.port.Send(ModeClearDTCs)
	if err != nil {
		log.Error("clear command failed", zap.Error(err))
		return false
	}
	if transport.IsSentinel(resp) || !(strings.Contains(resp, "44") || strings.Contains(resp, "OK")) {
		log.Warn("clear not acknowledged", zap.String("resp", resp))
		return false
	}
	log.Info("trouble codes cleared")
	return true
}

// ReadLiveData reads every default PID the vehicle supports.
func (c *Connector) ReadLiveData() []models.SensorReading {
	return c.ReadSensorData(DefaultLivePIDs)
}

// ReadSensorData reads the given PIDs. Unsupported PIDs are skipped
// without touching the link; a failed or timed-out PID is logged and the
// rest of the scan continues.
func (c *Connector) ReadSensorData(pids []string) []models.SensorReading {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readSensors(pids)
}

// readSensors does the work of ReadSensorData with the lock already held,
// for the monitor worker.
func (c *Connector) readSensors(pids []string) []models.SensorReading {
	if c.state != StateVehicleConnected {
		log.Error("sensor read refused", zap.Stringer("state", c.state))
		return nil
	}

	var readings []models.SensorReading
	attempted := 0
	for _, pid := range pids {
		pid = strings.ToUpper(pid)
		if !c.supported[pid] {
			log.Debug("pid not supported, skipping", zap.String("pid", pid))
			continue
		}
		attempted++
		resp, err := c.port.Send(ModeLiveData + pid)
		if err != nil {
			log.Warn("sensor request failed", zap.String("pid", pid), zap.Error(err))
			continue
		}
		payload := extractPayload(resp, "41", pid)
		if payload == "" {
			log.Debug("no data for pid", zap.String("pid", pid))
			continue
		}
		if r := DecodeSensor(pid, payload); r != nil {
			readings = append(readings, *r)
		}
	}
	log.Info("sensor read complete", zap.Int("read", len(readings)), zap.Int("requested", attempted))
	return readings
}

// FreezeFrame reads the mode 02 snapshot of one PID for frame 00. The
// request is 02<pid>00 and the reply carries a 42 prefix followed by the
// PID and the frame number; payloads use the live-data scaling.
func (c *Connector) FreezeFrame(pid string) *models.SensorReading {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateVehicleConnected {
		return nil
	}
	pid = strings.ToUpper(pid)
	resp, err := c.port.Send(ModeFreezeFrame + pid + "00")
	if err != nil || transport.IsSentinel(resp) {
		return nil
	}
	payload := extractPayload(resp, "42", pid)
	if len(payload) < 2 {
		return nil
	}
	// drop the frame-number byte
	return DecodeSensor(pid, payload[2:])
}

// ReadVoltage reads the adapter supply voltage (ATRV).
func (c *Connector) ReadVoltage() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateVehicleConnected {
		return "", ErrNotConnected
	}
	resp, err := c.port.Send(CommandReadVoltage)
	if err != nil {
		return "", err
	}
	if resp == "" || transport.IsSentinel(resp) {
		return "", fmt.Errorf("no voltage reading: %q", resp)
	}
	return resp, nil
}

// readVehicleInfo pulls the VIN and ECU name via mode 09. Both are
// optional; many adapters or vehicles answer neither.
func (c *Connector) readVehicleInfo() models.VehicleInfo {
	var info models.VehicleInfo
	if resp, err := c.port.Send(ModeVehicleInfo + "02"); err == nil {
		if vin := decodeInfoString(resp, "4902", vinRune); len(vin) >= 17 {
			info.VIN = vin[:17]
		}
	}
	if resp, err := c.port.Send(ModeVehicleInfo + "0B"); err == nil {
		info.ECUName = decodeInfoString(resp, "490B", nameRune)
	}
	return info
}

// extractPayload returns the hex stream after the mode response prefix,
// or "" for sentinels and replies that never echo the expected prefix.
func extractPayload(resp, respMode, pid string) string {
	if transport.IsSentinel(resp) {
		return ""
	}
	stream := compact(resp)
	want := respMode + strings.ToUpper(pid)
	idx := strings.Index(stream, want)
	if idx < 0 {
		return ""
	}
	return stream[idx+len(want):]
}

// decodeInfoString converts a mode 09 ASCII reply (VIN, ECU name) into a
// string: locate the response prefix, skip the message-count byte, then
// keep the printable characters the filter admits.
func decodeInfoString(resp, prefix string, keep func(byte) bool) string {
	if transport.IsSentinel(resp) {
		return ""
	}
	stream := hexOnly(resp)
	idx := strings.Index(stream, prefix)
	if idx < 0 {
		return ""
	}
	data := stream[idx+len(prefix):]
	if len(data) >= 2 {
		// printable ASCII starts at 0x20, so a small first byte is the count
		if n, err := strconv.ParseUint(data[:2], 16, 8); err == nil && n <= 0x0F {
			data = data[2:]
		}
	}

	var sb strings.Builder
	for i := 0; i+2 <= len(data); i += 2 {
		v, err := strconv.ParseUint(data[i:i+2], 16, 8)
		if err != nil {
			break
		}
		if v == 0 {
			continue
		}
		if b := byte(v); keep(b) {
			sb.WriteByte(b)
		}
	}
	return strings.TrimSpace(sb.String())
}

func vinRune(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func nameRune(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') ||
		(b >= '0' && b <= '9') || b == ' ' || b == '-' || b == '_'
}
