package obd

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"cardiag/internal/obd/transport"
)

// scriptPort is a scripted transport.Port recording every command sent.
type scriptPort struct {
	mu      sync.Mutex
	open    bool
	sent    []string
	respond func(cmd string) string
}

func (p *scriptPort) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = true
	return nil
}

func (p *scriptPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = false
	return nil
}

func (p *scriptPort) Description() string { return "script" }

func (p *scriptPort) Send(cmd string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return "", transport.ErrNotOpen
	}
	p.sent = append(p.sent, cmd)
	return p.respond(cmd), nil
}

func (p *scriptPort) sentCommands() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.sent...)
}

func (p *scriptPort) isOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

// healthyECU answers like a CAN vehicle supporting PIDs 05 and 0C, with
// per-command overrides layered on top.
func healthyECU(overrides map[string]string) func(string) string {
	return func(cmd string) string {
		if r, ok := overrides[cmd]; ok {
			return r
		}
		switch {
		case cmd == "ATZ":
			return "ELM327 v1.5"
		case cmd == "ATDP":
			return "ISO 15765-4 (CAN 11/500)"
		case strings.HasPrefix(cmd, "AT"):
			return "OK"
		case cmd == "0100":
			return "41 00 08 10 00 00"
		}
		return "NO DATA"
	}
}

func newTestConnector(respond func(string) string) (*Connector, *scriptPort) {
	p := &scriptPort{respond: respond}
	c := NewConnector(p)
	c.settleDelay = time.Millisecond
	return c, p
}

func infoHex(pid, text string) string {
	parts := []string{"49", pid, "01"}
	for i := 0; i < len(text); i++ {
		parts = append(parts, fmt.Sprintf("%02X", text[i]))
	}
	return strings.Join(parts, " ")
}

func contains(cmds []string, cmd string) bool {
	for _, c := range cmds {
		if c == cmd {
			return true
		}
	}
	return false
}

func TestConnectDiscoversCapabilities(t *testing.T) {
	c, p := newTestConnector(healthyECU(nil))
	if !c.Connect() {
		t.Fatal("Connect failed")
	}
	if c.State() != StateVehicleConnected {
		t.Fatalf("state = %v, want vehicle-connected", c.State())
	}
	for _, pid := range []string{"05", "0C"} {
		if !c.IsSupported(pid) {
			t.Errorf("IsSupported(%q) = false, want true", pid)
		}
	}
	for _, pid := range []string{"0D", "1F", "20"} {
		if c.IsSupported(pid) {
			t.Errorf("IsSupported(%q) = true, want false", pid)
		}
	}
	if st := c.Status(); !st.Connected || st.Protocol != "ISO 15765-4 (CAN 11/500)" {
		t.Errorf("status = %+v", st)
	}

	// reset first, then echo/linefeed/spaces/headers/timing before any probe
	sent := p.sentCommands()
	wantOrder := []string{"ATZ", "ATE0", "ATL0", "ATS0", "ATH0", "ATAT1", "ATSP0"}
	if len(sent) < len(wantOrder) {
		t.Fatalf("only %d commands sent: %v", len(sent), sent)
	}
	for i, cmd := range wantOrder {
		if sent[i] != cmd {
			t.Fatalf("sent[%d] = %q, want %q (full: %v)", i, sent[i], cmd, sent)
		}
	}
}

func TestConnectSecondCallIsNoOp(t *testing.T) {
	c, p := newTestConnector(healthyECU(nil))
	if !c.Connect() {
		t.Fatal("Connect failed")
	}
	n := len(p.sentCommands())
	if !c.Connect() {
		t.Fatal("second Connect failed")
	}
	if got := len(p.sentCommands()); got != n {
		t.Errorf("second Connect sent %d extra commands", got-n)
	}
}

func TestConnectFallsBackToCAN(t *testing.T) {
	forced := false
	c, p := newTestConnector(func(cmd string) string {
		switch {
		case cmd == "ATZ":
			return "ELM327 v1.5"
		case cmd == "ATSP6":
			forced = true
			return "OK"
		case cmd == "ATDP":
			return "ISO 15765-4 (CAN 11/500)"
		case strings.HasPrefix(cmd, "AT"):
			return "OK"
		case cmd == "0100":
			if !forced {
				return "SEARCHING...\rUNABLE TO CONNECT"
			}
			return "41 00 08 10 00 00"
		}
		return "NO DATA"
	})
	if !c.Connect() {
		t.Fatal("Connect failed")
	}
	if !contains(p.sentCommands(), "ATSP6") {
		t.Error("CAN protocol was never forced")
	}
	if !c.IsSupported("05") {
		t.Error("capabilities missing after fallback")
	}
}

func TestConnectFailsOnConfigError(t *testing.T) {
	c, p := newTestConnector(healthyECU(map[string]string{"ATE0": "?"}))
	if c.Connect() {
		t.Fatal("Connect succeeded with rejected configuration")
	}
	if c.State() != StateFailed {
		t.Errorf("state = %v, want failed", c.State())
	}
	if p.isOpen() {
		t.Error("port left open after failed connect")
	}
}

func TestConnectFailsWhenVehicleSilent(t *testing.T) {
	c, _ := newTestConnector(healthyECU(map[string]string{"0100": "UNABLE TO CONNECT"}))
	if c.Connect() {
		t.Fatal("Connect succeeded with no vehicle response")
	}
	if c.State() != StateFailed {
		t.Errorf("state = %v, want failed", c.State())
	}
}

func TestDisconnectIdempotent(t *testing.T) {
	c, p := newTestConnector(healthyECU(nil))
	if !c.Disconnect() {
		t.Error("Disconnect on a fresh connector should succeed")
	}

	if !c.Connect() {
		t.Fatal("Connect failed")
	}
	if !c.Disconnect() {
		t.Error("Disconnect failed")
	}
	if c.State() != StateDisconnected {
		t.Errorf("state = %v, want disconnected", c.State())
	}
	if c.IsSupported("05") {
		t.Error("capabilities survived disconnect")
	}
	if p.isOpen() {
		t.Error("port left open after disconnect")
	}
	if !c.Disconnect() {
		t.Error("repeated Disconnect should succeed")
	}
}

func TestReconnectRediscoversCapabilities(t *testing.T) {
	mask := "41 00 08 10 00 00" // PIDs 05 and 0C
	c, _ := newTestConnector(func(cmd string) string {
		return healthyECU(map[string]string{"0100": mask})(cmd)
	})
	if !c.Connect() {
		t.Fatal("Connect failed")
	}
	if !c.IsSupported("0C") {
		t.Fatal("0C should be supported on first link")
	}
	c.Disconnect()

	mask = "41 00 08 00 00 00" // PID 05 only
	if !c.Connect() {
		t.Fatal("reconnect failed")
	}
	if c.IsSupported("0C") {
		t.Error("stale capability survived reconnect")
	}
	if !c.IsSupported("05") {
		t.Error("05 missing after reconnect")
	}
}

func TestReadSensorDataSkipsUnsupported(t *testing.T) {
	c, p := newTestConnector(healthyECU(nil))
	if !c.Connect() {
		t.Fatal("Connect failed")
	}
	readings := c.ReadSensorData([]string{"0D"})
	if len(readings) != 0 {
		t.Errorf("got %d readings for an unsupported PID", len(readings))
	}
	if contains(p.sentCommands(), "010D") {
		t.Error("unsupported PID was requested on the link")
	}
}

func TestReadSensorDataContinuesPastFailures(t *testing.T) {
	c, _ := newTestConnector(healthyECU(map[string]string{
		"0100": "41 00 1F FF 80 02", // PIDs 04-11 and 1F
		"0104": "41 04 7F",
		"0105": "41 05 5A",
		"0106": "41 06 80",
		"0107": "41 07 80",
		"0108": "", // adapter stayed silent on this one
		"0109": "41 09 80",
		"010A": "41 0A 64",
		"010B": "41 0B 23",
		"010C": "41 0C 1A F8",
		"010D": "41 0D 00",
	}))
	if !c.Connect() {
		t.Fatal("Connect failed")
	}
	pids := []string{"04", "05", "06", "07", "08", "09", "0A", "0B", "0C", "0D"}
	readings := c.ReadSensorData(pids)
	if len(readings) != 9 {
		t.Fatalf("got %d readings, want 9: %+v", len(readings), readings)
	}
	for _, r := range readings {
		if r.PID == "08" {
			t.Errorf("silent PID produced a reading: %+v", r)
		}
	}
}

func TestReadSensorDataRefusedWhenDisconnected(t *testing.T) {
	c, _ := newTestConnector(healthyECU(nil))
	if readings := c.ReadSensorData([]string{"05"}); readings != nil {
		t.Errorf("got %+v without a connection", readings)
	}
}

func TestScanForDTCsMergesKinds(t *testing.T) {
	c, _ := newTestConnector(healthyECU(map[string]string{
		"03": "43 01 01 71 00 00",
		"07": "47 01 04 20 00 00",
		"0A": "4A 00",
	}))
	if !c.Connect() {
		t.Fatal("Connect failed")
	}
	codes := c.ScanForDTCs()
	if len(codes) != 2 {
		t.Fatalf("got %d codes, want 2: %+v", len(codes), codes)
	}
	if codes[0].Code != "P0171" || codes[0].Kind != "stored" {
		t.Errorf("codes[0] = %+v", codes[0])
	}
	if codes[1].Code != "P0420" || codes[1].Kind != "pending" {
		t.Errorf("codes[1] = %+v", codes[1])
	}
}

func TestClearDTCs(t *testing.T) {
	c, _ := newTestConnector(healthyECU(map[string]string{"04": "44"}))
	if c.ClearDTCs() {
		t.Error("clear should be refused while disconnected")
	}
	if !c.Connect() {
		t.Fatal("Connect failed")
	}
	if !c.ClearDTCs() {
		t.Error("clear with 44 ack should succeed")
	}
}

func TestClearDTCsUnacknowledged(t *testing.T) {
	c, _ := newTestConnector(healthyECU(map[string]string{"04": "NO DATA"}))
	if !c.Connect() {
		t.Fatal("Connect failed")
	}
	if c.ClearDTCs() {
		t.Error("clear without ack should fail")
	}
}

func TestFreezeFrame(t *testing.T) {
	c, _ := newTestConnector(healthyECU(map[string]string{
		"020C00": "42 0C 00 1A F8",
		"020500": "NO DATA",
	}))
	if !c.Connect() {
		t.Fatal("Connect failed")
	}
	r := c.FreezeFrame("0C")
	if r == nil {
		t.Fatal("FreezeFrame(0C) = nil")
	}
	if r.Value != 1726 {
		t.Errorf("value = %v, want 1726", r.Value)
	}
	if c.FreezeFrame("05") != nil {
		t.Error("FreezeFrame without a snapshot should be nil")
	}
}

func TestReadVoltage(t *testing.T) {
	c, _ := newTestConnector(healthyECU(map[string]string{"ATRV": "12.6V"}))
	if _, err := c.ReadVoltage(); err != ErrNotConnected {
		t.Errorf("err = %v, want ErrNotConnected", err)
	}
	if !c.Connect() {
		t.Fatal("Connect failed")
	}
	v, err := c.ReadVoltage()
	if err != nil {
		t.Fatalf("ReadVoltage: %v", err)
	}
	if v != "12.6V" {
		t.Errorf("voltage = %q, want 12.6V", v)
	}
}

func TestConnectReadsVehicleInfo(t *testing.T) {
	c, _ := newTestConnector(healthyECU(map[string]string{
		"0902": infoHex("02", "1G1JC5444R7252367"),
		"090B": infoHex("0B", "ECM-Engine Control"),
	}))
	if !c.Connect() {
		t.Fatal("Connect failed")
	}
	st := c.Status()
	if st.Vehicle.VIN != "1G1JC5444R7252367" {
		t.Errorf("vin = %q", st.Vehicle.VIN)
	}
	if st.Vehicle.ECUName != "ECM-Engine Control" {
		t.Errorf("ecu = %q", st.Vehicle.ECUName)
	}
	if st.Vehicle.Protocol != st.Protocol {
		t.Errorf("vehicle protocol %q != status protocol %q", st.Vehicle.Protocol, st.Protocol)
	}
}
