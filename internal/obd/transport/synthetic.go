package transport

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"go.uber.org/zap"

	"cardiag/pkg/log"
)

// SyntheticPort emulates an ELM327 adapter wired to a warmed-up four
// cylinder engine with a couple of fault codes set. The response sequence
// is fully determined by the seed, so tests and demo runs are repeatable.
type SyntheticPort struct {
	mu     sync.Mutex
	open   bool
	rng    *rand.Rand
	uptime int

	stored    []string
	pending   []string
	permanent []string
}

// NewSyntheticPort creates a closed synthetic adapter seeded with seed.
func NewSyntheticPort(seed int64) *SyntheticPort {
	return &SyntheticPort{
		rng:       rand.New(rand.NewSource(seed)),
		stored:    []string{"0103", "0171"},
		pending:   []string{"0420"},
		permanent: []string{"0301"},
	}
}

func (p *SyntheticPort) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = true
	return nil
}

func (p *SyntheticPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = false
	return nil
}

func (p *SyntheticPort) Description() string {
	return "synthetic ELM327"
}

func (p *SyntheticPort) Send(cmd string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.open {
		return "", ErrNotOpen
	}
	cmd = strings.ToUpper(strings.TrimSpace(cmd))
	resp := p.respond(cmd)
	log.Debug("synthetic exchange", zap.String("cmd", cmd), zap.String("resp", resp))
	return resp, nil
}

func (p *SyntheticPort) respond(cmd string) string {
	switch {
	case cmd == "ATZ":
		return "ELM327 v1.5"
	case cmd == "ATDP":
		return "AUTO, ISO 15765-4 (CAN 11/500)"
	case cmd == "ATRV":
		return fmt.Sprintf("%.1fV", 12.2+p.rng.Float64()*0.8)
	case strings.HasPrefix(cmd, "AT"):
		return "OK"
	case cmd == "0100":
		return "41 00 BE 7F A8 03"
	case cmd == "0120":
		return "41 20 00 00 80 00"
	case strings.HasPrefix(cmd, "01") && len(cmd) == 4:
		return p.liveData(cmd[2:])
	case cmd == "03":
		return dtcReply("43", p.stored)
	case cmd == "07":
		return dtcReply("47", p.pending)
	case cmd == "0A":
		return dtcReply("4A", p.permanent)
	case cmd == "04":
		// permanent codes survive a clear, as on a real ECU
		p.stored = nil
		p.pending = nil
		return "44"
	case cmd == "0902":
		return infoReply("02", "1G1JC5444R7252367")
	case cmd == "090B":
		return infoReply("0B", "ECM-Engine Control")
	case strings.HasPrefix(cmd, "02") && strings.HasSuffix(cmd, "00") && len(cmd) == 6:
		return p.freezeFrame(cmd[2:4])
	}
	return "?"
}

func (p *SyntheticPort) liveData(pid string) string {
	var data []byte
	switch pid {
	case "01":
		data = []byte{0x00, 0x07, 0x65, 0x04}
	case "03":
		data = []byte{0x02, 0x00}
	case "04":
		data = []byte{p.jitter(0x35, 8)}
	case "05":
		data = []byte{p.jitter(0x82, 2)}
	case "06", "07", "08", "09":
		data = []byte{p.jitter(0x80, 4)}
	case "0A":
		data = []byte{p.jitter(0x69, 3)}
	case "0B":
		data = []byte{p.jitter(0x23, 4)}
	case "0C":
		rpm := (780 + p.rng.Intn(120)) * 4
		data = []byte{byte(rpm >> 8), byte(rpm)}
	case "0D":
		data = []byte{0x00}
	case "0E":
		data = []byte{p.jitter(0x8C, 4)}
	case "0F":
		data = []byte{p.jitter(0x5A, 2)}
	case "10":
		maf := 480 + p.rng.Intn(90)
		data = []byte{byte(maf >> 8), byte(maf)}
	case "11":
		data = []byte{p.jitter(0x22, 4)}
	case "13":
		data = []byte{0x03}
	case "15":
		data = []byte{p.jitter(0x96, 6), 0xFF}
	case "1F":
		p.uptime += 2 + p.rng.Intn(3)
		data = []byte{byte(p.uptime >> 8), byte(p.uptime)}
	case "31":
		data = []byte{0x01, 0x90}
	default:
		return "NO DATA"
	}
	return "41 " + pid + " " + hexBytes(data)
}

// freezeFrame answers mode 02 with the frame-number byte that mode 01
// replies do not carry.
func (p *SyntheticPort) freezeFrame(pid string) string {
	if len(p.stored) == 0 && len(p.permanent) == 0 {
		return "NO DATA"
	}
	live := p.liveData(pid)
	if IsSentinel(live) {
		return "NO DATA"
	}
	return "42 " + pid + " 00 " + strings.TrimPrefix(live, "41 "+pid+" ")
}

func (p *SyntheticPort) jitter(center byte, spread int) byte {
	return byte(int(center) + p.rng.Intn(2*spread+1) - spread)
}

func dtcReply(prefix string, codes []string) string {
	if len(codes) == 0 {
		return prefix + " 00"
	}
	parts := []string{prefix, fmt.Sprintf("%02X", len(codes))}
	for _, c := range codes {
		parts = append(parts, c[:2], c[2:])
	}
	parts = append(parts, "00", "00")
	return strings.Join(parts, " ")
}

func infoReply(pid, text string) string {
	parts := []string{"49", pid, "01"}
	for i := 0; i < len(text); i++ {
		parts = append(parts, fmt.Sprintf("%02X", text[i]))
	}
	return strings.Join(parts, " ")
}

func hexBytes(data []byte) string {
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, " ")
}
