package obd

import (
	"encoding/hex"
	"strings"

	"go.uber.org/zap"

	"cardiag/internal/models"
	"cardiag/pkg/log"
)

// DecodeSensor turns a hex payload into a typed reading. A malformed or
// short payload returns nil after logging a warning; one bad PID response
// must never abort a scan. PIDs without a formula decode to their raw hex
// with unit "hex" so discovery stays decoupled from the formula table.
func DecodeSensor(pid, payload string) *models.SensorReading {
	pid = strings.ToUpper(pid)
	raw := compact(payload)

	info, ok := pidTable[pid]
	if !ok {
		return &models.SensorReading{PID: pid, Name: "PID " + pid, Unit: "hex", Raw: raw}
	}

	data, err := hex.DecodeString(raw)
	if err != nil {
		log.Warn("malformed sensor payload", zap.String("pid", pid), zap.String("payload", payload), zap.Error(err))
		return nil
	}
	if len(data) < info.Bytes {
		log.Warn("short sensor payload",
			zap.String("pid", pid), zap.Int("got", len(data)), zap.Int("want", info.Bytes))
		return nil
	}

	return &models.SensorReading{
		PID:   pid,
		Name:  info.Name,
		Value: info.Decode(data),
		Unit:  info.Unit,
		Raw:   raw,
	}
}

// compact uppercases and removes all whitespace.
func compact(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

// hexOnly keeps hex digits only, uppercased. Multi-line CAN replies carry
// line counters and colons that must not reach the hex decoder.
func hexOnly(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r >= 'A' && r <= 'F':
			return r
		case r >= 'a' && r <= 'f':
			return r - 32
		}
		return -1
	}, s)
}
