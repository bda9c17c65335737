package obd

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"cardiag/internal/models"
	"cardiag/internal/obd/transport"
	"cardiag/pkg/log"
)

// System letter per the top two bits of the first DTC byte (SAE J2012).
var dtcLetters = [4]byte{'P', 'C', 'B', 'U'}

var dtcPrefixes = map[models.DTCKind]string{
	models.DTCStored:    "43",
	models.DTCPending:   "47",
	models.DTCPermanent: "4A",
}

var dtcModes = map[models.DTCKind]string{
	models.DTCStored:    ModeStoredDTCs,
	models.DTCPending:   ModePendingDTCs,
	models.DTCPermanent: ModePermanentDTCs,
}

// ParseDTCs extracts trouble codes from a raw mode 03/07/0A response.
//
// The byte after the response prefix is read as the DTC count (ISO 15765
// framing, which is also what the common clone adapters emit even on
// K-line cars). Some clones additionally repeat the request mode after the
// count; when the remaining stream is misaligned by one byte and starts
// with the mode, that byte is dropped. A 0000 slot is padding, never a
// code. Unknown codes are kept with a placeholder description; a complete
// list matters more than complete descriptions.
func ParseDTCs(resp string, kind models.DTCKind) []models.TroubleCode {
	prefix, ok := dtcPrefixes[kind]
	if !ok {
		log.Warn("unknown DTC kind", zap.String("kind", string(kind)))
		return nil
	}
	if transport.IsSentinel(resp) {
		return nil
	}

	stream := compact(resp)
	idx := strings.Index(stream, prefix)
	if idx < 0 {
		return nil
	}
	data := stream[idx+len(prefix):]
	if len(data) < 2 {
		return nil
	}

	n, err := strconv.ParseUint(data[:2], 16, 8)
	if err != nil {
		log.Warn("malformed DTC count byte", zap.String("resp", resp))
		return nil
	}
	count := int(n)
	if count == 0 {
		return nil
	}
	data = data[2:]

	if mode := dtcModes[kind]; len(data)%4 == 2 && strings.HasPrefix(data, mode) {
		data = data[2:]
	}

	var codes []models.TroubleCode
	for i := 0; i+4 <= len(data) && len(codes) < count; i += 4 {
		slot := data[i : i+4]
		if slot == "0000" {
			continue
		}
		code, err := decodeDTC(slot)
		if err != nil {
			log.Warn("bad DTC slot", zap.String("slot", slot), zap.Error(err))
			continue
		}
		codes = append(codes, models.TroubleCode{
			Code:        code,
			Description: Describe(code),
			Kind:        kind,
		})
	}
	return codes
}

// decodeDTC reconstructs the 5-character code from a 4-hex-digit slot:
// top two bits pick the system letter, the next two the first digit, the
// remaining three nibbles pass through (0301 -> P0301).
func decodeDTC(slot string) (string, error) {
	if len(slot) != 4 {
		return "", fmt.Errorf("DTC slot %q: want 4 hex digits", slot)
	}
	hi, err := strconv.ParseUint(slot[:2], 16, 8)
	if err != nil {
		return "", fmt.Errorf("DTC slot %q: %w", slot, err)
	}
	if _, err := strconv.ParseUint(slot[2:], 16, 8); err != nil {
		return "", fmt.Errorf("DTC slot %q: %w", slot, err)
	}
	return fmt.Sprintf("%c%d%s", dtcLetters[hi>>6], (hi>>4)&0x3, slot[1:]), nil
}

// EncodeDTC is the inverse of the slot decoding: P0301 -> 0301. Used for
// freeze-frame addressing and round-trip checks.
func EncodeDTC(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 5 {
		return "", fmt.Errorf("DTC %q: want 5 characters", code)
	}
	letter := strings.IndexByte(string(dtcLetters[:]), code[0])
	if letter < 0 {
		return "", fmt.Errorf("DTC %q: bad system letter", code)
	}
	if code[1] < '0' || code[1] > '3' {
		return "", fmt.Errorf("DTC %q: first digit out of range", code)
	}
	rest, err := strconv.ParseUint(code[2:], 16, 16)
	if err != nil {
		return "", fmt.Errorf("DTC %q: %w", code, err)
	}
	hi := byte(letter)<<6 | (code[1]-'0')<<4 | byte(rest>>8)
	return fmt.Sprintf("%02X%s", hi, code[3:]), nil
}
