package transport

import "testing"

func TestIsSentinel(t *testing.T) {
	tests := []struct {
		resp string
		want bool
	}{
		{"NO DATA", true},
		{"no data", true},
		{" SEARCHING... ", true},
		{"SEARCHING...\rUNABLE TO CONNECT", true},
		{"CAN ERROR", true},
		{"BUS INIT: ERROR", true},
		{"STOPPED", true},
		{"?", true},
		{"", false},
		{"OK", false},
		{"ELM327 v1.5", false},
		{"41 0C 1A F8", false},
		{"12.6V", false},
	}
	for _, tt := range tests {
		if got := IsSentinel(tt.resp); got != tt.want {
			t.Errorf("IsSentinel(%q) = %v, want %v", tt.resp, got, tt.want)
		}
	}
}

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		cmd  string
		want string
	}{
		{"echo and prompt", "010C\r41 0C 1A F8\r\r>", "010C", "41 0C 1A F8"},
		{"reset banner", "ATZ\r\rELM327 v1.5\r>", "ATZ", "ELM327 v1.5"},
		{"case-insensitive echo", "ate0\rOK\r>", "ATE0", "OK"},
		{"bare prompt", ">", "ATDP", ""},
		{"multiline joined", "41 0C 1A F8\n41 0D 00\r>", "010C", "41 0C 1A F8 41 0D 00"},
		{"surrounding blanks", "\r\n  OK  \r\n>", "ATE0", "OK"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanResponse(tt.raw, tt.cmd); got != tt.want {
				t.Errorf("CleanResponse(%q, %q) = %q, want %q", tt.raw, tt.cmd, got, tt.want)
			}
		})
	}
}
