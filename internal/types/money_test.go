package types

import (
	"encoding/json"
	"testing"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"5", 5000, false},
		{"5.000", 5000, false},
		{"5.5", 5500, false},
		{"0.001", 1, false},
		{".25", 250, false},
		{"12.345", 12345, false},
		{"1.2345", 0, true},
		{"-1", 0, true},
		{"", 0, true},
		{"abc", 0, true},
		{"1.-5", 0, true},
		{"0.-1", 0, true},
		{"1.+5", 0, true},
		{"1. 5", 0, true},
		{"1e3", 0, true},
		{"1000000000", 1_000_000_000_000, false},
		{"1000000000.001", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMoney(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseMoney(%q) expected error, got %v", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMoney(%q): %v", tt.in, err)
			}
			if got.Amount != tt.want {
				t.Errorf("ParseMoney(%q) = %d, want %d", tt.in, got.Amount, tt.want)
			}
		})
	}
}

func TestMoneyString(t *testing.T) {
	if got := NewMoney(5000).String(); got != "5.000" {
		t.Errorf("got %s, want 5.000", got)
	}
	if got := NewMoney(1).String(); got != "0.001" {
		t.Errorf("got %s, want 0.001", got)
	}
	if got := NewMoney(-1500).String(); got != "-1.500" {
		t.Errorf("got %s, want -1.500", got)
	}
}

func TestMoneyJSONAcceptsStringAndNumber(t *testing.T) {
	var v struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a":"5.250","b":0.5}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.A.Amount != 5250 || v.B.Amount != 500 {
		t.Fatalf("got a=%d b=%d", v.A.Amount, v.B.Amount)
	}
	out, err := json.Marshal(v.A)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `"5.250"` {
		t.Errorf("marshal = %s", out)
	}
}

func TestMinorUnitsTruncates(t *testing.T) {
	m := NewMoney(5123)
	if got := m.MinorUnits(1000); got != 5123 {
		t.Errorf("baisa factor: got %d", got)
	}
	if got := m.MinorUnits(100); got != 512 {
		t.Errorf("cent factor: got %d, want 512", got)
	}
}

func TestPercentOf(t *testing.T) {
	tests := []struct {
		pct   string
		total int64
		want  int64
	}{
		{"10", 5000, 500},
		{"0", 5000, 0},
		{"100", 5000, 5000},
		{"12.5", 1001, 125}, // 125.125 rounds down
		{"15", 1003, 150},   // 150.45 rounds down
		{"15", 1010, 152},   // 151.5 rounds up
	}
	for _, tt := range tests {
		p, err := ParsePercent(tt.pct)
		if err != nil {
			t.Fatalf("ParsePercent(%q): %v", tt.pct, err)
		}
		if got := p.Of(NewMoney(tt.total)).Amount; got != tt.want {
			t.Errorf("%s%% of %d = %d, want %d", tt.pct, tt.total, got, tt.want)
		}
	}
}

func TestLargeAmountsDoNotOverflow(t *testing.T) {
	big := NewMoney(5_000_000_000_000_000)
	if got := Percent(1000).Of(big).Amount; got != 500_000_000_000_000 {
		t.Errorf("10%% of %d = %d", big.Amount, got)
	}
	if got := Percent(10000).Of(big).Amount; got != big.Amount {
		t.Errorf("100%% of %d = %d", big.Amount, got)
	}
	if got := big.MinorUnits(1000); got != big.Amount {
		t.Errorf("MinorUnits = %d", got)
	}
	if got := FromMinorUnits(2500, 1000); got.Amount != 2500 {
		t.Errorf("FromMinorUnits(2500, 1000) = %d", got.Amount)
	}
	if got := FromMinorUnits(512, 100); got.Amount != 5120 {
		t.Errorf("FromMinorUnits(512, 100) = %d", got.Amount)
	}
}

func TestParsePercentRange(t *testing.T) {
	for _, bad := range []string{"100.01", "-1", "1.234", "1.-5"} {
		if _, err := ParsePercent(bad); err == nil {
			t.Errorf("ParsePercent(%q) expected error", bad)
		}
	}
	p, err := ParsePercent("10.5")
	if err != nil || p != 1050 {
		t.Fatalf("ParsePercent(10.5) = %d, %v", p, err)
	}
	if p.String() != "10.50" {
		t.Errorf("String() = %s", p.String())
	}
}
