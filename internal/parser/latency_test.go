package parser

import (
	"strings"
	"testing"
)

func TestParseDump(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantRows    int
		wantSkipped int
		wantData    bool
	}{
		{
			name:     "header_only",
			text:     "16666666\n",
			wantData: false,
		},
		{
			name:     "empty",
			text:     "",
			wantData: false,
		},
		{
			name:     "two_rows",
			text:     "16666666\n1000\t1100\t1050\n2000\t2100\t2050\n",
			wantRows: 2,
			wantData: true,
		},
		{
			name:     "crlf_and_trailing_blank_lines",
			text:     "16666666\r\n1000\t1100\t1050\r\n\r\n\r\n",
			wantRows: 1,
			wantData: true,
		},
		{
			name:        "wrong_field_count",
			text:        "16666666\n1000\t1100\n2000\t2100\t2050\n1\t2\t3\t4\n",
			wantRows:    1,
			wantSkipped: 2,
			wantData:    true,
		},
		{
			name:        "non_integer_field",
			text:        "16666666\n1000\tabc\t1050\n",
			wantRows:    0,
			wantSkipped: 1,
			wantData:    true,
		},
		{
			name:     "spaces_instead_of_tabs",
			text:     "16666666\n1000 1100 1050\n",
			wantRows: 1,
			wantData: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ParseDump(tt.text)
			if len(d.Rows) != tt.wantRows {
				t.Errorf("rows = %d, want %d", len(d.Rows), tt.wantRows)
			}
			if d.Skipped != tt.wantSkipped {
				t.Errorf("skipped = %d, want %d", d.Skipped, tt.wantSkipped)
			}
			if d.HasData() != tt.wantData {
				t.Errorf("HasData() = %v, want %v", d.HasData(), tt.wantData)
			}
		})
	}
}

func TestParseDump_RowValues(t *testing.T) {
	d := ParseDump("16666666\n1000\t1100\t1050\n")
	if len(d.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(d.Rows))
	}
	want := RawFrame{DesiredPresentTimeNs: 1000, ActualPresentTimeNs: 1100, FrameReadyTimeNs: 1050}
	if d.Rows[0] != want {
		t.Errorf("row = %+v, want %+v", d.Rows[0], want)
	}
}

func TestParseDump_SentinelRow(t *testing.T) {
	text := "16666666\n0\t9223372036854775807\t9223372036854775807\n"
	d := ParseDump(text)
	if len(d.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(d.Rows))
	}
	if !d.Rows[0].Pending() {
		t.Error("sentinel row should be pending")
	}
}

func TestDump_VsyncPeriod(t *testing.T) {
	tests := []struct {
		header  string
		want    int64
		wantErr bool
	}{
		{"16666666", 16666666, false},
		{" 8333333 ", 8333333, false},
		{"", 0, true},
		{"abc", 0, true},
		{"0", 0, true},
		{"-5", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, err := Dump{Header: tt.header}.VsyncPeriod()
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("VsyncPeriod() = %d, want %d", got, tt.want)
			}
		})
	}
}

func BenchmarkParseDump(b *testing.B) {
	var sb strings.Builder
	sb.WriteString("16666666\n")
	for i := 0; i < 128; i++ {
		sb.WriteString("1000000\t1100000\t1050000\n")
	}
	text := sb.String()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ParseDump(text)
	}
}
