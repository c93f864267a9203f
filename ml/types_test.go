package ml

import "testing"

func TestParseDType(t *testing.T) {
	cases := []struct {
		input   string
		want    DType
		wantErr bool
	}{
		{"", DTypeF32, false},
		{"f32", DTypeF32, false},
		{"F16", DTypeF16, false},
		{"bfloat16", DTypeBF16, false},
		{"q4_0", DTypeOther, true},
	}

	for _, tt := range cases {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDType(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDType(%q) Fehler = %v, erwartet Fehler %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDType(%q) = %v, erwartet %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewBackendUnknown(t *testing.T) {
	if _, err := NewBackend("does-not-exist", BackendParams{}); err == nil {
		t.Error("erwartet Fehler fuer unbekanntes Backend")
	}
}
