package tencent

import "testing"

func TestNeedsTranslation(t *testing.T) {
	tests := []struct {
		source, target string
		want           bool
	}{
		{"en", "zh", true},
		{"zh", "zh", false},
		{"zh-TW", "zh", false},
		{"ja", "zh", true},
		{"auto", "zh", true},
		{"EN", "en", false},
	}
	for _, tt := range tests {
		if got := needsTranslation(tt.source, tt.target); got != tt.want {
			t.Errorf("needsTranslation(%q, %q) = %v, want %v", tt.source, tt.target, got, tt.want)
		}
	}
}

func TestNewClientDefaultsTarget(t *testing.T) {
	client, err := NewClient("secID", "secKey", "ap-guangzhou", "")
	if err != nil {
		t.Fatalf("failed to create tencent client: %v", err)
	}
	if client.target != "zh" {
		t.Errorf("target = %q, want zh", client.target)
	}
}
