package negotiation

import "testing"

func TestSupported(t *testing.T) {
	tests := []struct {
		client, min string
		want        bool
	}{
		{"1.4.0", "", true},
		{"garbage", "", true},
		{"1.4.0", "1.4.0", true},
		{"1.5.0", "1.4.0", true},
		{"1.3.9", "1.4.0", false},
		{"2.0.0", "v1.4.0", true},
		{"1.4.0-beta.1", "1.4.0", false},
		{"garbage", "1.0.0", false},
		{"", "1.0.0", false},
	}

	for _, tt := range tests {
		if got := Supported(tt.client, tt.min); got != tt.want {
			t.Errorf("Supported(%q, %q) = %v, want %v", tt.client, tt.min, got, tt.want)
		}
	}
}

func TestValidMinimum(t *testing.T) {
	for _, v := range []string{"", "1.4.0", "v2.0.0", "1.4"} {
		if !ValidMinimum(v) {
			t.Errorf("ValidMinimum(%q) = false, want true", v)
		}
	}
	for _, v := range []string{"latest", "1.x"} {
		if ValidMinimum(v) {
			t.Errorf("ValidMinimum(%q) = true, want false", v)
		}
	}
}
