package negotiation

import (
	"testing"
)

func TestParseClientHeader(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    ClientInfo
		wantErr bool
	}{
		{
			name:   "version and platform",
			header: `version="1.4.0", platform="web"`,
			want:   ClientInfo{Version: "1.4.0", Platform: "web"},
		},
		{
			name:   "version only",
			header: `version="2.0.0"`,
			want:   ClientInfo{Version: "2.0.0"},
		},
		{
			name:   "leading v stripped",
			header: `version="v1.2.3"`,
			want:   ClientInfo{Version: "1.2.3"},
		},
		{
			name:   "platform as token",
			header: `version="1.0.0", platform=ios`,
			want:   ClientInfo{Version: "1.0.0", Platform: "ios"},
		},
		{
			name:   "whitespace",
			header: `  platform="android", version="1.1.0"  `,
			want:   ClientInfo{Version: "1.1.0", Platform: "android"},
		},
		{
			name:   "params ignored",
			header: `version="2.0.0";build=88`,
			want:   ClientInfo{Version: "2.0.0"},
		},
		{
			name:    "empty header",
			header:  "",
			wantErr: true,
		},
		{
			name:    "missing version",
			header:  `platform="web"`,
			wantErr: true,
		},
		{
			name:    "version not a string",
			header:  `version=14`,
			wantErr: true,
		},
		{
			name:    "version is inner list",
			header:  `version=("1.0.0")`,
			wantErr: true,
		},
		{
			name:    "malformed",
			header:  `version="unterminated`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseClientHeader(tt.header)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseClientHeader() expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseClientHeader() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseClientHeader() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
