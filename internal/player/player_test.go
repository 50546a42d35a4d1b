package player

import "testing"

func TestParseMetadata(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    Song
		wantErr bool
	}{
		{
			name:   "full",
			output: "周杰伦\t晴天\tfile:///music/qingtian.flac\t269000000\n",
			want:   Song{Artist: "周杰伦", Title: "晴天", URL: "file:///music/qingtian.flac", Duration: 269},
		},
		{
			name:   "stream without artist",
			output: "\tSome Video Title (Official MV)\thttps://example.com/v\t\n",
			want:   Song{Title: "Some Video Title (Official MV)", URL: "https://example.com/v"},
		},
		{
			name:   "missing trailing fields",
			output: "Artist\tTitle",
			want:   Song{Artist: "Artist", Title: "Title"},
		},
		{
			name:    "no title",
			output:  "Artist\t\t\t\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMetadata(tt.output)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseMetadata() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseMetadata() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSongIdentifier(t *testing.T) {
	if got := (Song{Artist: "A", Title: "B"}).Identifier(); got != "A - B" {
		t.Errorf("Identifier() = %q", got)
	}
	if got := (Song{Title: "B"}).Identifier(); got != "B" {
		t.Errorf("Identifier() = %q", got)
	}
}

func TestParsePosition(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12.345678\n", 12346, false},
		{"0", 0, false},
		{"-1", 0, true},
		{"abc", 0, true},
		{"NaN", 0, true},
	}
	for _, tt := range tests {
		got, err := parsePosition(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parsePosition(%q) = %d, %v", tt.in, got, err)
		}
	}
}
