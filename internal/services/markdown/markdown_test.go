package markdown

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "crlf normalized",
			in:   "# Title\r\ntext\r\n",
			want: "# Title\ntext\n",
		},
		{
			name: "blank runs collapsed",
			in:   "# Title\n\n\n\n\ntext\n",
			want: "# Title\n\ntext\n",
		},
		{
			name: "heading gets breathing room",
			in:   "text\n## Section\nmore\n",
			want: "text\n\n## Section\nmore\n",
		},
		{
			name: "unterminated fence closed",
			in:   "# T\n```go\ncode\n",
			want: "# T\n```go\ncode\n```\n",
		},
		{
			name: "trailing whitespace stripped",
			in:   "# Title   \ntext\t\n",
			want: "# Title\ntext\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.in); got != tt.want {
				t.Errorf("Format(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatEndpoint(t *testing.T) {
	ts := httptest.NewServer(New().Handler())
	defer ts.Close()

	data, _ := json.Marshal(map[string]string{"content": "# Title\r\n\r\n\r\n\r\ntext"})
	resp, err := http.Post(ts.URL+"/format", "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Formatted string `json:"formatted"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(body.Formatted, "\r") {
		t.Error("formatted output still has carriage returns")
	}
	if strings.Contains(body.Formatted, "\n\n\n") {
		t.Error("formatted output still has blank-line runs")
	}
}

func TestIsHeading(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"# Title", true},
		{"## Sub", true},
		{"  ### Indented", true},
		{"#NoSpace", false},
		{"text", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isHeading(tt.line); got != tt.want {
			t.Errorf("isHeading(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}
