package main

import (
	"strings"
	"testing"
)

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"serve"},
		{"migrate"},
		{"admin", "create"},
		{"admin", "list"},
		{"admin", "passwd"},
	} {
		cmd, rest, err := rootCmd.Find(path)
		if err != nil {
			t.Errorf("Find(%v): %v", path, err)
			continue
		}
		if len(rest) != 0 || cmd.Name() != path[len(path)-1] {
			t.Errorf("Find(%v) = %q with leftover %v", path, cmd.Name(), rest)
		}
	}
}

func TestReadPassword(t *testing.T) {
	tests := []struct {
		name    string
		flag    string
		stdin   string
		want    string
		wantErr string
	}{
		{name: "flag wins", flag: "correct-horse", stdin: "ignored-line\n", want: "correct-horse"},
		{name: "stdin line", stdin: "battery-staple\nsecond\n", want: "battery-staple"},
		{name: "stdin without newline", stdin: "battery-staple", want: "battery-staple"},
		{name: "crlf stripped", stdin: "battery-staple\r\n", want: "battery-staple"},
		{name: "too short", stdin: "short\n", wantErr: "at least 8"},
		{name: "empty", stdin: "", wantErr: "at least 8"},
		{name: "padded", flag: " padded-password", wantErr: "whitespace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adminPassword = tt.flag
			t.Cleanup(func() { adminPassword = "" })

			got, err := readPassword(strings.NewReader(tt.stdin))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("readPassword() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("readPassword(): %v", err)
			}
			if got != tt.want {
				t.Errorf("readPassword() = %q, want %q", got, tt.want)
			}
		})
	}
}
