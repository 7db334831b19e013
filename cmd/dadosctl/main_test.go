package main

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/JonMunkholm/dados/internal/core"
)

func TestParseFilters(t *testing.T) {
	tests := []struct {
		name    string
		flags   []string
		want    core.FilterSpec
		wantErr bool
	}{
		{name: "none", flags: nil, want: nil},
		{name: "single", flags: []string{"column1=a"}, want: core.FilterSpec{"column1": "a"}},
		{name: "value with equals", flags: []string{"column2=x=y", "value=2.5"}, want: core.FilterSpec{"column2": "x=y", "value": "2.5"}},
		{name: "missing equals", flags: []string{"column1"}, wantErr: true},
		{name: "empty column", flags: []string{"=a"}, wantErr: true},
		{name: "unknown column", flags: []string{"colour=red"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFilters(tt.flags)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseFilters() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("parseFilters() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("spec[%q] = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestReadSecret(t *testing.T) {
	var prompt bytes.Buffer

	got, err := readSecret("from-env", strings.NewReader("ignored\n"), &prompt)
	if err != nil || got != "from-env" {
		t.Errorf("readSecret(env) = %q, %v", got, err)
	}
	if prompt.Len() != 0 {
		t.Errorf("prompted although env was set: %q", prompt.String())
	}

	got, err = readSecret("", strings.NewReader("s3cret\r\nrest"), &prompt)
	if err != nil || got != "s3cret" {
		t.Errorf("readSecret(piped) = %q, %v", got, err)
	}
	if !strings.Contains(prompt.String(), "Secret:") {
		t.Errorf("prompt = %q", prompt.String())
	}

	got, err = readSecret("", strings.NewReader("no-newline"), &prompt)
	if err != nil || got != "no-newline" {
		t.Errorf("readSecret(eof) = %q, %v", got, err)
	}

	if _, err := readSecret("", strings.NewReader(""), &prompt); err == nil {
		t.Error("expected error for empty secret")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&core.AuthorizationError{Err: core.ErrInvalidCredentials}, 3},
		{fmt.Errorf("load: %w", &core.ParseError{Err: core.ErrColumnCount}), 4},
		{&core.ConnectionError{Err: errors.New("refused")}, 5},
		{&core.DeliveryError{Err: errors.New("refused")}, 6},
		{errors.New("other"), 1},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestReadsStdin(t *testing.T) {
	if !readsStdin(ingestCmd, []string{"-"}) {
		t.Error("ingest - should read stdin")
	}
	if readsStdin(ingestCmd, []string{"data.csv"}) {
		t.Error("ingest file should not read stdin")
	}
	if readsStdin(exportCmd, nil) {
		t.Error("export should not read stdin")
	}
}
