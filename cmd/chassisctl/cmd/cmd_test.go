package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/hipsterbrown/chassis-comm/commdev"
	"github.com/hipsterbrown/chassis-comm/transports"
)

// setup writes a config with one console port backed by a mock transport.
func setup(t *testing.T) (string, *transports.MockTransport) {
	t.Helper()
	logrus.SetOutput(io.Discard)

	path := filepath.Join(t.TempDir(), "chassis.yaml")
	body := "chassis:\n  ports:\n    - id: 1\n      device: console1\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	mock := &transports.MockTransport{}
	openTransport = func(port int, cfg commdev.PortConfig) (commdev.Transport, error) {
		return mock, nil
	}
	t.Cleanup(func() {
		openTransport = nil
		dispatcher = nil
		resetFlags(rootCmd)
	})
	return path, mock
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	resetFlags(rootCmd)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSendConsole(t *testing.T) {
	path, mock := setup(t)

	out, err := run(t, "", "-c", path, "send", "--type", "serialconsole", "--id", "1",
		"--fc", "0x01", "--payload", "6869")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.Contains(out, "serialconsole 1: success") {
		t.Errorf("output = %q", out)
	}
	if string(mock.WriteData) != "hi" {
		t.Errorf("wrote %q, want %q", mock.WriteData, "hi")
	}
	if !mock.Closed {
		t.Error("port should be closed after a one-shot command")
	}
	if dispatcher != nil {
		t.Error("dispatcher should be released")
	}
}

func TestSendErrors(t *testing.T) {
	path, _ := setup(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
		wantOut string
	}{
		{
			name:    "unknown type",
			args:    []string{"send", "--type", "toaster"},
			wantErr: "unknown device type",
		},
		{
			name:    "bad payload",
			args:    []string{"send", "--type", "fan", "--payload", "zz"},
			wantErr: "--payload",
		},
		{
			name:    "bad priority",
			args:    []string{"send", "--type", "fan", "--priority", "urgent"},
			wantErr: "unknown priority",
		},
		{
			name:    "unconfigured port",
			args:    []string{"send", "--type", "fan", "--id", "1", "--fc", "1"},
			wantOut: "fan 1: communication device failed to initialize",
		},
		{
			name:    "id out of range",
			args:    []string{"send", "--type", "serialconsole", "--id", "5", "--fc", "1"},
			wantOut: "serialconsole 5: invalid command",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, "", append([]string{"-c", path}, tt.args...)...)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(out, tt.wantOut) {
				t.Errorf("output = %q, want containing %q", out, tt.wantOut)
			}
		})
	}
}

func TestPorts(t *testing.T) {
	path, _ := setup(t)

	out, err := run(t, "", "-c", path, "ports")
	if err != nil {
		t.Fatalf("ports: %v", err)
	}
	for _, want := range []string{"PORT", "console1", "population: 24"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestMissingConfig(t *testing.T) {
	setup(t)
	_, err := run(t, "", "-c", filepath.Join(t.TempDir(), "none.yaml"), "ports")
	if err == nil || !strings.Contains(err.Error(), "config load failed") {
		t.Fatalf("error = %v", err)
	}
}

func TestShellKeepsSafeMode(t *testing.T) {
	path, mock := setup(t)

	script := strings.Join([]string{
		"safemode status",
		"safemode on",
		"safemode status",
		"send --type serialconsole --id 1 --fc 0x01 --payload 6f6b",
		"quit",
	}, "\n")
	out, err := run(t, script, "-c", path, "shell")
	if err != nil {
		t.Fatalf("shell: %v", err)
	}

	if strings.Count(out, "safe mode: on") != 2 || !strings.Contains(out, "safe mode: off") {
		t.Errorf("safe mode not kept between lines:\n%s", out)
	}
	// Console ports are not gated by safe mode.
	if string(mock.WriteData) != "ok" {
		t.Errorf("wrote %q", mock.WriteData)
	}
	if !mock.Closed || dispatcher != nil {
		t.Error("shell should release the dispatcher on exit")
	}
}
