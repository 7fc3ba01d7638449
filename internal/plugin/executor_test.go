package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// writePlugin creates dir/name with a manifest and an executable shell script.
func writePlugin(t *testing.T, dir, name string, events []Event, script string) *Plugin {
	t.Helper()

	pluginPath := filepath.Join(dir, name)
	if err := os.MkdirAll(pluginPath, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}

	manifest := Manifest{
		Name:       name,
		Version:    "1.0.0",
		Executable: "run.sh",
		Events:     events,
	}
	data, err := json.Marshal(manifest)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(pluginPath, ManifestFile), data, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	exe := filepath.Join(pluginPath, "run.sh")
	if err := os.WriteFile(exe, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return &Plugin{Manifest: manifest, Path: pluginPath, Executable: exe}
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}
}

func TestExecutor_Execute(t *testing.T) {
	skipOnWindows(t)

	p := writePlugin(t, t.TempDir(), "ok", []Event{EventSelection}, `#!/bin/sh
cat <<'EOF'
{"success":true,"data":{"message":"spoken"}}
EOF
`)

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), p, &Request{Event: EventSelection})
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if !resp.Success {
		t.Error("expected success=true")
	}

	var data map[string]string
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("failed to unmarshal response data: %v", err)
	}
	if data["message"] != "spoken" {
		t.Errorf("message = %q, want spoken", data["message"])
	}
}

func TestExecutor_Execute_ReadsStdin(t *testing.T) {
	skipOnWindows(t)

	p := writePlugin(t, t.TempDir(), "echo", []Event{EventSelection}, `#!/bin/sh
INPUT=$(cat)
echo "{\"success\":true,\"data\":$INPUT}"
`)

	req := &Request{
		Event: EventSelection,
		Selection: &Selection{
			TargetID: "cat",
			Name:     "Cat",
			Correct:  true,
			Level:    2,
		},
		Config: json.RawMessage(`{"voice":"Samantha"}`),
	}

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), p, req)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	var got Request
	if err := json.Unmarshal(resp.Data, &got); err != nil {
		t.Fatalf("failed to unmarshal echoed request: %v", err)
	}
	if got.Event != EventSelection {
		t.Errorf("event = %q, want selection", got.Event)
	}
	if got.Selection == nil || got.Selection.TargetID != "cat" || !got.Selection.Correct || got.Selection.Level != 2 {
		t.Errorf("selection = %+v", got.Selection)
	}
	if got.GameOver != nil {
		t.Errorf("game_over should be omitted, got %+v", got.GameOver)
	}
	if !strings.Contains(string(got.Config), "Samantha") {
		t.Errorf("config = %s", got.Config)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	skipOnWindows(t)

	p := writePlugin(t, t.TempDir(), "slow", nil, `#!/bin/sh
sleep 5
echo '{"success":true}'
`)

	start := time.Now()
	_, err := NewExecutor(100*time.Millisecond).Execute(context.Background(), p, &Request{Event: EventGameOver})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout took %v", elapsed)
	}
}

func TestExecutor_Execute_Failures(t *testing.T) {
	skipOnWindows(t)

	tests := []struct {
		name    string
		script  string
		wantErr bool
		wantMsg string
	}{
		{
			name:    "error response",
			script:  "#!/bin/sh\necho '{\"success\":false,\"error\":\"no speech engine\"}'\n",
			wantMsg: "no speech engine",
		},
		{
			name:    "invalid json",
			script:  "#!/bin/sh\necho 'not json'\n",
			wantErr: true,
		},
		{
			name:    "non-zero exit",
			script:  "#!/bin/sh\necho 'boom' >&2\nexit 3\n",
			wantErr: true,
			wantMsg: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writePlugin(t, t.TempDir(), "p", nil, tt.script)
			resp, err := NewExecutor(5*time.Second).Execute(context.Background(), p, &Request{Event: EventSelection})

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
					t.Errorf("error %q does not mention %q", err, tt.wantMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.Success {
				t.Error("expected success=false")
			}
			if resp.Error != tt.wantMsg {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantMsg)
			}
		})
	}
}

func TestNewExecutor(t *testing.T) {
	if got := NewExecutor(0).Timeout(); got != 5*time.Second {
		t.Errorf("default timeout = %v, want 5s", got)
	}
	if got := NewExecutor(time.Second).Timeout(); got != time.Second {
		t.Errorf("timeout = %v, want 1s", got)
	}
}
