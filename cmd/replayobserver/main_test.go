package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/replay-observer/internal/infrastructure/config"
	"github.com/nerrad567/replay-observer/internal/journal"
	"github.com/nerrad567/replay-observer/internal/observer"
	"github.com/nerrad567/replay-observer/internal/replay"
)

// useConfig points the commands at a config file for the duration of a test.
func useConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	setConfigPath(t, path)
	return path
}

func setConfigPath(t *testing.T, path string) {
	t.Helper()
	orig := configPath
	configPath = path
	t.Cleanup(func() { configPath = orig })
}

type memPublisher struct {
	payloads   []string
	closed     int
	publishErr error
}

func (p *memPublisher) Publish(_ string, payload []byte, _ byte, _ bool) error {
	if p.publishErr != nil {
		return p.publishErr
	}
	p.payloads = append(p.payloads, string(payload))
	return nil
}

func (p *memPublisher) Close() error {
	p.closed++
	return nil
}

const testReplay = `{"type":"match_start","time_ms":0}
{"type":"elimination","time_ms":1200,"player":"storm"}
{"type":"elimination","time_ms":5300,"player":"blue"}
`

func TestGetConfigPath(t *testing.T) {
	setConfigPath(t, "")

	t.Setenv(configEnvVar, "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want default %q", got, defaultConfigPath)
	}

	t.Setenv(configEnvVar, "/etc/replayobserver/config.yaml")
	if got := getConfigPath(); got != "/etc/replayobserver/config.yaml" {
		t.Errorf("getConfigPath() = %q, want env value", got)
	}

	configPath = "/from/flag.yaml"
	if got := getConfigPath(); got != "/from/flag.yaml" {
		t.Errorf("getConfigPath() = %q, want flag value", got)
	}
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"publish", "watch", "sessions", "migrate", "health", "version"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Error("--config flag not registered")
	}
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := newVersionCmd()
	cmd.SetOut(&out)
	cmd.Run(cmd, nil)

	if !strings.Contains(out.String(), "replayobserver version "+version) {
		t.Errorf("version output = %q", out.String())
	}
}

func TestRunPublish_InvalidConfig(t *testing.T) {
	setConfigPath(t, "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := runPublish(ctx, publishOptions{source: "replay.ndjson"}, strings.NewReader(""), &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "loading config") {
		t.Fatalf("runPublish() error = %v, want config error", err)
	}
}

func TestRunPublish_MissingReplay(t *testing.T) {
	useConfig(t, `
mqtt:
  broker:
    host: "127.0.0.1"
    port: 1883
    tls: false
  topic: "match-1"
`)

	err := runPublish(context.Background(), publishOptions{source: "/nonexistent/replay.ndjson"}, strings.NewReader(""), &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "opening replay") {
		t.Fatalf("runPublish() error = %v, want replay open error", err)
	}
}

func TestPublishReplay(t *testing.T) {
	pub := &memPublisher{}
	bridge := observer.NewBridge[replay.Event](pub, config.MQTTConfig{Topic: "match-1"})

	if err := publishReplay(context.Background(), bridge, strings.NewReader(testReplay), "elimination"); err != nil {
		t.Fatalf("publishReplay() error = %v", err)
	}

	if len(pub.payloads) != 4 {
		t.Fatalf("published %d messages, want 4: %q", len(pub.payloads), pub.payloads)
	}
	if pub.payloads[0] != `{"started": 1}` || pub.payloads[3] != `{"finished": 1}` {
		t.Errorf("control messages = %q / %q", pub.payloads[0], pub.payloads[3])
	}
	if pub.closed != 1 {
		t.Errorf("publisher closed %d times, want 1", pub.closed)
	}
	if bridge.Termination() != observer.TerminationCompleted {
		t.Errorf("Termination() = %q, want completed", bridge.Termination())
	}
}

func TestPublishReplay_PublishFailureTearsDown(t *testing.T) {
	boom := errors.New("broker rejected")
	pub := &memPublisher{publishErr: boom}
	bridge := observer.NewBridge[replay.Event](pub, config.MQTTConfig{Topic: "match-1"})

	err := publishReplay(context.Background(), bridge, strings.NewReader(testReplay), "")
	if !errors.Is(err, boom) {
		t.Fatalf("publishReplay() error = %v, want %v", err, boom)
	}
	if pub.closed != 1 {
		t.Errorf("publisher closed %d times, want 1", pub.closed)
	}
	if bridge.State() != observer.Terminal {
		t.Errorf("State() = %v, want terminal", bridge.State())
	}
	if bridge.Termination() != observer.TerminationUnsubscribed {
		t.Errorf("Termination() = %q, want unsubscribed", bridge.Termination())
	}
}

func TestOpenSource_Stdin(t *testing.T) {
	stdin := strings.NewReader("x")
	r, closeFn, err := openSource(stdinSource, stdin)
	if err != nil {
		t.Fatalf("openSource() error = %v", err)
	}
	defer closeFn()
	if r != stdin {
		t.Error("openSource(\"-\") did not return stdin")
	}
}

func TestRunSessions(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	useConfig(t, `
mqtt:
  topic: "match-1"
journal:
  enabled: true
  path: "`+dbPath+`"
`)

	var out bytes.Buffer
	if err := runSessions(context.Background(), 10, false, &out); err != nil {
		t.Fatalf("runSessions() error = %v", err)
	}
	if !strings.Contains(out.String(), "No sessions recorded.") {
		t.Errorf("output = %q", out.String())
	}

	out.Reset()
	if err := runSessions(context.Background(), 10, true, &out); err != nil {
		t.Fatalf("runSessions(json) error = %v", err)
	}
	if strings.TrimSpace(out.String()) != "[]" {
		t.Errorf("json output = %q, want []", out.String())
	}
}

func TestPrintSessions(t *testing.T) {
	ended := time.Date(2026, 10, 19, 12, 5, 0, 0, time.UTC)
	sessions := []journal.Session{
		{
			ID:          "ses-0001",
			Topic:       "Fortnite/match-1",
			StartedAt:   time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
			EndedAt:     &ended,
			Termination: "completed",
			Stats:       observer.Stats{Published: 42, Dropped: 1},
		},
		{
			ID:        "ses-0002",
			Topic:     "Fortnite/match-2",
			StartedAt: time.Date(2026, 10, 19, 13, 0, 0, 0, time.UTC),
		},
	}

	var out bytes.Buffer
	if err := printSessions(&out, sessions); err != nil {
		t.Fatalf("printSessions() error = %v", err)
	}

	got := out.String()
	for _, want := range []string{"ses-0001", "Fortnite/match-1", "completed", "42", "ses-0002", "running"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestPrintMessage(t *testing.T) {
	var out bytes.Buffer
	handler := printMessage(&out)

	if err := handler("Fortnite/match-1", []byte(`{"started": 1}`)); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if got := out.String(); got != "Fortnite/match-1 {\"started\": 1}\n" {
		t.Errorf("output = %q", got)
	}
}

func TestRunMigrate(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	useConfig(t, `
mqtt:
  topic: "match-1"
journal:
  path: "`+dbPath+`"
`)
	ctx := context.Background()
	const version = "20261019_120000"

	tests := []struct {
		name string
		opts migrateOptions
		want string
	}{
		{"status before any migration", migrateOptions{status: true}, "pending  " + version},
		{"apply", migrateOptions{}, "applied  " + version},
		{"status after apply", migrateOptions{status: true}, "applied  " + version},
		{"roll back", migrateOptions{down: true}, "pending  " + version},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := runMigrate(ctx, tt.opts, &out); err != nil {
				t.Fatalf("runMigrate() error = %v", err)
			}
			if !strings.Contains(out.String(), "Journal: "+dbPath) {
				t.Errorf("output missing journal path:\n%s", out.String())
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, out.String())
			}
		})
	}
}

func TestRunChecks(t *testing.T) {
	down := errors.New("connection refused")
	checks := []healthCheck{
		{name: "mqtt", check: func(context.Context) (string, error) { return "", down }},
		{name: "journal", check: func(context.Context) (string, error) { return "/tmp/j.db", nil }},
	}

	var out bytes.Buffer
	err := runChecks(context.Background(), &out, checks)
	if !errors.Is(err, down) {
		t.Fatalf("runChecks() error = %v, want %v", err, down)
	}
	if !strings.Contains(err.Error(), "mqtt: ") {
		t.Errorf("error %q does not name the component", err)
	}

	got := out.String()
	for _, want := range []string{"COMPONENT", "mqtt", "FAIL", "connection refused", "journal", "ok", "/tmp/j.db"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRunChecks_AllHealthy(t *testing.T) {
	checks := []healthCheck{
		{name: "journal", check: func(context.Context) (string, error) { return "ok-detail", nil }},
	}

	var out bytes.Buffer
	if err := runChecks(context.Background(), &out, checks); err != nil {
		t.Errorf("runChecks() error = %v", err)
	}
}

func TestRunHealth_BrokerDown(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	useConfig(t, `
mqtt:
  broker:
    host: "127.0.0.1"
    port: 1
    tls: false
  topic: "match-1"
  timeouts:
    connect: 2
journal:
  enabled: true
  path: "`+dbPath+`"
`)

	var out bytes.Buffer
	err := runHealth(context.Background(), &out)
	if err == nil || !strings.Contains(err.Error(), "mqtt: ") {
		t.Fatalf("runHealth() error = %v, want mqtt failure", err)
	}
	if strings.Contains(err.Error(), "journal: ") {
		t.Errorf("runHealth() error = %v, journal should be healthy", err)
	}
	if !strings.Contains(out.String(), dbPath+" (1 pending migrations)") {
		t.Errorf("journal row missing:\n%s", out.String())
	}
}
