package command

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yndnr/walletlink-go/internal/cli/output"
	"github.com/yndnr/walletlink-go/internal/infra/buildinfo"
	"github.com/yndnr/walletlink-go/internal/infra/confloader"
)

func TestApp_Commands(t *testing.T) {
	app := App()
	want := []string{"connect", "login", "logout", "status", "request", "watch", "shell", "config", "version"}

	for _, name := range want {
		if app.Command(name) == nil {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestSetup_InvalidConfig(t *testing.T) {
	h := newHarness(t)

	err := h.run(context.Background(), "--store", "floppy", "status")
	if err == nil || !strings.Contains(err.Error(), "storage.backend") {
		t.Errorf("error = %v, want storage.backend validation failure", err)
	}
}

func TestSetup_MissingExplicitConfig(t *testing.T) {
	h := newHarness(t)

	err := h.run(context.Background(), "--config", filepath.Join(t.TempDir(), "absent.yaml"), "status")
	if err == nil {
		t.Error("explicit missing config file should fail")
	}
}

func TestVersion(t *testing.T) {
	h := newHarness(t)

	if err := h.run(context.Background(), "version"); err != nil {
		t.Fatalf("version error = %v", err)
	}
	var info buildinfo.Info
	if err := json.Unmarshal([]byte(h.stdout.String()), &info); err != nil {
		t.Fatalf("decode %q: %v", h.stdout.String(), err)
	}
	if info.Version != buildinfo.Version || info.GoVersion == "" {
		t.Errorf("info = %+v", info)
	}
}

func TestConfigShow(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "storage:\n  redis_password: hunter2\n  seal_key: \"" + strings.Repeat("ab", 32) + "\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := h.run(context.Background(), "--config", path, "--provider-url", "ws://signer:8546", "config", "show"); err != nil {
		t.Fatalf("config show error = %v", err)
	}

	var values map[string]string
	if err := json.Unmarshal([]byte(h.stdout.String()), &values); err != nil {
		t.Fatalf("decode %q: %v", h.stdout.String(), err)
	}
	if values["provider.url"] != "ws://signer:8546" {
		t.Errorf("provider.url = %q, want flag value", values["provider.url"])
	}
	if values["backend.url"] != h.backend.URL {
		t.Errorf("backend.url = %q", values["backend.url"])
	}
	for _, key := range []string{"storage.redis_password", "storage.seal_key"} {
		if values[key] != redacted {
			t.Errorf("%s = %q, want redacted", key, values[key])
		}
	}
	if strings.Contains(h.stdout.String(), "hunter2") {
		t.Error("config show leaked a secret")
	}
}

func TestConfigShow_Sources(t *testing.T) {
	h := newHarness(t)
	t.Setenv("WALLETLINK_PROVIDER_URL", "ws://env-signer:8546")

	if err := h.run(context.Background(), "config", "show", "--sources"); err != nil {
		t.Fatalf("config show --sources error = %v", err)
	}

	var entries []configEntry
	if err := json.Unmarshal([]byte(h.stdout.String()), &entries); err != nil {
		t.Fatalf("decode %q: %v", h.stdout.String(), err)
	}
	sources := make(map[string]confloader.Source)
	for _, e := range entries {
		sources[e.Key] = e.Source
	}
	want := map[string]confloader.Source{
		"provider.url":    confloader.SourceEnv,
		"backend.url":     confloader.SourceOverride,
		"storage.backend": confloader.SourceDefault,
	}
	for key, src := range want {
		if sources[key] != src {
			t.Errorf("source of %s = %q, want %q", key, sources[key], src)
		}
	}
}

func TestConfigEntries_Table(t *testing.T) {
	var buf strings.Builder
	entries := configEntries{{Key: "log.level", Value: "debug", Source: confloader.SourceFile}}
	if err := (&output.TableFormatter{}).Format(&buf, entries); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"KEY", "SOURCE", "log.level", "debug", "file"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("table missing %q: %q", want, buf.String())
		}
	}
}

func TestConfigPath(t *testing.T) {
	h := newHarness(t)

	if err := h.run(context.Background(), "config", "path"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(h.stdout.String(), "no configuration file") {
		t.Errorf("output = %q", h.stdout.String())
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("output: json\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := h.run(context.Background(), "--config", path, "config", "path"); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(h.stdout.String()) != path {
		t.Errorf("output = %q, want %q", h.stdout.String(), path)
	}
}

func TestFlagOverrides_Verbose(t *testing.T) {
	h := newHarness(t)

	if err := h.run(context.Background(), "-V", "config", "show"); err != nil {
		t.Fatal(err)
	}
	var values map[string]string
	if err := json.Unmarshal([]byte(h.stdout.String()), &values); err != nil {
		t.Fatal(err)
	}
	if values["log.level"] != "debug" {
		t.Errorf("log.level = %q, want debug", values["log.level"])
	}
}
