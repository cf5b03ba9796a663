package doctor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CVO-TreeAi/terminote/internal/core/config"
	"github.com/CVO-TreeAi/terminote/internal/core/platform"
	"github.com/CVO-TreeAi/terminote/internal/core/session"
	"github.com/CVO-TreeAi/terminote/internal/core/store"
)

func testDoctor(t *testing.T, apiKey string, apiTest func(ctx context.Context) error) (*Doctor, *config.Config) {
	t.Helper()
	t.Setenv("EDITOR", "vi")

	cfg := config.Default(t.TempDir())
	cfg.APIKey = apiKey
	if err := cfg.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}

	st, err := store.New(cfg.SessionsDir())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}

	d := New(cfg, session.NewManager(st), platform.NewAdvisor(platform.Linux), apiTest)
	d.probe = func(ctx context.Context, url string) bool { return true }
	return d, cfg
}

func resultByName(t *testing.T, report Report, name string) CheckResult {
	t.Helper()
	for _, r := range report.Results {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("no check named %q in report", name)
	return CheckResult{}
}

func TestRunAllChecksPass(t *testing.T) {
	d, _ := testDoctor(t, "sk-or-v1-0123456789abcdef", func(ctx context.Context) error { return nil })

	report := d.Run(context.Background())

	if report.Total != 7 {
		t.Fatalf("Total = %d, want 7", report.Total)
	}
	if !report.Healthy() {
		for _, r := range report.Results {
			if !r.Passed {
				t.Errorf("check %q failed: %s", r.Name, r.Detail)
			}
		}
		t.Fatalf("Passed = %d/%d, want healthy", report.Passed, report.Total)
	}
}

func TestRunWithoutAPIKey(t *testing.T) {
	d, _ := testDoctor(t, "", nil)

	report := d.Run(context.Background())

	cfgCheck := resultByName(t, report, "Configuration")
	if cfgCheck.Passed {
		t.Error("configuration check passed without an API key")
	}
	if !strings.Contains(cfgCheck.Hint, "neo setup") {
		t.Errorf("configuration hint = %q, want setup guidance", cfgCheck.Hint)
	}

	apiCheck := resultByName(t, report, "API Connection")
	if apiCheck.Passed {
		t.Error("API check passed without a tester")
	}
	if !strings.Contains(apiCheck.Detail, "no API key") {
		t.Errorf("API check detail = %q", apiCheck.Detail)
	}
	if report.Healthy() {
		t.Error("report healthy despite failed checks")
	}
}

func TestRunReadOnlySessionsDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}

	d, cfg := testDoctor(t, "sk-or-v1-0123456789abcdef", func(ctx context.Context) error { return nil })

	if err := os.Chmod(cfg.SessionsDir(), 0o555); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { os.Chmod(cfg.SessionsDir(), 0o755) })

	report := d.Run(context.Background())

	storage := resultByName(t, report, "Session Storage")
	if storage.Passed {
		t.Error("storage check passed against a read-only directory")
	}
	if !strings.Contains(storage.Hint, "permission") && !strings.Contains(storage.Hint, "chmod") {
		t.Errorf("storage hint = %q, want permission remediation", storage.Hint)
	}

	perms := resultByName(t, report, "File Permissions")
	if perms.Passed {
		t.Error("permissions check passed against a read-only directory")
	}

	// Failures must not stop later checks from running.
	if len(report.Results) != 7 {
		t.Fatalf("got %d results, want 7", len(report.Results))
	}
	if api := resultByName(t, report, "API Connection"); !api.Passed {
		t.Errorf("API check did not run independently: %s", api.Detail)
	}
}

func TestRunMalformedAPIKey(t *testing.T) {
	d, _ := testDoctor(t, "not-an-openrouter-key", func(ctx context.Context) error { return nil })

	report := d.Run(context.Background())

	cfgCheck := resultByName(t, report, "Configuration")
	if cfgCheck.Passed {
		t.Error("configuration check accepted a key without the sk- prefix")
	}
	if !strings.Contains(cfgCheck.Detail, "sk-") {
		t.Errorf("detail = %q, want prefix explanation", cfgCheck.Detail)
	}
}

func TestNetworkCheckPartialConnectivity(t *testing.T) {
	d, _ := testDoctor(t, "sk-or-v1-0123456789abcdef", func(ctx context.Context) error { return nil })

	// Only the non-API host answers.
	d.probe = func(ctx context.Context, url string) bool {
		return strings.Contains(url, "google")
	}

	report := d.Run(context.Background())
	network := resultByName(t, report, "Network Access")
	if network.Passed {
		t.Error("network check passed with the API host unreachable")
	}
	if !strings.Contains(network.Detail, "1/3") {
		t.Errorf("detail = %q, want reached count", network.Detail)
	}
	if !strings.Contains(network.Detail, "OpenRouter API unreachable") {
		t.Errorf("detail = %q, want API host called out", network.Detail)
	}
}

func TestNetworkCheckOffline(t *testing.T) {
	d, _ := testDoctor(t, "sk-or-v1-0123456789abcdef", func(ctx context.Context) error { return nil })
	d.probe = func(ctx context.Context, url string) bool { return false }

	report := d.Run(context.Background())
	network := resultByName(t, report, "Network Access")
	if network.Passed {
		t.Error("network check passed while offline")
	}
	if network.Hint == "" {
		t.Error("offline failure carries no hint")
	}
}

func TestAPICheckReportsFailure(t *testing.T) {
	wantErr := errors.New("401 unauthorized")
	d, _ := testDoctor(t, "sk-or-v1-0123456789abcdef", func(ctx context.Context) error { return wantErr })

	report := d.Run(context.Background())
	api := resultByName(t, report, "API Connection")
	if api.Passed {
		t.Error("API check passed despite tester error")
	}
	if !strings.Contains(api.Detail, "401") {
		t.Errorf("detail = %q, want underlying error", api.Detail)
	}
}

func TestPanickingCheckIsIsolated(t *testing.T) {
	d, _ := testDoctor(t, "sk-or-v1-0123456789abcdef", func(ctx context.Context) error {
		panic("boom")
	})

	report := d.Run(context.Background())

	api := resultByName(t, report, "API Connection")
	if api.Passed {
		t.Error("panicking check reported as passed")
	}
	if !strings.Contains(api.Detail, "panicked") {
		t.Errorf("detail = %q, want panic notice", api.Detail)
	}

	// Every other check still ran.
	if len(report.Results) != 7 {
		t.Fatalf("got %d results, want 7", len(report.Results))
	}
	if plat := resultByName(t, report, "Platform Features"); !plat.Passed {
		t.Errorf("check after the panic did not run: %s", plat.Detail)
	}
}

func TestStorageCheckLeavesNoScratchSessions(t *testing.T) {
	d, cfg := testDoctor(t, "sk-or-v1-0123456789abcdef", func(ctx context.Context) error { return nil })

	report := d.Run(context.Background())
	if storage := resultByName(t, report, "Session Storage"); !storage.Passed {
		t.Fatalf("storage check failed: %s", storage.Detail)
	}

	entries, err := os.ReadDir(cfg.SessionsDir())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "doctor_") {
			t.Errorf("scratch file left behind: %s", filepath.Join(cfg.SessionsDir(), e.Name()))
		}
	}
}

func TestPlatformCheckProbesTermuxStorage(t *testing.T) {
	d, _ := testDoctor(t, "sk-or-v1-0123456789abcdef", func(ctx context.Context) error { return nil })
	d.advisor = platform.NewAdvisor(platform.Termux)

	report := d.Run(context.Background())

	plat := resultByName(t, report, "Platform Features")
	if !plat.Passed {
		t.Fatalf("platform check failed: %s", plat.Detail)
	}
	if !strings.Contains(plat.Detail, "storage accessible") {
		t.Errorf("detail = %q, want storage probe result", plat.Detail)
	}
	if !strings.Contains(plat.Detail, "Termux") {
		t.Errorf("detail = %q, want platform name", plat.Detail)
	}
}

func TestReportThresholds(t *testing.T) {
	tests := []struct {
		passed, total   int
		healthy, mostly bool
	}{
		{7, 7, true, true},
		{6, 7, false, true},
		{5, 7, false, true},
		{4, 7, false, false},
		{0, 7, false, false},
		{0, 0, false, false},
	}
	for _, tt := range tests {
		r := Report{Passed: tt.passed, Total: tt.total}
		if got := r.Healthy(); got != tt.healthy {
			t.Errorf("Healthy() with %d/%d = %v, want %v", tt.passed, tt.total, got, tt.healthy)
		}
		if got := r.MostlyFunctional(); got != tt.mostly {
			t.Errorf("MostlyFunctional() with %d/%d = %v, want %v", tt.passed, tt.total, got, tt.mostly)
		}
	}
}
