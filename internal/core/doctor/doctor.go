// Package doctor runs the diagnostic checklist behind `neo doctor`.
// Checks are fixed, ordered, and isolated: one failing or panicking
// check never stops the rest. The only state the doctor touches is a
// scratch session it creates and deletes itself.
package doctor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/CVO-TreeAi/terminote/internal/core/config"
	"github.com/CVO-TreeAi/terminote/internal/core/editor"
	"github.com/CVO-TreeAi/terminote/internal/core/logging"
	"github.com/CVO-TreeAi/terminote/internal/core/platform"
	"github.com/CVO-TreeAi/terminote/internal/core/session"
)

// probeHosts are checked in order; the second is the one that matters
// for AI calls.
var probeHosts = []string{
	"https://openrouter.ai",
	"https://api.openrouter.ai",
	"https://www.google.com",
}

// CheckResult is one row of the doctor report
type CheckResult struct {
	Name   string
	Passed bool
	Detail string
	Hint   string
}

// Report aggregates a doctor run
type Report struct {
	Results []CheckResult
	Passed  int
	Total   int
}

// Healthy is true only when every check passed
func (r Report) Healthy() bool { return r.Passed == r.Total }

// MostlyFunctional is true at 70% or better
func (r Report) MostlyFunctional() bool {
	return r.Total > 0 && float64(r.Passed)/float64(r.Total) >= 0.7
}

// Doctor runs the checklist against an explicit configuration
type Doctor struct {
	cfg     *config.Config
	mgr     *session.Manager
	advisor *platform.Advisor
	apiTest func(ctx context.Context) error
	probe   func(ctx context.Context, url string) bool
	log     *slog.Logger
}

// New builds a doctor. apiTest may be nil when no credential is
// configured; the API check then fails with setup guidance instead of
// attempting a call.
func New(cfg *config.Config, mgr *session.Manager, advisor *platform.Advisor, apiTest func(ctx context.Context) error) *Doctor {
	return &Doctor{
		cfg:     cfg,
		mgr:     mgr,
		advisor: advisor,
		apiTest: apiTest,
		probe:   probeURL,
		log:     logging.WithComponent("doctor"),
	}
}

func probeURL(ctx context.Context, url string) bool {
	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// Run executes every check in order and returns the aggregate report
func (d *Doctor) Run(ctx context.Context) Report {
	checks := []struct {
		name string
		fn   func(ctx context.Context) (bool, string, string)
	}{
		{"Runtime Environment", d.checkRuntime},
		{"File Permissions", d.checkPermissions},
		{"Configuration", d.checkConfiguration},
		{"Session Storage", d.checkStorage},
		{"Network Access", d.checkNetwork},
		{"API Connection", d.checkAPI},
		{"Platform Features", d.checkPlatform},
	}

	report := Report{Total: len(checks)}
	for _, c := range checks {
		result := d.runIsolated(ctx, c.name, c.fn)
		if result.Passed {
			report.Passed++
		}
		report.Results = append(report.Results, result)
	}
	d.log.Info("doctor run complete", "passed", report.Passed, "total", report.Total)
	return report
}

// runIsolated converts a panic inside a check into that check's failure
func (d *Doctor) runIsolated(ctx context.Context, name string, fn func(ctx context.Context) (bool, string, string)) (result CheckResult) {
	result = CheckResult{Name: name}
	defer func() {
		if r := recover(); r != nil {
			result.Passed = false
			result.Detail = fmt.Sprintf("check panicked: %v", r)
			d.log.Error("doctor check panicked", "check", name, "panic", r)
		}
	}()
	result.Passed, result.Detail, result.Hint = fn(ctx)
	return result
}

func (d *Doctor) checkRuntime(ctx context.Context) (bool, string, string) {
	home, err := os.UserHomeDir()
	if err != nil {
		return false, fmt.Sprintf("home directory not resolvable: %v", err), d.advisor.Hint(platform.IssueStorage)
	}
	if err := d.cfg.EnsureDirs(); err != nil {
		return false, fmt.Sprintf("cannot create storage root: %v", err), d.advisor.Hint(platform.IssuePermission)
	}
	return true, fmt.Sprintf("%s on %s/%s, home %s", runtime.Version(), runtime.GOOS, runtime.GOARCH, home), ""
}

func (d *Doctor) checkPermissions(ctx context.Context) (bool, string, string) {
	dirs := []string{d.cfg.Dir(), d.cfg.SessionsDir(), d.cfg.LogsDir()}
	writable := 0
	var failed []string
	for _, dir := range dirs {
		if dirWritable(dir) {
			writable++
		} else {
			failed = append(failed, dir)
		}
	}
	if writable != len(dirs) {
		return false, fmt.Sprintf("not writable: %s", strings.Join(failed, ", ")), d.advisor.Hint(platform.IssuePermission)
	}
	return true, fmt.Sprintf("%d/%d directories writable", writable, len(dirs)), ""
}

func dirWritable(dir string) bool {
	probe := filepath.Join(dir, ".probe-"+uuid.NewString()[:8])
	if err := os.WriteFile(probe, []byte("probe"), 0o644); err != nil {
		return false
	}
	os.Remove(probe)
	return true
}

func (d *Doctor) checkConfiguration(ctx context.Context) (bool, string, string) {
	if d.cfg.APIKey == "" {
		return false, "no OpenRouter API key configured", d.advisor.Hint(platform.IssueAPIKey)
	}
	if !strings.HasPrefix(d.cfg.APIKey, "sk-") {
		return false, "API key does not look like an OpenRouter key (sk- prefix expected)", d.advisor.Hint(platform.IssueAPIKey)
	}
	if d.cfg.Models.Default == "" {
		return false, "no default model configured", d.advisor.Hint(platform.IssueAPIKey)
	}
	return true, fmt.Sprintf("key %s, default model %s", d.cfg.MaskedKey(), d.cfg.Models.Default), ""
}

// checkStorage exercises the full create/save/load/delete cycle on a
// scratch session, then removes it
func (d *Doctor) checkStorage(ctx context.Context) (bool, string, string) {
	name := "doctor_" + uuid.NewString()[:8]
	hint := d.advisor.Hint(platform.IssuePermission)

	sess, err := d.mgr.Create(name)
	if err != nil {
		return false, fmt.Sprintf("create failed: %v", err), hint
	}
	defer func() { _ = d.mgr.Delete(name) }()

	sess.Content = "health check round trip"
	if err := d.mgr.Save(sess); err != nil {
		return false, fmt.Sprintf("save failed: %v", err), hint
	}
	loaded, err := d.mgr.Load(name)
	if err != nil {
		return false, fmt.Sprintf("load failed: %v", err), hint
	}
	if loaded.Content != sess.Content {
		return false, "round trip returned different content", hint
	}
	if err := d.mgr.Delete(name); err != nil {
		return false, fmt.Sprintf("delete failed: %v", err), hint
	}
	return true, "create/save/load/delete round trip ok", ""
}

func (d *Doctor) checkNetwork(ctx context.Context) (bool, string, string) {
	reached := 0
	apiReachable := false
	for i, url := range probeHosts {
		if d.probe(ctx, url) {
			reached++
			if i == 1 {
				apiReachable = true
			}
		}
	}
	detail := fmt.Sprintf("reached %d/%d hosts", reached, len(probeHosts))
	if reached == 0 {
		return false, "no network connectivity", d.advisor.Hint(platform.IssueNetwork)
	}
	if !apiReachable {
		return false, detail + ", OpenRouter API unreachable", d.advisor.Hint(platform.IssueNetwork)
	}
	return true, detail, ""
}

func (d *Doctor) checkAPI(ctx context.Context) (bool, string, string) {
	if d.apiTest == nil {
		return false, "skipped: no API key configured", d.advisor.Hint(platform.IssueAPIKey)
	}
	if err := d.apiTest(ctx); err != nil {
		return false, fmt.Sprintf("test call failed: %v", err), d.advisor.Hint(platform.IssueAPIKey)
	}
	return true, "authenticated test call succeeded", ""
}

func (d *Doctor) checkPlatform(ctx context.Context) (bool, string, string) {
	details := []string{d.advisor.Platform().String(), "package manager: " + d.advisor.PackageManager()}

	if d.advisor.Platform() == platform.Termux {
		if !dirWritable(d.cfg.Dir()) {
			return false, strings.Join(append(details, "storage not writable"), ", "), d.advisor.Hint(platform.IssueStorage)
		}
		details = append(details, "storage accessible")
	}

	if ed, err := editor.Resolve(); err == nil {
		details = append(details, "editor: "+ed)
	} else {
		return false, strings.Join(append(details, "no editor found"), ", "), d.advisor.Hint(platform.IssueMissingCommand)
	}

	return true, strings.Join(details, ", "), ""
}
