package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mediasort/internal/config"
	"mediasort/internal/runlock"
	"mediasort/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	t.Setenv("MEDIASORT_INPUT_DIR", "")
	t.Setenv("MEDIASORT_OUTPUT_DIR", "")
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("ffprobe"))
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
input_dir = %q
output_dir = %q
database_path = %q
log_dir = %q

[media]
shuffle = false

[player]
command = ""
release_delay_ms = 0

[trash]
dir = %q

[logging]
level = "error"
`,
		cfg.Paths.InputDir,
		cfg.Paths.OutputDir,
		cfg.Paths.DatabasePath,
		cfg.Paths.LogDir,
		cfg.Trash.Dir,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string, stdin io.Reader) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Fatalf("expected output to contain %q\noutput:\n%s", want, output)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	base := t.TempDir()
	t.Setenv("HOME", base)
	target := filepath.Join(base, "conf", "mediasort.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", nil)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration to "+target)

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", nil); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, "", nil); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, _, err = runCLI(t, []string{"config", "validate"}, target, nil)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config path: "+target)
	requireContains(t, out, "Backfill policy: record")
	requireContains(t, out, "Configuration valid")
}

func TestOptionsAddAndList(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"options", "add", "type", "Movie"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("options add: %v", err)
	}
	requireContains(t, out, `Added type "Movie"`)

	if _, _, err := runCLI(t, []string{"options", "add", "type", "movie"}, env.configPath, nil); err == nil {
		t.Fatal("expected case-insensitive duplicate to be rejected")
	}
	if _, _, err := runCLI(t, []string{"options", "add", "tag", "a/b"}, env.configPath, nil); err == nil {
		t.Fatal("expected invalid value to be rejected")
	}
	if _, _, err := runCLI(t, []string{"options", "add", "genre", "Drama"}, env.configPath, nil); err == nil {
		t.Fatal("expected unknown field to be rejected")
	}

	out, _, err = runCLI(t, []string{"options", "list", "type"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("options list: %v", err)
	}
	requireContains(t, out, "Movie")

	out, _, err = runCLI(t, []string{"options", "list", "tag"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("options list tag: %v", err)
	}
	requireContains(t, out, "No values")
}

func TestOptionsAddReportsLegacyBackfill(t *testing.T) {
	env := setupCLITestEnv(t)
	f, err := os.OpenFile(env.configPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open config: %v", err)
	}
	if _, err := f.WriteString("\n[vocabulary]\nbackfill = \"legacy\"\n"); err != nil {
		t.Fatalf("append config: %v", err)
	}
	f.Close()

	store := testsupport.MustOpenStore(t, env.cfg)
	testsupport.InsertStub(t, store, filepath.Join(env.cfg.Paths.InputDir, "old.mp4"))
	store.Close()

	out, _, err := runCLI(t, []string{"options", "add", "type", "Movie"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("options add: %v", err)
	}
	requireContains(t, out, "Filled 1 record(s) with an empty type")

	out, _, err = runCLI(t, []string{"options", "add", "category", "Drama"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("options add category: %v", err)
	}
	requireContains(t, out, "Filled 1 record(s) with an empty category")
}

func TestOptionsAddRespectsRunLock(t *testing.T) {
	env := setupCLITestEnv(t)

	lock, err := runlock.Acquire(env.cfg.LockPath())
	if err != nil {
		t.Fatalf("acquire lock: %v", err)
	}
	defer lock.Release()

	_, _, err = runCLI(t, []string{"options", "add", "type", "Movie"}, env.configPath, nil)
	if !errors.Is(err, runlock.ErrHeld) {
		t.Fatalf("expected ErrHeld, got %v", err)
	}
}

func TestRunRefusesNonInteractiveInput(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"run"}, env.configPath, strings.NewReader("q\n"))
	if err == nil || !strings.Contains(err.Error(), "not a terminal") {
		t.Fatalf("expected terminal error, got %v", err)
	}
}

func TestRunEmptyInputDirectory(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"run", "--assume-tty"}, env.configPath, strings.NewReader(""))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "No media files found")
}

func TestRunClassifiesAndFilesMedia(t *testing.T) {
	env := setupCLITestEnv(t)
	src := filepath.Join(env.cfg.Paths.InputDir, "clip.mp4")
	testsupport.WriteFile(t, src, 2048)
	testsupport.WriteFile(t, filepath.Join(env.cfg.Paths.InputDir, "notes.txt"), 10)

	script := "n\nMovie\nn\nAction\nn\nFunny\n4\n\n"
	out, _, err := runCLI(t, []string{"run", "--assume-tty"}, env.configPath, strings.NewReader(script))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "Processed 1, deleted 0, skipped 0, failed 0 (of 1 files)")
	requireContains(t, out, "Funny_4_clip.mp4")

	dest := filepath.Join(env.cfg.Paths.OutputDir, "LowQuality", "Movie", "Action", "Funny_4_clip.mp4")
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("expected relocated file at %s: %v", dest, err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("expected source to be gone, stat err = %v", err)
	}

	out, _, err = runCLI(t, []string{"catalog", "list", "--processed"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("catalog list: %v", err)
	}
	requireContains(t, out, "clip.mp4")
	requireContains(t, out, "processed")

	out, _, err = runCLI(t, []string{"catalog", "list", "--pending"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("catalog list --pending: %v", err)
	}
	requireContains(t, out, "No records")

	out, _, err = runCLI(t, []string{"catalog", "show", src}, env.configPath, nil)
	if err != nil {
		t.Fatalf("catalog show: %v", err)
	}
	requireContains(t, out, "Tag:         Funny")
	requireContains(t, out, "Rating:      4")
	requireContains(t, out, "Destination: "+dest)

	out, _, err = runCLI(t, []string{"status"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Integrity:  yes")
	requireContains(t, out, "tag:      1 value(s)")
}

func TestRunQuitExitsCleanly(t *testing.T) {
	env := setupCLITestEnv(t)
	src := filepath.Join(env.cfg.Paths.InputDir, "clip.mp4")
	testsupport.WriteFile(t, src, 10)

	out, _, err := runCLI(t, []string{"run", "--assume-tty"}, env.configPath, strings.NewReader("q\n"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "Processed 0, deleted 0, skipped 0, failed 0 (of 1 files)")
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source should stay in place: %v", err)
	}

	out, _, err = runCLI(t, []string{"catalog", "list", "--pending", "--json"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("catalog list --json: %v", err)
	}
	requireContains(t, out, `"Count": 1`)
}

func TestMigrateReportsColumns(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"migrate"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	requireContains(t, out, "Database: "+env.cfg.Paths.DatabasePath)
	requireContains(t, out, "Columns failed:  none")
}

func TestReconcileWithConsistentCatalog(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"reconcile"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	requireContains(t, out, "Catalog is consistent")
}

func TestReconcileApplyCommitsMovedFile(t *testing.T) {
	env := setupCLITestEnv(t)
	store := testsupport.MustOpenStore(t, env.cfg)
	src := filepath.Join(env.cfg.Paths.InputDir, "lost.mp4")
	testsupport.InsertStub(t, store, src)
	store.Close()

	moved := filepath.Join(env.cfg.Paths.OutputDir, "HD", "Movie", "Drama", "Calm_3_lost.mp4")
	testsupport.WriteFile(t, moved, 100)

	out, _, err := runCLI(t, []string{"reconcile"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	requireContains(t, out, "located")
	requireContains(t, out, "Run with --apply")

	out, _, err = runCLI(t, []string{"reconcile", "--apply"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("reconcile --apply: %v", err)
	}
	requireContains(t, out, "Committed 1, failed 0, left untouched 0")

	out, _, err = runCLI(t, []string{"catalog", "show", src}, env.configPath, nil)
	if err != nil {
		t.Fatalf("catalog show: %v", err)
	}
	requireContains(t, out, "Status:      processed")
	requireContains(t, out, "Category:    Drama")
}

func TestLogsFiltersByRun(t *testing.T) {
	env := setupCLITestEnv(t)
	logPath := filepath.Join(env.cfg.Paths.LogDir, "mediasort.log")
	content := `{"msg":"queue finished","run_id":"aaa"}
{"msg":"file relocated","run_id":"bbb"}
`
	if err := os.MkdirAll(env.cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	if err := os.WriteFile(logPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "--run", "bbb"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "file relocated")
	if strings.Contains(out, "queue finished") {
		t.Fatalf("unexpected line from another run:\n%s", out)
	}
}
