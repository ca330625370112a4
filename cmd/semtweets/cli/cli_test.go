package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/semtweets/cli/cmd/semtweets/cli/config"
)

func TestIsReadOnly(t *testing.T) {
	t.Parallel()
	tests := []struct {
		query string
		want  bool
	}{
		{"SELECT * FROM tweets", true},
		{"  select 1", true},
		{"WITH x AS (SELECT 1) SELECT * FROM x", true},
		{"DELETE FROM tweets", false},
		{"DROP TABLE runs", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isReadOnly(tt.query); got != tt.want {
			t.Errorf("isReadOnly(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestFormatSizes(t *testing.T) {
	t.Parallel()
	if got := formatSizes([]int{5, 3, 0}); got != "5 3 0" {
		t.Errorf("formatSizes = %q", got)
	}
	if got := formatSizes(nil); got != "" {
		t.Errorf("formatSizes(nil) = %q", got)
	}
}

func TestSilentError(t *testing.T) {
	t.Parallel()
	base := errors.New("boom")
	err := fmt.Errorf("wrapped: %w", NewSilentError(base))
	if !IsSilentError(err) {
		t.Error("wrapped SilentError should be detected")
	}
	if !errors.Is(err, base) {
		t.Error("SilentError should unwrap to its cause")
	}
	if IsSilentError(base) {
		t.Error("plain error is not silent")
	}
}

func TestNewRootCmd_Commands(t *testing.T) {
	t.Parallel()
	root := NewRootCmd()
	want := map[string]string{
		"init": "core", "clean": "core", "version": "core",
		"import": "workflow", "collect": "workflow", "cluster": "workflow", "runs": "workflow",
		"query": "advanced", "export": "advanced",
	}
	for name, group := range want {
		c, _, err := root.Find([]string{name})
		if err != nil || c == root {
			t.Errorf("command %s not registered", name)
			continue
		}
		if c.GroupID != group {
			t.Errorf("command %s group = %q, want %q", name, c.GroupID, group)
		}
	}
}

func TestVersionCmd(t *testing.T) {
	t.Parallel()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out.String()) != "semtweets "+Version {
		t.Errorf("version output = %q", out.String())
	}
}

func TestMergeClusterFlags(t *testing.T) {
	t.Parallel()
	cmd := newClusterCmd()
	if err := cmd.ParseFlags([]string{"--clusters", "7", "--format", "json"}); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{Pipeline: config.PipelineConfig{LatentDims: 30, Clusters: 99}}
	config.ApplyDefaults(cfg)

	f := clusterFlags{clusters: 7, format: "json"}
	mergeClusterFlags(cmd, cfg, &f)
	if f.clusters != 7 {
		t.Errorf("explicit flag should win: clusters = %d", f.clusters)
	}
	if f.latent != 30 {
		t.Errorf("config should fill unset flag: latent = %d", f.latent)
	}
	if f.iterations != config.DefaultMaxIterations || f.output != config.DefaultReportPath {
		t.Errorf("defaults not applied: %+v", f)
	}
	if f.format != "json" {
		t.Errorf("format = %q", f.format)
	}
}

func TestBuildTokenizer_StopwordFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "stop.txt")
	if err := os.WriteFile(path, []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tok, err := buildTokenizer(clusterFlags{stopwords: path, minLength: 2})
	if err != nil {
		t.Fatal(err)
	}
	got := tok.Tokenize("hello the world")
	want := []string{"the", "world"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("tokens = %v, want %v", got, want)
	}

	if _, err := buildTokenizer(clusterFlags{stopwords: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Error("missing stop-word file should fail")
	}
}

func TestClusterCmd_CorpusWithoutStore(t *testing.T) {
	dir := t.TempDir()
	corpusPath := filepath.Join(dir, "tweets.txt")
	content := strings.Join([]string{
		"the cat sat on the warm mat purring",
		"my cat loves the warm sunny mat",
		"a cat and a kitten nap on the mat",
		"stock market prices fell sharply today",
		"investors sold stock as market prices dropped",
		"market analysts expect stock prices to recover",
	}, "\n")
	if err := os.WriteFile(corpusPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	reportPath := filepath.Join(dir, "clusters.txt")

	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs([]string{
		"cluster",
		"--config", filepath.Join(dir, "none.yaml"),
		"--data-dir", filepath.Join(dir, "store"),
		"--corpus", corpusPath,
		"--latent", "2", "-k", "2", "--seed", "3",
		"-o", reportPath,
	})
	if err := root.Execute(); err != nil {
		t.Fatalf("cluster: %v\n%s", err, errOut.String())
	}

	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatal(err)
	}
	report := string(data)
	if strings.Count(report, "* Cluster: ") != 2 {
		t.Errorf("expected 2 clusters in report:\n%s", report)
	}
	if strings.Count(report, "*   tweet: ") != 6 {
		t.Errorf("expected 6 tweets in report:\n%s", report)
	}
	if !strings.Contains(errOut.String(), "seed 3") {
		t.Errorf("progress should report the seed: %q", errOut.String())
	}
	if strings.Contains(errOut.String(), "stored") {
		t.Error("no store means no stored run")
	}
}

func TestClusterCmd_InvalidRank(t *testing.T) {
	dir := t.TempDir()
	corpusPath := filepath.Join(dir, "tweets.txt")
	if err := os.WriteFile(corpusPath, []byte("alpha beta\ngamma delta\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{
		"cluster",
		"--config", filepath.Join(dir, "none.yaml"),
		"--data-dir", filepath.Join(dir, "store"),
		"--corpus", corpusPath,
		"--latent", "5", "-k", "1",
		"-o", filepath.Join(dir, "out.txt"),
	})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "5") {
		t.Fatalf("expected rank error naming 5, got %v", err)
	}
}
