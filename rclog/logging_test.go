package rclog

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newLogger(t *testing.T) (*Logger, string) {
	p := filepath.Join(t.TempDir(), `test.log`)
	fout, err := os.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	return New(fout), p
}

func TestNewAndClose(t *testing.T) {
	lgr, _ := newLogger(t)
	if err := lgr.Critical("test", KV("n", 99)); err != nil {
		t.Fatal(err)
	}
	if err := lgr.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestAppend(t *testing.T) {
	p := filepath.Join(t.TempDir(), `test.log`)
	lgr, err := NewFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if err := lgr.Error("test", KV("n", 99)); err != nil {
		t.Fatal(err)
	}
	if err := lgr.Close(); err != nil {
		t.Fatal(err)
	}
	lgr2, err := NewFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if err := lgr2.Error("second"); err != nil {
		t.Fatal(err)
	}
	lgr2.Close()

	bts, err := ioutil.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(bts), "test") || !strings.Contains(string(bts), "second") {
		t.Fatalf("append lost a line: %q", string(bts))
	}
}

func TestLevelFilter(t *testing.T) {
	lgr, p := newLogger(t)
	if err := lgr.SetLevel(WARN); err != nil {
		t.Fatal(err)
	}
	lgr.Debug("should not appear")
	lgr.Info("should not appear either")
	lgr.Warn("warn line", KV("id", 99))
	lgr.Error("error line")
	lgr.Close()

	bts, err := ioutil.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	s := string(bts)
	if strings.Contains(s, "should not appear") {
		t.Fatalf("level filter failed to suppress: %q", s)
	}
	if !strings.Contains(s, "warn line") || !strings.Contains(s, `id="99"`) {
		t.Fatalf("missing warn line: %q", s)
	}
	if !strings.Contains(s, "error line") {
		t.Fatalf("missing error line: %q", s)
	}
}

func TestMultiWriter(t *testing.T) {
	lgr, _ := newLogger(t)
	var paths []string
	for i := 0; i < 3; i++ {
		fout, err := ioutil.TempFile(t.TempDir(), ``)
		if err != nil {
			t.Fatal(err)
		}
		if err := lgr.AddWriter(fout); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, fout.Name())
	}
	if err := lgr.Critical("fanout"); err != nil {
		t.Fatal(err)
	}
	lgr.Close()
	for _, p := range paths {
		bts, err := ioutil.ReadFile(p)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(bts), "fanout") {
			t.Fatalf("%s missing fanout line", p)
		}
	}
}

func TestAfterCloseErrors(t *testing.T) {
	lgr, _ := newLogger(t)
	lgr.Close()
	if err := lgr.Info("dead"); err != ErrNotOpen {
		t.Fatalf("expected ErrNotOpen, got %v", err)
	}
}

func TestTrimLength(t *testing.T) {
	if out := trimLength(10, "twelve bytes"); out != "twelve byt" {
		t.Fatalf("trimLength: %q", out)
	}
}

func TestTrimPathLength(t *testing.T) {
	if out := trimPathLength(19, "svc/runner.go:355"); out != "svc/runner.go:355" {
		t.Fatalf("trimPathLength: %q", out)
	}
	if out := trimPathLength(10, "svc/runner.go:355"); out != "runner.go:" {
		t.Fatalf("trimPathLength overlong: %q", out)
	}
}

func TestLevelFromString(t *testing.T) {
	if l, err := LevelFromString("warn"); err != nil || l != WARN {
		t.Fatalf("LevelFromString(warn) = %v, %v", l, err)
	}
	if _, err := LevelFromString("bogus"); err != ErrInvalidLevel {
		t.Fatalf("expected ErrInvalidLevel, got %v", err)
	}
}
