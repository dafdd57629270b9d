package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/cisa/internal/kernelstore"
	"github.com/samcharles93/cisa/internal/logger"
	"github.com/samcharles93/cisa/internal/version"
	"github.com/samcharles93/cisa/pkg/cisa"
)

func testContainer(t *testing.T) []byte {
	t.Helper()
	buf, err := cisa.NewBuilder(cisa.Version{Major: 3, Minor: 3}).
		AddKernel(cisa.KernelSpec{
			Name:           "blur",
			Body:           cisa.NewKernelBody("blur", []byte{1, 2, 3}).SetChildren("inputs", cisa.NewInput(0, 1, 0, 4)),
			FunctionRelocs: []*cisa.Record{cisa.NewRelocation(0, 0)},
			Binaries:       []cisa.GenBinaryPayload{{Platform: 11, Data: []byte("icl")}},
		}).
		AddFunction(cisa.FunctionSpec{Name: "edge", Body: cisa.NewFunctionBody("edge", []byte{4})}).
		AddGlobalVariable(cisa.NewGlobalVariable("taps", 0, 9)).
		Bytes()
	if err != nil {
		t.Fatalf("build container: %v", err)
	}
	return buf
}

func TestPrintSummary(t *testing.T) {
	c, err := cisa.Parse(testContainer(t))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var out bytes.Buffer
	if err := printSummary(&out, "blur.isa", c, true, ""); err != nil {
		t.Fatalf("printSummary: %v", err)
	}
	for _, want := range []string{
		"version:     3.3",
		"kernel blur",
		"gen platform=11",
		"instructions=3 bytes",
		"input kind=0 id=1 offset=0 size=4",
		"function edge",
		"global taps",
	} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in summary:\n%s", want, out.String())
		}
	}

	out.Reset()
	if err := printSummary(&out, "blur.isa", c, false, "blur"); err != nil {
		t.Fatalf("printSummary filtered: %v", err)
	}
	if strings.Contains(out.String(), "function edge") {
		t.Fatalf("kernel filter should hide functions:\n%s", out.String())
	}
}

func TestWriteDump(t *testing.T) {
	c, err := cisa.Parse(testContainer(t))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	var out bytes.Buffer
	if err := writeDump(&out, c, false, true); err != nil {
		t.Fatalf("dump: %v", err)
	}
	var typed dumpOutput
	if err := json.Unmarshal(out.Bytes(), &typed); err != nil {
		t.Fatalf("decode dump: %v", err)
	}
	if typed.Version != "3.3" || typed.KernelBodies["blur"].InstructionBytes != 3 {
		t.Fatalf("unexpected dump: %+v", typed)
	}
	if len(typed.FunctionBodies) != 1 {
		t.Fatalf("function bodies: %+v", typed.FunctionBodies)
	}

	out.Reset()
	if err := writeDump(&out, c, true, false); err != nil {
		t.Fatalf("raw dump: %v", err)
	}
	for _, want := range []string{`"record":"Header"`, `"record":"KernelBody"`, `"instructions":"010203"`} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %s in raw dump: %s", want, out.String())
		}
	}
}

func TestRewriteBytes(t *testing.T) {
	in := testContainer(t)
	out, err := rewriteBytes(in, true)
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if !bytes.Equal(out, in) {
		t.Fatalf("rewrite changed the container")
	}

	if _, err := rewriteBytes(in[:10], false); !errors.Is(err, cisa.ErrTruncatedField) {
		t.Fatalf("expected truncation error, got %v", err)
	}
}

func TestExtractAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blur.isa")
	if err := os.WriteFile(path, testContainer(t), 0o644); err != nil {
		t.Fatalf("write container: %v", err)
	}
	s, err := kernelstore.Open(path, logger.Discard())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer func() { _ = s.Close() }()

	dir := t.TempDir()
	n, err := extractAll(s, dir, true)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 files, got %d", n)
	}
	code, err := os.ReadFile(filepath.Join(dir, "blur.bin"))
	if err != nil || !bytes.Equal(code, []byte{1, 2, 3}) {
		t.Fatalf("instructions file: %x %v", code, err)
	}
	gen, err := os.ReadFile(filepath.Join(dir, "blur.gen11.bin"))
	if err != nil || string(gen) != "icl" {
		t.Fatalf("gen binary file: %q %v", gen, err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "log_level: debug\nserver_address: 0.0.0.0:9000\nregistry_dir: /var/lib/cisa\nmax_upload_bytes: 1024\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg := loadConfigFrom(path)
	if cfg.LogLevel != "debug" || cfg.ServerAddress != "0.0.0.0:9000" || cfg.RegistryDir != "/var/lib/cisa" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.MaxUploadBytes == nil || *cfg.MaxUploadBytes != 1024 {
		t.Fatalf("max upload: %v", cfg.MaxUploadBytes)
	}

	if got := loadConfigFrom(filepath.Join(t.TempDir(), "missing.yaml")); got != (Config{}) {
		t.Fatalf("missing file should give zero config: %+v", got)
	}
}

func TestApplyServeConfig(t *testing.T) {
	limit := int64(2048)
	cfg := Config{ServerAddress: "0.0.0.0:1", RegistryDir: "/tmp/reg", MaxUploadBytes: &limit}

	var addr, dir string
	var maxUpload int64
	cmd := &cli.Command{Name: "serve"}
	applyServeConfig(cmd, cfg, &addr, &dir, &maxUpload)
	if addr != "0.0.0.0:1" || dir != "/tmp/reg" || maxUpload != 2048 {
		t.Fatalf("config not applied: addr=%q dir=%q max=%d", addr, dir, maxUpload)
	}
}

func TestPrintVersion(t *testing.T) {
	info := version.Info{Version: "1.2.0", Formats: "3.0-4.99"}

	var out bytes.Buffer
	if err := printVersion(&out, info, false); err != nil {
		t.Fatalf("printVersion: %v", err)
	}
	if strings.Contains(out.String(), "commit:") || !strings.Contains(out.String(), "formats:    3.0-4.99") {
		t.Fatalf("unexpected text output:\n%s", out.String())
	}

	out.Reset()
	if err := printVersion(&out, info, true); err != nil {
		t.Fatalf("printVersion json: %v", err)
	}
	var got version.Info
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != info {
		t.Fatalf("round trip: got %+v want %+v", got, info)
	}
}
