package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveOutDir(t *testing.T) {
	t.Run("explicit output wins", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "nested", "kernels")

		got, defaulted, err := resolveOutDir("a.isa", out)
		if err != nil {
			t.Fatalf("resolveOutDir returned error: %v", err)
		}
		if defaulted {
			t.Fatalf("expected explicit output to not be defaulted")
		}
		if got != filepath.Clean(out) {
			t.Fatalf("unexpected output dir: got %q want %q", got, filepath.Clean(out))
		}
		if st, err := os.Stat(got); err != nil || !st.IsDir() {
			t.Fatalf("expected output directory to exist: %v", err)
		}
	})

	t.Run("env output dir overrides default", func(t *testing.T) {
		envDir := filepath.Join(t.TempDir(), "extract-out")
		t.Setenv(envCisaOutDir, envDir)

		got, defaulted, err := resolveOutDir(filepath.Join("some", "blur.isa"), "")
		if err != nil {
			t.Fatalf("resolveOutDir returned error: %v", err)
		}
		if !defaulted {
			t.Fatalf("expected output to be defaulted")
		}
		if want := filepath.Join(envDir, "blur"); got != want {
			t.Fatalf("unexpected output dir: got %q want %q", got, want)
		}
	})
}

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.isa", "a.ISA", "ignore.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	single := filepath.Join(dir, "ignore.txt")

	got, err := expandInputs([]string{dir, single})
	if err != nil {
		t.Fatalf("expandInputs: %v", err)
	}
	want := []string{filepath.Join(dir, "a.ISA"), filepath.Join(dir, "b.isa"), single}
	if len(got) != len(want) {
		t.Fatalf("unexpected inputs: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("input %d: got %q want %q", i, got[i], want[i])
		}
	}

	if _, err := expandInputs(nil); err == nil {
		t.Fatalf("expected error for no inputs")
	}
	if _, err := expandInputs([]string{t.TempDir()}); err == nil {
		t.Fatalf("expected error for a directory without containers")
	}
}

func TestSafeName(t *testing.T) {
	cases := map[string]string{
		"blur_3x3": "blur_3x3",
		"a/b":      "a_b",
		"..":       "_..",
		"":         "_",
		"k ernel!": "k_ernel_",
		"main.v2":  "main.v2",
	}
	for in, want := range cases {
		if got := safeName(in); got != want {
			t.Errorf("safeName(%q): got %q want %q", in, got, want)
		}
	}
}
