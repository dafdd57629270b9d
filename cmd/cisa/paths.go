package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	envCisaOutDir      = "CISA_OUT_DIR"
	envCisaRegistryDir = "CISA_REGISTRY_DIR"

	containerExt = ".isa"
)

// resolveOutDir picks the directory extract writes into: the flag, then
// $CISA_OUT_DIR/<input base>, then ./out/<input base>. The bool reports
// whether a default was used.
func resolveOutDir(input, outFlag string) (string, bool, error) {
	outFlag = strings.TrimSpace(outFlag)
	if outFlag != "" {
		outDir := filepath.Clean(outFlag)
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return "", false, err
		}
		return outDir, false, nil
	}

	base := strings.TrimSuffix(filepath.Base(filepath.Clean(input)), filepath.Ext(input))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "", true, fmt.Errorf("invalid input path: %q", input)
	}

	root := strings.TrimSpace(os.Getenv(envCisaOutDir))
	if root == "" {
		root = filepath.Join(".", "out")
	}
	outDir := filepath.Join(root, base)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", true, err
	}
	return outDir, true, nil
}

// defaultRegistryDir is $CISA_REGISTRY_DIR or a directory under the user
// cache dir.
func defaultRegistryDir() string {
	if dir := strings.TrimSpace(os.Getenv(envCisaRegistryDir)); dir != "" {
		return dir
	}
	cache, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(".", "registry")
	}
	return filepath.Join(cache, "cisa", "registry")
}

// expandInputs replaces directory arguments with the containers they hold.
func expandInputs(args []string) ([]string, error) {
	if len(args) == 0 {
		return nil, errors.New("no input files")
	}
	var out []string
	for _, a := range args {
		st, err := os.Stat(a)
		if err != nil {
			return nil, err
		}
		if !st.IsDir() {
			out = append(out, a)
			continue
		}
		found, err := discoverContainers(a)
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("no %s files found in %s", containerExt, a)
		}
		out = append(out, found...)
	}
	return out, nil
}

func discoverContainers(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), containerExt) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// safeName maps a kernel name onto a file name component.
func safeName(name string) string {
	if name == "" {
		return "_"
	}
	out := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, name)
	if strings.Trim(out, ".") == "" {
		out = "_" + out
	}
	return out
}
