package util

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestPtr(t *testing.T) {
	v := 3
	p := Ptr(v)
	v = 4
	if *p != 3 {
		t.Errorf("Ptr should copy, got %d", *p)
	}
}

func TestUnique(t *testing.T) {
	got := Unique([]string{"example", "memory", "example", "filter"})
	want := []string{"example", "memory", "filter"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Unique() = %v, want %v", got, want)
	}
}

func TestSortedKeys(t *testing.T) {
	got := SortedKeys(map[string]int{"tts": 1, "llm": 2, "stt": 3})
	want := []string{"llm", "stt", "tts"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SortedKeys() = %v, want %v", got, want)
	}
}

func TestCoalesce(t *testing.T) {
	if got := Coalesce("", "", "c"); got != "c" {
		t.Errorf("Coalesce() = %q, want c", got)
	}
	if got := Coalesce(0, 0); got != 0 {
		t.Errorf("Coalesce() = %d, want 0", got)
	}
	if *Ptr(3) != 3 {
		t.Error("Ptr() should point at the value")
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"  ", nil},
		{"example", []string{"example"}},
		{"example, sentiment_analysis ,,profanity_filter", []string{"example", "sentiment_analysis", "profanity_filter"}},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			if got := SplitList(tc.in); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("SplitList(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in     string
		prefix int
		want   string
	}{
		{"sk-1234567890", 3, "sk-***"},
		{"ab", 3, "***"},
		{"", 0, "***"},
	}
	for _, tc := range tests {
		if got := MaskSecret(tc.in, tc.prefix); got != tc.want {
			t.Errorf("MaskSecret(%q, %d) = %q, want %q", tc.in, tc.prefix, got, tc.want)
		}
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"", 7},
		{"512", 512},
		{"1KB", 1024},
		{"10mb", 10 << 20},
		{" 2 GB", 2 << 30},
		{"lots", 7},
		{"-1KB", 7},
	}
	for _, tc := range tests {
		if got := ParseSize(tc.in, 7); got != tc.want {
			t.Errorf("ParseSize(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "shared_metrics.json")

	if err := WriteFileAtomic(path, []byte(`{"v":1}`), 0o644); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(path, []byte(`{"v":2}`), 0o644); err != nil {
		t.Fatalf("second write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"v":2}` {
		t.Errorf("content = %s", data)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestWriteFileAtomic_BadDirectory(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteFileAtomic(filepath.Join(blocker, "out.json"), []byte("x"), 0o644); err == nil {
		t.Error("expected error when the parent is a regular file")
	}
}
