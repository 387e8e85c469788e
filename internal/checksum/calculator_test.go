package checksum

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const emptySHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

func TestSHA256_CalculateRaw(t *testing.T) {
	calc := New()

	if got := calc.CalculateRaw(nil); got != emptySHA256 {
		t.Errorf("CalculateRaw(nil) = %s, want %s", got, emptySHA256)
	}

	// sha256("abc"), FIPS 180-2 test vector
	const abc = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := calc.CalculateRaw([]byte("abc")); got != abc {
		t.Errorf("CalculateRaw(abc) = %s, want %s", got, abc)
	}
}

func TestSHA256_SumMatchesCalculateRaw(t *testing.T) {
	calc := New()
	content := strings.Repeat("1237663784734294016,135.689,32.494,STAR\n", 1000)

	sum, err := calc.Sum(strings.NewReader(content))
	if err != nil {
		t.Fatalf("Sum() error = %v", err)
	}
	if want := calc.CalculateRaw([]byte(content)); sum != want {
		t.Errorf("Sum() = %s, want %s", sum, want)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestSHA256_SumReadError(t *testing.T) {
	if _, err := New().Sum(failingReader{}); err == nil {
		t.Fatal("expected error from failing reader")
	}
}

func TestSHA256_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sky.csv")
	content := []byte("obj_ID,alpha,delta\n1,10.5,20.25\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	calc := New()
	sum, err := calc.File(path)
	if err != nil {
		t.Fatalf("File() error = %v", err)
	}
	if want := calc.CalculateRaw(content); sum != want {
		t.Errorf("File() = %s, want %s", sum, want)
	}

	if err := os.WriteFile(path, append(content, "2,11,21\n"...), 0o644); err != nil {
		t.Fatal(err)
	}
	changed, err := calc.File(path)
	if err != nil {
		t.Fatalf("File() error = %v", err)
	}
	if changed == sum {
		t.Error("checksum did not change with file content")
	}
}

func TestSHA256_FileMissing(t *testing.T) {
	_, err := New().File(filepath.Join(t.TempDir(), "absent.csv"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("File() error = %v, want os.ErrNotExist", err)
	}
}

func TestSHA256_ImplementsCalculator(t *testing.T) {
	var _ Calculator = New()
}

func TestDigest_MatchesFile(t *testing.T) {
	content := strings.Repeat("1237663784734294016,135.689,32.494,STAR\n", 500)
	path := filepath.Join(t.TempDir(), "survey.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	want, err := New().File(path)
	if err != nil {
		t.Fatalf("File() error = %v", err)
	}

	d := NewDigest()
	if _, err := io.Copy(d, strings.NewReader(content)); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if got := d.Sum(); got != "" {
		t.Errorf("Sum() before Seal = %q, want empty", got)
	}
	d.Seal()
	if got := d.Sum(); got != want {
		t.Errorf("Sum() = %s, want %s", got, want)
	}

	d.Reset()
	if got := d.Sum(); got != "" {
		t.Errorf("Sum() after Reset = %q, want empty", got)
	}
	d.Seal()
	if got := d.Sum(); got != emptySHA256 {
		t.Errorf("Sum() of empty stream = %s, want %s", got, emptySHA256)
	}
}
