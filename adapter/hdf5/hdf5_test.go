package hdf5

import (
	"os"
	"path/filepath"
	"testing"
)

func TestProbe(t *testing.T) {
	a := New()

	tests := []struct {
		name   string
		prefix []byte
		want   bool
	}{
		{name: "signed", prefix: []byte(magic + "trailing bytes"), want: true},
		{name: "cdf", prefix: []byte("CDF\x01 classic netcdf"), want: false},
		{name: "truncated signature", prefix: []byte{0x89}, want: false},
		{name: "empty", prefix: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Probe(tt.prefix); got != tt.want {
				t.Errorf("Probe() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOpenRootRejectsGarbage(t *testing.T) {
	a := New()
	path := filepath.Join(t.TempDir(), "junk.h5")
	if err := os.WriteFile(path, []byte("not an hdf5 file at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := a.OpenRoot(path); err == nil {
		t.Error("OpenRoot(junk) succeeded")
	}
}
