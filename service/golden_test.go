package service

import (
	"errors"
	"flag"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/krau/handsign/model"
)

var update = flag.Bool("update", false, "rewrite golden files")

const whiteGolden = "testdata/white.golden"

// TestGoldenWhite pins the letter a concrete artifact assigns to an all-white
// frame. Point HANDSIGN_TEST_MODEL at the artifact; record with -update.
func TestGoldenWhite(t *testing.T) {
	path := os.Getenv("HANDSIGN_TEST_MODEL")
	if path == "" {
		t.Skip("HANDSIGN_TEST_MODEL not set")
	}
	rt, err := model.Load(model.LoadOptions{Path: path, PoolSize: 1, Classes: model.DefaultLabels().Len()})
	if err != nil {
		t.Fatalf("load %s: %v", path, err)
	}
	defer rt.Close()

	tensor, err := Normalize(FromImage(solid(100, 100, color.White)))
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range tensor.Data {
		if v != 1 {
			t.Fatalf("element %d = %v, want 1", i, v)
		}
	}

	p := NewPredictor(rt, model.DefaultLabels(), nil)
	payload := RawImage{Data: encodePNG(t, solid(100, 100, color.White))}
	first, err := p.PredictOne(payload)
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.PredictOne(payload)
	if err != nil {
		t.Fatal(err)
	}
	if first.Letter != second.Letter || first.Confidence != second.Confidence {
		t.Fatalf("non-deterministic: %+v vs %+v", first, second)
	}

	if *update {
		if err := os.MkdirAll(filepath.Dir(whiteGolden), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(whiteGolden, []byte(first.Letter+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		return
	}
	want, err := os.ReadFile(whiteGolden)
	if errors.Is(err, os.ErrNotExist) {
		t.Skipf("%s missing, run with -update to record it", whiteGolden)
	}
	if err != nil {
		t.Fatal(err)
	}
	if got := first.Letter; got != strings.TrimSpace(string(want)) {
		t.Errorf("white frame = %q, golden %q", got, want)
	}
}
