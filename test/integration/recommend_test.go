// Package integration exercises the full ingest-then-recommend flow against a
// real on-disk catalog.
package integration

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/hyperjump/erabu/internal/caption"
	"github.com/hyperjump/erabu/internal/catalog"
	"github.com/hyperjump/erabu/internal/encoder"
	"github.com/hyperjump/erabu/internal/recommend"
)

func writeCatalogFixture(t *testing.T, dir string) (metaPath, imageDir string) {
	t.Helper()
	imageDir = filepath.Join(dir, "images")
	if err := os.MkdirAll(imageDir, 0755); err != nil {
		t.Fatal(err)
	}
	colors := map[string]color.RGBA{
		"red.png":   {220, 20, 20, 255},
		"green.png": {20, 220, 20, 255},
		"blue.png":  {20, 20, 220, 255},
	}
	for name, c := range colors {
		img := image.NewRGBA(image.Rect(0, 0, 16, 16))
		for y := 0; y < 16; y++ {
			for x := 0; x < 16; x++ {
				img.Set(x, y, c)
			}
		}
		if err := imaging.Save(img, filepath.Join(imageDir, name)); err != nil {
			t.Fatal(err)
		}
	}
	metaPath = filepath.Join(dir, "catalog.csv")
	content := "file_name,local_path,caption,category\n" +
		"red.png,red.png,bright red sneaker,sneakers\n" +
		"green.png,green.png,green canvas boot,boots\n" +
		"blue.png,blue.png,blue suede sandal,sandals\n"
	if err := os.WriteFile(metaPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return metaPath, imageDir
}

func TestIntegration_IngestAndRecommend(t *testing.T) {
	dir := t.TempDir()
	metaPath, imageDir := writeCatalogFixture(t, dir)

	dual, err := encoder.NewDualEncoder(encoder.NewMockModelEncoder(64), encoder.DefaultTextWeight)
	if err != nil {
		t.Fatal(err)
	}
	source, err := catalog.NewSource(metaPath)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	cat, index, err := catalog.NewIngestor(source, imageDir, dual, catalog.WithWorkers(2)).Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cat.Size() != 3 || index.Size() != 3 {
		t.Fatalf("catalog=%d index=%d, want 3/3", cat.Size(), index.Size())
	}

	pipeline, err := caption.NewPipeline(caption.NewMockCaptioner())
	if err != nil {
		t.Fatal(err)
	}
	eng, err := recommend.NewEngine(pipeline, dual, recommend.WithTopK(2))
	if err != nil {
		t.Fatal(err)
	}
	eng.Install(&recommend.State{Index: index, Catalog: cat})

	query, err := imaging.Open(filepath.Join(imageDir, "red.png"))
	if err != nil {
		t.Fatal(err)
	}
	rec, err := eng.Recommend(ctx, query, "something red", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.Results) != 2 {
		t.Fatalf("results: got %d, want 2", len(rec.Results))
	}
	for _, r := range rec.Results {
		if r.Meta["category"] == "" {
			t.Errorf("result %q missing category meta: %v", r.ID, r.Meta)
		}
	}
	if rec.Results[0].Similarity < rec.Results[1].Similarity {
		t.Error("results not ordered by descending similarity")
	}
}

func TestIntegration_ReingestReplacesCatalog(t *testing.T) {
	dir := t.TempDir()
	metaPath, imageDir := writeCatalogFixture(t, dir)

	dual, err := encoder.NewDualEncoder(encoder.NewMockModelEncoder(64), encoder.DefaultTextWeight)
	if err != nil {
		t.Fatal(err)
	}
	source, err := catalog.NewSource(metaPath)
	if err != nil {
		t.Fatal(err)
	}
	ing := catalog.NewIngestor(source, imageDir, dual)
	ctx := context.Background()

	cat1, index1, err := ing.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}

	// Shrink the catalog on disk and re-run: a fresh snapshot comes back, the
	// old one is untouched.
	content := "file_name,local_path,caption,category\n" +
		"red.png,red.png,bright red sneaker,sneakers\n"
	if err := os.WriteFile(metaPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	cat2, index2, err := ing.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cat2.Size() != 1 || index2.Size() != 1 {
		t.Errorf("second snapshot: catalog=%d index=%d, want 1/1", cat2.Size(), index2.Size())
	}
	if cat1.Size() != 3 || index1.Size() != 3 {
		t.Errorf("first snapshot mutated: catalog=%d index=%d", cat1.Size(), index1.Size())
	}
}
