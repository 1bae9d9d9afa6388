package encoder

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"
)

func testImage(c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func vecNorm(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

func TestDualEncoder_EmptyTextSentinel(t *testing.T) {
	dual, err := NewDualEncoder(NewMockModelEncoder(512), DefaultTextWeight)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, text := range []string{"", "   ", "\t\n"} {
		vec, err := dual.EncodeText(ctx, text)
		if err != nil {
			t.Fatalf("EncodeText(%q) error: %v", text, err)
		}
		if len(vec) != 512 {
			t.Fatalf("EncodeText(%q) returned %d dims", text, len(vec))
		}
		for i, v := range vec {
			if v != 0 {
				t.Fatalf("EncodeText(%q)[%d] = %g, want all-zero sentinel", text, i, v)
			}
		}
	}
}

func TestDualEncoder_TextUnitNorm(t *testing.T) {
	dual, _ := NewDualEncoder(NewMockModelEncoder(128), DefaultTextWeight)
	vec, err := dual.EncodeText(context.Background(), "red leather boots")
	if err != nil {
		t.Fatal(err)
	}
	if n := vecNorm(vec); math.Abs(n-1) > 1e-5 {
		t.Errorf("norm = %g, want 1", n)
	}
}

func TestDualEncoder_DualUnitNorm(t *testing.T) {
	dual, _ := NewDualEncoder(NewMockModelEncoder(64), DefaultTextWeight)
	ctx := context.Background()
	img := testImage(color.RGBA{200, 30, 30, 255})
	for _, text := range []string{"", "red sneaker", "a very long description of a product"} {
		vec, err := dual.EncodeDual(ctx, img, text)
		if err != nil {
			t.Fatalf("EncodeDual(%q) error: %v", text, err)
		}
		if n := vecNorm(vec); math.Abs(n-1) > 1e-5 {
			t.Errorf("EncodeDual(%q) norm = %g, want 1", text, n)
		}
	}
}

func TestDualEncoder_ImageOnlyEqualsScaledImage(t *testing.T) {
	// With empty text, the fused vector is normalize(imageWeight*EncodeImage(img)):
	// scaling then renormalizing a unit vector is the identity.
	dual, _ := NewDualEncoder(NewMockModelEncoder(64), DefaultTextWeight)
	ctx := context.Background()
	img := testImage(color.RGBA{10, 120, 210, 255})

	imgVec, err := dual.EncodeImage(ctx, img)
	if err != nil {
		t.Fatal(err)
	}
	fused, err := dual.EncodeDual(ctx, img, "")
	if err != nil {
		t.Fatal(err)
	}
	for i := range fused {
		if math.Abs(float64(fused[i]-imgVec[i])) > 1e-6 {
			t.Fatalf("fused[%d] = %g, image[%d] = %g", i, fused[i], i, imgVec[i])
		}
	}
}

// zeroModelEncoder returns all-zero vectors to exercise the degenerate path.
type zeroModelEncoder struct{ dims int }

func (z *zeroModelEncoder) EncodeImage(context.Context, image.Image) ([]float32, error) {
	return make([]float32, z.dims), nil
}
func (z *zeroModelEncoder) EncodeText(context.Context, string) ([]float32, error) {
	return make([]float32, z.dims), nil
}
func (z *zeroModelEncoder) Dimensions() int { return z.dims }
func (z *zeroModelEncoder) Close() error    { return nil }

func TestDualEncoder_ZeroNorm(t *testing.T) {
	dual, _ := NewDualEncoder(&zeroModelEncoder{dims: 8}, DefaultTextWeight)
	ctx := context.Background()
	img := testImage(color.RGBA{0, 0, 0, 255})

	if _, err := dual.EncodeImage(ctx, img); !errors.Is(err, ErrZeroNorm) {
		t.Errorf("EncodeImage: expected ErrZeroNorm, got %v", err)
	}
	if _, err := dual.EncodeDual(ctx, img, ""); !errors.Is(err, ErrZeroNorm) {
		t.Errorf("EncodeDual: expected ErrZeroNorm, got %v", err)
	}
}

func TestDualEncoder_WeightValidation(t *testing.T) {
	if _, err := NewDualEncoder(NewMockModelEncoder(8), -0.1); err == nil {
		t.Error("expected error for negative text weight")
	}
	if _, err := NewDualEncoder(NewMockModelEncoder(8), 1.1); err == nil {
		t.Error("expected error for text weight above 1")
	}
	if _, err := NewDualEncoder(nil, 0.5); err == nil {
		t.Error("expected error for nil model")
	}
	dual, err := NewDualEncoder(NewMockModelEncoder(8), 0.6)
	if err != nil {
		t.Fatal(err)
	}
	imgW, txtW := dual.Weights()
	if math.Abs(imgW+txtW-1) > 1e-12 {
		t.Errorf("weights do not sum to 1: %g + %g", imgW, txtW)
	}
}

func TestMockModelEncoder_Deterministic(t *testing.T) {
	enc := NewMockModelEncoder(32)
	ctx := context.Background()
	a, _ := enc.EncodeText(ctx, "blue shirt")
	b, _ := enc.EncodeText(ctx, "blue shirt")
	c, _ := enc.EncodeText(ctx, "green shirt")
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("same text produced different embeddings")
		}
	}
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts produced identical embeddings")
	}

	img1 := testImage(color.RGBA{255, 0, 0, 255})
	img2 := testImage(color.RGBA{0, 255, 0, 255})
	v1, _ := enc.EncodeImage(ctx, img1)
	v1again, _ := enc.EncodeImage(ctx, img1)
	v2, _ := enc.EncodeImage(ctx, img2)
	for i := range v1 {
		if v1[i] != v1again[i] {
			t.Fatal("same image produced different embeddings")
		}
	}
	same = true
	for i := range v1 {
		if v1[i] != v2[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different images produced identical embeddings")
	}
}
