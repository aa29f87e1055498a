package tesseract

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"os/exec"
	"strings"
	"testing"

	"github.com/otiai10/gosseract/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

func ensureTesseractAvailable(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skip("tesseract not installed in PATH")
	}
}

func TestParseLanguages(t *testing.T) {
	out := "List of available languages in \"/usr/share/tesseract-ocr/5/tessdata/\" (3):\nchi_sim\neng\nosd\n"
	langs := ParseLanguages(out)
	if strings.Join(langs, ",") != "chi_sim,eng,osd" {
		t.Fatalf("unexpected languages %v", langs)
	}
}

func TestPickLanguage(t *testing.T) {
	cases := []struct {
		langs []string
		want  string
	}{
		{[]string{"eng", "chi_sim", "osd"}, "chi_sim+eng"},
		{[]string{"chi_sim"}, "chi_sim"},
		{[]string{"eng", "kor"}, "eng"},
		{nil, "eng"},
	}
	for _, tc := range cases {
		if got := PickLanguage(tc.langs); got != tc.want {
			t.Fatalf("PickLanguage(%v) = %q, want %q", tc.langs, got, tc.want)
		}
	}
}

func TestConvertBoxesScalesAndFilters(t *testing.T) {
	boxes := []gosseract.BoundingBox{
		{Box: image.Rect(20, 10, 60, 30), Word: "字幕", Confidence: 87},
		{Box: image.Rect(0, 0, 5, 5), Word: "x", Confidence: -1},
		{Box: image.Rect(0, 0, 5, 5), Word: "  ", Confidence: 90},
	}
	dets := convertBoxes(boxes, 2)
	if len(dets) != 1 {
		t.Fatalf("expected one detection, got %d", len(dets))
	}
	d := dets[0]
	if d.Text != "字幕" || d.Confidence != 0.87 {
		t.Fatalf("unexpected detection %+v", d)
	}
	minX, minY, maxX, maxY := d.Bounds()
	if minX != 10 || minY != 5 || maxX != 30 || maxY != 15 {
		t.Fatalf("expected coordinates scaled back by 2, got %v %v %v %v", minX, minY, maxX, maxY)
	}
}

func TestUpscaleShortCrops(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 16))
	scaled, factor := upscale(img)
	if factor != 3 || scaled.Bounds().Dy() != 48 || scaled.Bounds().Dx() != 300 {
		t.Fatalf("unexpected upscale %v -> %v", factor, scaled.Bounds())
	}
	tall := image.NewRGBA(image.Rect(0, 0, 100, 80))
	if _, f := upscale(tall); f != 1 {
		t.Fatalf("expected tall image untouched, got factor %v", f)
	}
}

func TestUnavailableBinary(t *testing.T) {
	e := New(WithBinary("/nonexistent/tesseract"))
	if e.Available() {
		t.Fatal("expected engine to be unavailable")
	}
	if _, err := e.ReadText(context.Background(), image.NewRGBA(image.Rect(0, 0, 10, 10))); err == nil {
		t.Fatal("expected error from unavailable engine")
	}
}

func TestReadTextRecognizesLatin(t *testing.T) {
	ensureTesseractAvailable(t)

	img := image.NewRGBA(image.Rect(0, 0, 240, 80))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	d := &font.Drawer{Dst: img, Src: image.Black, Face: basicfont.Face7x13, Dot: fixed.P(10, 50)}
	d.DrawString("HELLO WORLD")

	e := New(WithLanguage("eng"))
	dets, err := e.ReadText(context.Background(), img)
	if err != nil {
		t.Fatalf("ReadText: %v", err)
	}
	var words []string
	for _, det := range dets {
		if det.Confidence < 0 || det.Confidence > 1 {
			t.Fatalf("confidence out of range: %v", det.Confidence)
		}
		words = append(words, strings.ToLower(det.Text))
	}
	if !strings.Contains(strings.Join(words, " "), "hello") {
		t.Fatalf("expected hello in %v", words)
	}
}
