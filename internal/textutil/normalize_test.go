package textutil

import "testing"

func TestNormalizeOCRTextFoldsWidthAndSpaces(t *testing.T) {
	got := NormalizeOCRText("  ＡＢＣ１２３\t 你好\u0000  世界 ")
	if got != "ABC123 你好 世界" {
		t.Fatalf("unexpected normalization %q", got)
	}
	if NormalizeOCRText("") != "" {
		t.Fatal("expected empty output for empty input")
	}
}

func TestContainsHan(t *testing.T) {
	cases := map[string]bool{
		"你好":         true,
		"hello 世":     true,
		"hello":       false,
		"こんにちは":      false,
		"한국어":         false,
		"１２３":         false,
		"一":      true,
		"鿿":      true,
		"㐀":      false,
		"":            false,
	}
	for text, want := range cases {
		if got := ContainsHan(text); got != want {
			t.Fatalf("ContainsHan(%q) = %v, want %v", text, got, want)
		}
	}
	if CountHan("字幕 subtitle 测试") != 4 {
		t.Fatalf("expected 4 han runes, got %d", CountHan("字幕 subtitle 测试"))
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("这是一段很长的字幕文本", 4); got != "这是一段" {
		t.Fatalf("unexpected preview %q", got)
	}
	if got := Preview("短", 10); got != "短" {
		t.Fatalf("unexpected preview %q", got)
	}
}
