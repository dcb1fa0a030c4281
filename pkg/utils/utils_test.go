package utils

import (
	"math"
	"testing"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(true)
	if err != nil {
		t.Fatalf("NewLogger(true) error: %v", err)
	}
	if logger == nil {
		t.Fatal("NewLogger(true) returned nil logger")
	}
	_ = logger.Sync()
}

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
}

func TestTruncateTokens(t *testing.T) {
	if got := TruncateTokens("a b c d", 2); got != "a b" {
		t.Errorf("got %q", got)
	}
	if got := TruncateTokens("a b", 5); got != "a b" {
		t.Errorf("got %q", got)
	}
	if got := TruncateTokens("a b", 0); got != "a b" {
		t.Errorf("maxTokens 0 should return unchanged, got %q", got)
	}
}

func TestNormalizeL2(t *testing.T) {
	v := []float32{3, 4}
	NormalizeL2(v)
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if math.Abs(sum-1.0) > 1e-6 {
		t.Errorf("norm should be 1, got %f", sum)
	}

	zero := []float32{0, 0}
	NormalizeL2(zero)
	if zero[0] != 0 || zero[1] != 0 {
		t.Error("zero vector should be unchanged")
	}
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{1, 0}
	if s := CosineSimilarity(a, b); math.Abs(s-1.0) > 1e-6 {
		t.Errorf("identical vectors should have similarity 1, got %f", s)
	}
	c := []float32{0, 1}
	if s := CosineSimilarity(a, c); s != 0 {
		t.Errorf("orthogonal vectors should have similarity 0, got %f", s)
	}
	if s := CosineSimilarity(a, []float32{1}); s != 0 {
		t.Errorf("mismatched lengths should return 0, got %f", s)
	}
}

func TestContentHash(t *testing.T) {
	if ContentHash("abc") != ContentHash("abc") {
		t.Error("same text should yield same hash")
	}
	if ContentHash("abc") == ContentHash("abd") {
		t.Error("different text should yield different hash")
	}
}
