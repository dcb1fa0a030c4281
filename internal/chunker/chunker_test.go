package chunker

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/hyperjump/chizu/internal/models"
)

func TestChunkShortDocumentStaysWhole(t *testing.T) {
	c := New(Options{TargetSize: 512, Overlap: 128, MinSize: 50})
	text := strings.Repeat("a", 600) // within 1.2 * 512
	chunks := c.Chunk("doc1", text)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].ID != "doc1_chunk_0" {
		t.Errorf("chunk ID should be doc1_chunk_0, got %s", chunks[0].ID)
	}
	if chunks[0].Text != text {
		t.Error("short document should be returned whole")
	}
}

func TestChunkLongDocuments(t *testing.T) {
	c := New(Options{TargetSize: 512, Overlap: 128, MinSize: 50})
	texts := []string{
		strings.Repeat("alpha bravo ", 80),  // 960 chars
		strings.Repeat("charlie delta ", 60), // 840 chars
		strings.Repeat("echo foxtrot ", 100), // 1300 chars
	}
	for d, text := range texts {
		if len(text) <= 600 {
			t.Fatalf("test text %d too short", d)
		}
		chunks := c.Chunk("doc", text)
		if len(chunks) < 2 {
			t.Fatalf("doc %d: expected >=2 chunks, got %d", d, len(chunks))
		}
		for i, ch := range chunks {
			if len(ch.Text) < 50 {
				t.Errorf("doc %d chunk %d shorter than minSize: %d", d, i, len(ch.Text))
			}
			if ch.Position != i {
				t.Errorf("doc %d chunk %d has position %d", d, i, ch.Position)
			}
		}
		// Adjacent chunks share roughly the overlap region; trimming can
		// shave a few characters off either end.
		for i := 1; i < len(chunks); i++ {
			prev, cur := chunks[i-1].Text, chunks[i].Text
			tail := prev[len(prev)-100:]
			if !strings.Contains(cur, tail[:50]) {
				t.Errorf("doc %d chunks %d/%d do not overlap", d, i-1, i)
			}
		}
	}
}

func TestChunkMultibyteText(t *testing.T) {
	c := New(Options{TargetSize: 512, Overlap: 128, MinSize: 50})
	text := strings.Repeat("日本語のテキストです。", 100) // 1000 runes, 3 bytes each
	chunks := c.Chunk("doc1", text)
	if len(chunks) < 2 {
		t.Fatalf("expected >=2 chunks, got %d", len(chunks))
	}
	for _, ch := range chunks {
		if !utf8.ValidString(ch.Text) {
			t.Errorf("chunk %s contains invalid UTF-8", ch.ID)
		}
		n := utf8.RuneCountInString(ch.Text)
		if n < 50 || n > 512 {
			t.Errorf("chunk %s has %d runes, want within [50,512]", ch.ID, n)
		}
	}
	// Window sizes are in runes, so 1000 runes with step 384 give 3 windows.
	if len(chunks) != 3 {
		t.Errorf("expected 3 chunks, got %d", len(chunks))
	}
}

func TestChunkIdempotent(t *testing.T) {
	c := New(Options{TargetSize: 128, Overlap: 32, MinSize: 20})
	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 20)
	a := c.Chunk("d", text)
	b := c.Chunk("d", text)
	if len(a) != len(b) {
		t.Fatalf("chunk counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Text != b[i].Text {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestChunkEmpty(t *testing.T) {
	c := New(Options{})
	if chunks := c.Chunk("d", "   \n\t  "); chunks != nil {
		t.Errorf("whitespace-only text should yield no chunks, got %d", len(chunks))
	}
}

func TestChunkAll(t *testing.T) {
	c := New(Options{TargetSize: 128, Overlap: 32, MinSize: 20, BatchSize: 2})
	docs := []*models.Document{
		{ID: "a", Text: strings.Repeat("alpha ", 60)},
		{ID: "b", Text: "tiny"},
		{ID: "c", Text: strings.Repeat("charlie ", 60)},
	}
	result, err := c.ChunkAll(context.Background(), docs)
	if err != nil {
		t.Fatalf("ChunkAll error: %v", err)
	}
	if len(result.Chunks) == 0 {
		t.Fatal("expected chunks")
	}
	// Chunk order follows document order.
	lastParent := ""
	seen := map[string]bool{}
	for _, ch := range result.Chunks {
		if ch.ParentID != lastParent {
			if seen[ch.ParentID] {
				t.Errorf("chunks of %s are not contiguous", ch.ParentID)
			}
			seen[ch.ParentID] = true
			lastParent = ch.ParentID
		}
		if result.ChunkToParent[ch.ID] != ch.ParentID {
			t.Errorf("chunk map mismatch for %s", ch.ID)
		}
	}
	for _, doc := range docs {
		if !seen[doc.ID] {
			t.Errorf("document %s has no chunks", doc.ID)
		}
	}
}

func TestChunkAllCancelled(t *testing.T) {
	c := New(Options{BatchSize: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	docs := []*models.Document{{ID: "a", Text: "hello world"}}
	if _, err := c.ChunkAll(ctx, docs); err == nil {
		t.Error("cancelled context should return error")
	}
}
