package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/hyperjump/chizu/internal/embedding"
	"github.com/hyperjump/chizu/internal/lexical"
	"github.com/hyperjump/chizu/internal/vector"
)

func BenchmarkFlatSearch(b *testing.B) {
	const dims = 384
	idx, _ := vector.NewFlat(dims)
	enc := embedding.NewMockEncoder(dims)
	ctx := context.Background()

	n := 1000
	ids := make([]string, n)
	texts := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = fmt.Sprintf("doc-%d", i)
		texts[i] = fmt.Sprintf("document number %d about topic %d", i, i%10)
	}
	vecs, _ := enc.Encode(ctx, texts)
	_ = idx.Build(ids, vecs, nil)

	query, _ := enc.Encode(ctx, []string{"topic 3 documents"})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(query[0], 10, 0)
	}
}

func BenchmarkLexicalSearch(b *testing.B) {
	idx, err := lexical.New()
	if err != nil {
		b.Fatal(err)
	}
	defer idx.Close()

	n := 1000
	ids := make([]string, n)
	texts := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = fmt.Sprintf("doc-%d", i)
		texts[i] = fmt.Sprintf("support ticket %d about printer paper jam variant %d", i, i%10)
	}
	if err := idx.Build(ids, texts); err != nil {
		b.Fatal(err)
	}

	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(ctx, "printer paper jam", 10)
	}
}
