package health

import (
	"context"
	"fmt"
	"net/http"
	"testing"
)

func BenchmarkAggregator_CheckAll(b *testing.B) {
	for _, n := range []int{1, 10, 50} {
		b.Run(fmt.Sprintf("checkers=%d", n), func(b *testing.B) {
			agg := NewAggregator()
			for i := range n {
				_ = agg.Register(fixed(fmt.Sprintf("c%d", i), Healthy("")))
			}
			ctx := context.Background()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				agg.CheckAll(ctx)
			}
		})
	}
}

func BenchmarkMemoryChecker_Check(b *testing.B) {
	m := NewMemoryChecker(MemoryCheckerConfig{})
	ctx := context.Background()
	for i := 0; i < b.N; i++ {
		m.Check(ctx)
	}
}

func BenchmarkDetailedHandler(b *testing.B) {
	router := newRouter(map[string]Result{"a": Healthy(""), "b": Degraded("")})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		serve(router, http.MethodGet, "/health")
	}
}
