package state

import (
	"fmt"
	"testing"

	"github.com/gxo-labs/statekit/internal/util"
	sk "github.com/gxo-labs/statekit/pkg/statekit/v1"
)

// Compares the two read access modes of a store on a nested value.

var benchmarkResult interface{}

func createNestedMap(depth, width int) map[string]interface{} {
	if depth <= 0 {
		return map[string]interface{}{"leaf_key": "leaf_value"}
	}
	m := make(map[string]interface{}, width)
	for i := 0; i < width; i++ {
		m[fmt.Sprintf("key_d%d_w%d", depth, i)] = createNestedMap(depth-1, width)
	}
	return m
}

var largeNestedMap = createNestedMap(3, 10)

func newBenchHolder(b *testing.B) *Holder {
	h, err := New([]sk.Field{sk.F("data", largeNestedMap)})
	if err != nil {
		b.Fatal(err)
	}
	return h
}

func BenchmarkGet_UnsafeDirectReference(b *testing.B) {
	h := newBenchHolder(b)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		benchmarkResult, _ = h.Snapshot().Get("data")
	}
}

func BenchmarkGet_DeepCopy(b *testing.B) {
	h := newBenchHolder(b)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		v, _ := h.Snapshot().Get("data")
		benchmarkResult = util.DeepCopy(v)
	}
}

func BenchmarkReplace(b *testing.B) {
	h := newBenchHolder(b)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = h.Replace("data", i)
	}
}
