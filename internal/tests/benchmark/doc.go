// Package benchmark provides performance benchmarks for Pedis.
//
// Run benchmarks with:
//
//	go test -bench=. -benchmem ./internal/tests/benchmark/...
//
// Run one backend only:
//
//	go test -bench='BenchmarkStore.*/sharded' -benchmem -benchtime=10s ./internal/tests/benchmark/...
//
// Compare results:
//
//	benchstat old.txt new.txt
package benchmark
