// Package benchmark provides end-to-end performance benchmarks for respd.
//
// Run benchmarks with:
//
//	go test -bench=. -benchmem ./internal/tests/benchmark/...
//
// Compare the storage engines at growing key counts:
//
//	go test -bench=BenchmarkStore -benchmem -benchtime=5s ./internal/tests/benchmark/...
//
// Compare results:
//
//	benchstat old.txt new.txt
package benchmark
