package state

import (
	"fmt"
	"testing"
)

// BenchmarkFileTracker_MarkProcessed benchmarks the ledger write performance
func BenchmarkFileTracker_MarkProcessed(b *testing.B) {
	tracker, err := NewFileTracker(b.TempDir(), "SMS", true)
	if err != nil {
		b.Fatal(err)
	}
	defer tracker.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := tracker.MarkProcessed(fmt.Sprintf("hash-%d", i), fmt.Sprintf("msg-%d", i)); err != nil {
			b.Fatal(err)
		}
	}
	b.StopTimer()

	if err := tracker.Close(); err != nil {
		b.Fatal(err)
	}
}

// BenchmarkFileTracker_Load benchmarks loading a ledger of 10000 uploads
func BenchmarkFileTracker_Load(b *testing.B) {
	dir := b.TempDir()

	tracker, err := NewFileTracker(dir, "SMS", true)
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < 10000; i++ {
		if err := tracker.MarkProcessed(fmt.Sprintf("hash-%d", i), fmt.Sprintf("msg-%d", i)); err != nil {
			b.Fatal(err)
		}
	}
	if err := tracker.Close(); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tracker, err := NewFileTracker(dir, "SMS", false)
		if err != nil {
			b.Fatal(err)
		}
		tracker.Close()
	}
}

// BenchmarkMemoryTracker_AlreadyProcessed benchmarks in-memory lookups
func BenchmarkMemoryTracker_AlreadyProcessed(b *testing.B) {
	tracker := NewMemoryTracker()
	for i := 0; i < 1000; i++ {
		_ = tracker.MarkProcessed(fmt.Sprintf("hash-%d", i), fmt.Sprintf("msg-%d", i))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = tracker.AlreadyProcessed(fmt.Sprintf("hash-%d", i%1000))
	}
}
