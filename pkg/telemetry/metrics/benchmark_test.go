package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func BenchmarkRecordAdmission(b *testing.B) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())
	am := c.Admission()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		am.RecordAdmission(OutcomeAdmitted)
	}
}

func BenchmarkObserveEvaluator(b *testing.B) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())
	am := c.Admission()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		am.ObserveEvaluator(OutcomeAdmitted, time.Millisecond)
	}
}

func BenchmarkRecordCacheLookup(b *testing.B) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())
	cm := c.Cache()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			cm.RecordLookup(CacheHit)
		}
	})
}
