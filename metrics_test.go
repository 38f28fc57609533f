package flashlog

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMetricsRecordFlush(t *testing.T) {
	m := NewMetrics()

	m.RecordFlush(4096, 0.001)
	m.RecordFlush(8192, 0.002)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "flashlog_batches_written_total 2") {
		t.Errorf("expected batches_written_total=2 in metrics output, got:\n%s", body)
	}
	if !strings.Contains(body, "flashlog_bytes_written_total 12288") {
		t.Errorf("expected bytes_written_total=12288 in metrics output, got:\n%s", body)
	}
}

func TestMetricsTargetBatchSizeGauge(t *testing.T) {
	m := NewMetrics()
	m.SetTargetBatchSize(4096)
	m.SetTargetBatchSize(8192)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	if !strings.Contains(rec.Body.String(), "flashlog_target_batch_size_bytes 8192") {
		t.Errorf("expected final gauge value 8192, got:\n%s", rec.Body.String())
	}
}

func TestMetricsWriteErrorCounter(t *testing.T) {
	m := NewMetrics()
	m.RecordWriteError()
	m.RecordWriteError()
	m.RecordWriteError()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	if !strings.Contains(rec.Body.String(), "flashlog_write_errors_total 3") {
		t.Errorf("expected write_errors_total=3, got:\n%s", rec.Body.String())
	}
}

func TestMetricsObserverDelegates(t *testing.T) {
	m := NewMetrics()
	obs := NewMetricsObserver(m)

	obs.ObserveFlush(1024, 0.0005)
	obs.ObserveWriteError()
	obs.ObserveTargetBatchSize(16384)
	obs.ObserveIngestQueueLen(5)
	obs.ObserveCompletionQueueLen(1)
	obs.ObserveSignalDropped()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)
	body := rec.Body.String()

	for _, want := range []string{
		"flashlog_batches_written_total 1",
		"flashlog_target_batch_size_bytes 16384",
		"flashlog_ingest_queue_length 5",
		"flashlog_completion_queue_length 1",
		"flashlog_signals_dropped_total 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected metrics output to contain %q, got:\n%s", want, body)
		}
	}
}

func TestMultipleLoggersIndependentRegistries(t *testing.T) {
	// Two Metrics instances must not collide over metric names: each
	// owns a private registry rather than registering globally.
	m1 := NewMetrics()
	m2 := NewMetrics()

	m1.RecordFlush(100, 0.001)
	m2.RecordFlush(200, 0.002)

	rec1 := httptest.NewRecorder()
	m1.Handler().ServeHTTP(rec1, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec1.Body.String(), "flashlog_bytes_written_total 100") {
		t.Errorf("logger 1 metrics leaked or missing: %s", rec1.Body.String())
	}

	rec2 := httptest.NewRecorder()
	m2.Handler().ServeHTTP(rec2, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec2.Body.String(), "flashlog_bytes_written_total 200") {
		t.Errorf("logger 2 metrics leaked or missing: %s", rec2.Body.String())
	}
}
