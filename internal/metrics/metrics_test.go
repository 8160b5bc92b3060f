package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("GET", "/api/v1/records", "200", 0.123)

	counter := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/records", "200"))
	if counter != 1.0 {
		t.Errorf("Expected counter to be 1.0, got %f", counter)
	}
}

func TestRecordRegionMutation(t *testing.T) {
	RegionMutationsTotal.Reset()

	RecordRegionMutation("insert", nil)
	RecordRegionMutation("insert", nil)
	RecordRegionMutation("remove", errors.New("not found"))

	inserts := testutil.ToFloat64(RegionMutationsTotal.WithLabelValues("insert", "success"))
	if inserts != 2.0 {
		t.Errorf("Expected insert counter to be 2.0, got %f", inserts)
	}

	failed := testutil.ToFloat64(RegionMutationsTotal.WithLabelValues("remove", "error"))
	if failed != 1.0 {
		t.Errorf("Expected remove error counter to be 1.0, got %f", failed)
	}
}

func TestRecordSeek(t *testing.T) {
	SeeksTotal.Reset()

	RecordSeek(true, "progress")
	RecordSeek(false, "seeking")
	RecordSeek(false, "seeking")

	applied := testutil.ToFloat64(SeeksTotal.WithLabelValues("applied", "progress"))
	if applied != 1.0 {
		t.Errorf("Expected applied seeks to be 1.0, got %f", applied)
	}

	skipped := testutil.ToFloat64(SeeksTotal.WithLabelValues("skipped", "seeking"))
	if skipped != 2.0 {
		t.Errorf("Expected skipped seeks to be 2.0, got %f", skipped)
	}
}

func TestRecordDebouncedRecompute(t *testing.T) {
	DebouncedRecomputesTotal.Reset()

	RecordDebouncedRecompute("resize")

	if v := testutil.ToFloat64(DebouncedRecomputesTotal.WithLabelValues("resize")); v != 1.0 {
		t.Errorf("Expected resize recomputes to be 1.0, got %f", v)
	}
}

func TestRecordAutoplayUnlock(t *testing.T) {
	AutoplayUnlocksTotal.Reset()

	RecordAutoplayUnlock("unlocked")
	RecordAutoplayUnlock("denied")

	if v := testutil.ToFloat64(AutoplayUnlocksTotal.WithLabelValues("denied")); v != 1.0 {
		t.Errorf("Expected denied unlocks to be 1.0, got %f", v)
	}
}

func TestRecordMuteToggle(t *testing.T) {
	MuteTogglesTotal.Reset()

	RecordMuteToggle(true)
	RecordMuteToggle(false)
	RecordMuteToggle(false)

	if v := testutil.ToFloat64(MuteTogglesTotal.WithLabelValues("false")); v != 2.0 {
		t.Errorf("Expected unmute toggles to be 2.0, got %f", v)
	}
}

func TestRecordActiveRegionChange(t *testing.T) {
	ActiveRegionChangesTotal.Reset()

	RecordActiveRegionChange("caption")

	if v := testutil.ToFloat64(ActiveRegionChangesTotal.WithLabelValues("caption")); v != 1.0 {
		t.Errorf("Expected caption changes to be 1.0, got %f", v)
	}
}

func TestRecordEmbedPublished(t *testing.T) {
	EmbedsPublishedTotal.Reset()
	EmbedPublishDuration.Reset()

	RecordEmbedPublished("karaoke", "success", 0.2)

	if v := testutil.ToFloat64(EmbedsPublishedTotal.WithLabelValues("karaoke", "success")); v != 1.0 {
		t.Errorf("Expected published counter to be 1.0, got %f", v)
	}
}

func TestSetQueueDepth(t *testing.T) {
	SetQueueDepth("record.saved", 7)
	SetQueueDepth("record.saved", 3)

	if v := testutil.ToFloat64(QueueDepth.WithLabelValues("record.saved")); v != 3.0 {
		t.Errorf("Expected queue depth to be 3.0, got %f", v)
	}
}

func TestRecordStorageOperation(t *testing.T) {
	StorageOperationsTotal.Reset()
	StorageBytesTransferred.Reset()

	RecordStorageOperation("upload", "success", 1.234, 2048)

	counter := testutil.ToFloat64(StorageOperationsTotal.WithLabelValues("upload", "success"))
	if counter != 1.0 {
		t.Errorf("Expected storage operation counter to be 1.0, got %f", counter)
	}

	bytes := testutil.ToFloat64(StorageBytesTransferred.WithLabelValues("upload"))
	if bytes != 2048.0 {
		t.Errorf("Expected bytes transferred to be 2048.0, got %f", bytes)
	}
}

func TestRecordDatabaseOperation(t *testing.T) {
	DatabaseOperationsTotal.Reset()

	RecordDatabaseOperation("select", "success", 0.05)
	RecordDatabaseOperation("insert", "error", 0.02)

	success := testutil.ToFloat64(DatabaseOperationsTotal.WithLabelValues("select", "success"))
	if success != 1.0 {
		t.Errorf("Expected select success counter to be 1.0, got %f", success)
	}

	failed := testutil.ToFloat64(DatabaseOperationsTotal.WithLabelValues("insert", "error"))
	if failed != 1.0 {
		t.Errorf("Expected insert error counter to be 1.0, got %f", failed)
	}
}

func TestRecordCacheAccess(t *testing.T) {
	CacheHitsTotal.Reset()
	CacheMissesTotal.Reset()

	RecordCacheAccess("record", true)
	RecordCacheAccess("record", false)
	RecordCacheAccess("record", true)

	if v := testutil.ToFloat64(CacheHitsTotal.WithLabelValues("record")); v != 2.0 {
		t.Errorf("Expected cache hits to be 2.0, got %f", v)
	}
	if v := testutil.ToFloat64(CacheMissesTotal.WithLabelValues("record")); v != 1.0 {
		t.Errorf("Expected cache misses to be 1.0, got %f", v)
	}
}

func TestRecordError(t *testing.T) {
	ErrorsTotal.Reset()

	RecordError("playback", "autoplay")

	if v := testutil.ToFloat64(ErrorsTotal.WithLabelValues("playback", "autoplay")); v != 1.0 {
		t.Errorf("Expected error counter to be 1.0, got %f", v)
	}
}
