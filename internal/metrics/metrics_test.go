package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/listings", "200"))
	RecordAPIRequest("GET", "/api/listings", 200, 10*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/listings", "200"))

	if after-before != 1 {
		t.Errorf("expected counter to increase by 1, got %v", after-before)
	}
}

func TestRecordAward(t *testing.T) {
	before := testutil.ToFloat64(PointsAwarded.WithLabelValues("submission"))
	beforeMilestone := testutil.ToFloat64(MilestonesCrossed.WithLabelValues("50"))

	RecordAward("submission", 50, []int{50})

	if got := testutil.ToFloat64(PointsAwarded.WithLabelValues("submission")) - before; got != 50 {
		t.Errorf("expected 50 points recorded, got %v", got)
	}
	if got := testutil.ToFloat64(MilestonesCrossed.WithLabelValues("50")) - beforeMilestone; got != 1 {
		t.Errorf("expected 1 milestone recorded, got %v", got)
	}
}

func TestRecordEvent(t *testing.T) {
	beforeOK := testutil.ToFloat64(EventsConsumed.WithLabelValues("t", "ok"))
	beforeErr := testutil.ToFloat64(EventsConsumed.WithLabelValues("t", "error"))

	RecordEvent("t", nil)
	RecordEvent("t", errors.New("boom"))

	if testutil.ToFloat64(EventsConsumed.WithLabelValues("t", "ok"))-beforeOK != 1 {
		t.Error("expected ok counter to increase")
	}
	if testutil.ToFloat64(EventsConsumed.WithLabelValues("t", "error"))-beforeErr != 1 {
		t.Error("expected error counter to increase")
	}
}
