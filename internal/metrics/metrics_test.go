package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveDelivery(t *testing.T) {
	ok := DeliveriesTotal.WithLabelValues("simulated", ResultSuccess)
	failed := DeliveriesTotal.WithLabelValues("live", ResultFailure)
	beforeOK := testutil.ToFloat64(ok)
	beforeFailed := testutil.ToFloat64(failed)

	ObserveDelivery("simulated", nil)
	ObserveDelivery("live", errors.New("connection refused"))

	assert.Equal(t, beforeOK+1, testutil.ToFloat64(ok))
	assert.Equal(t, beforeFailed+1, testutil.ToFloat64(failed))
}

func TestObserveSubmission(t *testing.T) {
	counter := SubmissionsTotal.WithLabelValues(OutcomeInvalid)
	before := testutil.ToFloat64(counter)

	ObserveSubmission(OutcomeInvalid, time.Now())

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
