// Package tracking records OpenTelemetry metrics for the resilient client.
package tracking

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "examprep/httpclient"

	// Follows the OTel HTTP client semantic conventions; seconds.
	metricRequestDuration = "http.client.request.duration"

	metricRetries       = "examprep.client.retries"
	metricTokenRefresh  = "examprep.client.token_refreshes"
	metricQueuedWaiters = "examprep.client.refresh_waiters"

	attrMethod     = "http.request.method"
	attrStatusCode = "http.response.status_code"
	attrErrorType  = "error.type"
	attrOutcome    = "outcome"
	attrReason     = "retry.reason"
)

// Refresh outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	meter         metric.Meter
	meterOnce     sync.Once
	meterInitMu   sync.Mutex
	metricsInited bool

	requestDuration metric.Float64Histogram
	retryCounter    metric.Int64Counter
	refreshCounter  metric.Int64Counter
	waiterCounter   metric.Int64Counter
)

// logMetricError logs a metric initialization error to stderr.
func logMetricError(metricName string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize client metric %s: %v\n", metricName, err)
	}
}

func initMeter() {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()

	if meter != nil {
		return
	}

	meter = otel.Meter(meterName)

	var err error

	requestDuration, err = meter.Float64Histogram(
		metricRequestDuration,
		metric.WithDescription("Duration of a single outbound HTTP attempt"),
		metric.WithUnit("s"),
	)
	logMetricError(metricRequestDuration, err)

	retryCounter, err = meter.Int64Counter(
		metricRetries,
		metric.WithDescription("Attempts resent after a transient failure"),
		metric.WithUnit("{retry}"),
	)
	logMetricError(metricRetries, err)

	refreshCounter, err = meter.Int64Counter(
		metricTokenRefresh,
		metric.WithDescription("Session token refreshes triggered by 401 responses"),
		metric.WithUnit("{refresh}"),
	)
	logMetricError(metricTokenRefresh, err)

	waiterCounter, err = meter.Int64Counter(
		metricQueuedWaiters,
		metric.WithDescription("Requests queued behind an in-flight token refresh"),
		metric.WithUnit("{request}"),
	)
	logMetricError(metricQueuedWaiters, err)

	metricsInited = true
}

func ensureMeterInitialized() {
	meterOnce.Do(initMeter)
}

// RecordAttempt records the duration of one attempt. status is 0 when no response
// arrived, in which case errType names the failure.
func RecordAttempt(ctx context.Context, method string, status int, errType string, duration time.Duration) {
	ensureMeterInitialized()
	if requestDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{attribute.String(attrMethod, method)}
	if status > 0 {
		attrs = append(attrs, attribute.Int(attrStatusCode, status))
		if status >= http.StatusBadRequest && errType == "" {
			errType = strconv.Itoa(status)
		}
	}
	if errType != "" {
		attrs = append(attrs, attribute.String(attrErrorType, errType))
	}

	requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordRetry counts a resend caused by reason (the failure type).
func RecordRetry(ctx context.Context, method, reason string) {
	ensureMeterInitialized()
	if retryCounter == nil {
		return
	}
	retryCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrReason, reason),
	))
}

// RecordRefresh counts a completed token refresh.
func RecordRefresh(ctx context.Context, outcome string) {
	ensureMeterInitialized()
	if refreshCounter == nil {
		return
	}
	refreshCounter.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOutcome, outcome)))
}

// RecordQueuedWaiter counts a request that waited on another request's refresh.
func RecordQueuedWaiter(ctx context.Context) {
	ensureMeterInitialized()
	if waiterCounter == nil {
		return
	}
	waiterCounter.Add(ctx, 1)
}

// IsInitialized returns true if client metrics have been initialized.
func IsInitialized() bool {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()
	return metricsInited
}

// ResetForTesting resets the metric state for testing purposes.
func ResetForTesting() {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()

	meter = nil
	requestDuration = nil
	retryCounter = nil
	refreshCounter = nil
	waiterCounter = nil
	metricsInited = false
	meterOnce = sync.Once{}
}
