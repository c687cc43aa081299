// Package metrics provides Prometheus metrics for the risk assessment service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Bucket layouts for value histograms.
var (
	candidateBuckets  = prometheus.LinearBuckets(0, 5, 8)       //nolint:gochecknoglobals // 0..35
	confidenceBuckets = prometheus.LinearBuckets(0, 0.1, 11)    //nolint:gochecknoglobals // 0..1
	latencyBucketsMs  = prometheus.ExponentialBuckets(5, 2, 14) //nolint:gochecknoglobals // 5ms..40s
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Pipeline metrics
	assessmentsTotal     *prometheus.CounterVec
	assessmentLatency    prometheus.Histogram
	stageLatency         *prometheus.HistogramVec
	degradations         *prometheus.CounterVec
	hallucinations       prometheus.Counter
	candidateCount       prometheus.Histogram
	candidateTruncations prometheus.Counter
	keywordConfidence    prometheus.Histogram
	confidenceOutOfRange prometheus.Counter
	joinMisses           prometheus.Counter

	// Collaborator metrics
	llmRequests        *prometheus.CounterVec
	llmLatency         *prometheus.HistogramVec
	llmRateLimitWait   prometheus.Histogram
	repositoryRequests *prometheus.CounterVec
	repositoryLatency  *prometheus.HistogramVec
	breakerState       *prometheus.GaugeVec
	dependencyUp       *prometheus.GaugeVec

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec
	errorRateByType     *prometheus.CounterVec

	// Batch queue and worker metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec
	workerActive       prometheus.Gauge
	jobsProcessed      *prometheus.CounterVec
	jobLatency         prometheus.Histogram

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "riskengine",
		subsystem:        "assessment",
		histogramBuckets: latencyBucketsMs,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	m.assessmentsTotal = m.counterVec("assessments_total",
		"Total number of assessments by outcome (assembled, padded, degraded)", "outcome")
	m.assessmentLatency = m.histogram("assessment_latency_milliseconds",
		"End-to-end assessment latency in milliseconds", m.histogramBuckets)
	m.stageLatency = m.histogramVec("stage_latency_milliseconds",
		"Pipeline stage latency in milliseconds", m.histogramBuckets, "stage")
	m.degradations = m.counterVec("degradations_total",
		"Assessments abandoned by failing stage and error kind", "stage", "kind")
	m.hallucinations = m.counter("hallucinated_references_total",
		"Ranking replies rejected for naming a risk outside the candidate set")
	m.candidateCount = m.histogram("candidate_risks",
		"Number of candidate risks passed to ranking", candidateBuckets)
	m.candidateTruncations = m.counter("candidate_truncations_total",
		"Candidate sets truncated to the configured maximum")
	m.keywordConfidence = m.histogram("keyword_confidence",
		"Confidence reported by keyword extraction", confidenceBuckets)
	m.confidenceOutOfRange = m.counter("keyword_confidence_out_of_range_total",
		"Keyword confidence values outside [0,1]")
	m.joinMisses = m.counter("join_misses_total",
		"Ranked risks that could not be joined back to a candidate")

	m.llmRequests = m.counterVec("llm_requests_total",
		"Generation service requests by operation and status", "operation", "status")
	m.llmLatency = m.histogramVec("llm_latency_milliseconds",
		"Generation service latency in milliseconds", m.histogramBuckets, "operation")
	m.llmRateLimitWait = m.histogram("llm_rate_limit_wait_milliseconds",
		"Time spent waiting on the generation rate limiter", m.histogramBuckets)
	m.repositoryRequests = m.counterVec("repository_requests_total",
		"Risk repository requests by operation and status", "operation", "status")
	m.repositoryLatency = m.histogramVec("repository_latency_milliseconds",
		"Risk repository latency in milliseconds", m.histogramBuckets, "operation")
	m.breakerState = m.gaugeVec("circuit_breaker_state",
		"Circuit breaker state (0: closed, 1: half-open, 2: open)", "name")
	m.dependencyUp = m.gaugeVec("dependency_up",
		"Last health probe result per dependency (1: healthy)", "dependency")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", m.histogramBuckets, "endpoint", "method", "status_code")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total",
		"HTTP errors by endpoint, method and error type", "endpoint", "method", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total",
		"Errors by type and severity", "error_type", "severity")

	m.queueSize = m.gauge("queue_size", "Current number of queued batch jobs")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the batch job queue")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Batch jobs accepted by the queue")
	m.queueDequeued = m.counter("queue_dequeued_total", "Batch jobs handed to workers")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total",
		"Batch jobs rejected by the queue by reason", "reason")
	m.workerActive = m.gauge("workers_active", "Number of running batch workers")
	m.jobsProcessed = m.counterVec("jobs_processed_total",
		"Batch jobs processed by outcome", "outcome")
	m.jobLatency = m.histogram("job_latency_milliseconds",
		"Batch job latency in milliseconds", m.histogramBuckets)

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds",
		"Average GC pause time in milliseconds", prometheus.DefBuckets)
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

// Pipeline Metrics Functions.

// RecordAssessment counts a finished assessment by outcome.
func RecordAssessment(outcome string) {
	globalManager.assessmentsTotal.WithLabelValues(outcome).Inc()
}

// RecordAssessmentLatency records end-to-end latency.
func RecordAssessmentLatency(latencyMs float64) {
	globalManager.assessmentLatency.Observe(latencyMs)
}

// RecordStageLatency records one stage's latency.
func RecordStageLatency(stage string, latencyMs float64) {
	globalManager.stageLatency.WithLabelValues(stage).Observe(latencyMs)
}

// RecordDegradation counts an abandoned run.
func RecordDegradation(stage, kind string) {
	globalManager.degradations.WithLabelValues(stage, kind).Inc()
}

// RecordHallucination counts a rejected hallucinated reference.
func RecordHallucination() {
	globalManager.hallucinations.Inc()
}

// RecordCandidateCount records the size of the ranked candidate set.
func RecordCandidateCount(n int) {
	globalManager.candidateCount.Observe(float64(n))
}

// RecordCandidateTruncation counts a truncated candidate set.
func RecordCandidateTruncation() {
	globalManager.candidateTruncations.Inc()
}

// RecordKeywordConfidence records the extraction confidence.
func RecordKeywordConfidence(confidence float64) {
	globalManager.keywordConfidence.Observe(confidence)
}

// RecordConfidenceOutOfRange counts a confidence outside [0,1].
func RecordConfidenceOutOfRange() {
	globalManager.confidenceOutOfRange.Inc()
}

// RecordJoinMiss counts a ranked id that could not be joined.
func RecordJoinMiss() {
	globalManager.joinMisses.Inc()
}

// Collaborator Metrics Functions.

// RecordLLMRequest counts a generation request.
func RecordLLMRequest(operation, status string) {
	globalManager.llmRequests.WithLabelValues(operation, status).Inc()
}

// RecordLLMLatency records generation latency.
func RecordLLMLatency(operation string, latencyMs float64) {
	globalManager.llmLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordLLMRateLimitWait records time spent waiting for a token.
func RecordLLMRateLimitWait(waitMs float64) {
	globalManager.llmRateLimitWait.Observe(waitMs)
}

// RecordRepositoryRequest counts a repository request.
func RecordRepositoryRequest(operation, status string) {
	globalManager.repositoryRequests.WithLabelValues(operation, status).Inc()
}

// RecordRepositoryLatency records repository latency.
func RecordRepositoryLatency(operation string, latencyMs float64) {
	globalManager.repositoryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// UpdateBreakerState sets the circuit breaker state gauge.
func UpdateBreakerState(name string, state int) {
	globalManager.breakerState.WithLabelValues(name).Set(float64(state))
}

// UpdateDependencyHealth records the last health probe of a dependency.
func UpdateDependencyHealth(dependency string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1
	}
	globalManager.dependencyUp.WithLabelValues(dependency).Set(v)
}

// HTTP Metrics Functions.

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// Queue and Worker Metrics Functions.

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError counts a rejected job by reason.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActive.Set(float64(count))
}

// RecordJobProcessed counts a processed job by outcome.
func RecordJobProcessed(outcome string) {
	globalManager.jobsProcessed.WithLabelValues(outcome).Inc()
}

// RecordJobLatency records batch job latency.
func RecordJobLatency(latencyMs float64) {
	globalManager.jobLatency.Observe(latencyMs)
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
