package monitoring

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// DefaultNamespace is the CloudWatch namespace webhook metrics are published under.
const DefaultNamespace = "EventSub/Webhooks"

// putMetricDataAPI is the subset of the CloudWatch client used here.
type putMetricDataAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

const (
	// queueSize bounds metrics waiting to be sent; beyond it new metrics are dropped.
	queueSize = 256
	// maxBatchSize is the number of datums sent per PutMetricData call.
	maxBatchSize = 20
	// sendTimeout bounds a single PutMetricData call.
	sendTimeout = 2 * time.Second
)

// CloudWatchMonitor publishes webhook metrics to CloudWatch.
// Publishing only enqueues; a background sender batches datums into
// PutMetricData calls so a slow CloudWatch never delays a webhook response.
// In development mode, metrics are logged to stdout instead.
type CloudWatchMonitor struct {
	client    putMetricDataAPI
	namespace string
	isDev     bool
	now       func() time.Time
	queue     chan queued
}

// queued is either a datum to send or a flush marker.
type queued struct {
	datum   types.MetricDatum
	flushed chan struct{}
}

// NewCloudWatchMonitor creates a monitor. Pass isProduction=true to enable real CloudWatch publishing.
func NewCloudWatchMonitor(ctx context.Context, isProduction bool, namespace string) (*CloudWatchMonitor, error) {
	if !isProduction {
		return newMonitor(nil, namespace), nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return newMonitor(cloudwatch.NewFromConfig(cfg), namespace), nil
}

func newMonitor(client putMetricDataAPI, namespace string) *CloudWatchMonitor {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	m := &CloudWatchMonitor{
		client:    client,
		namespace: namespace,
		isDev:     client == nil,
		now:       time.Now,
	}
	if !m.isDev {
		m.queue = make(chan queued, queueSize)
		go m.run()
	}
	return m
}

// PublishWebhookMetric publishes a count of one for the named webhook outcome.
func (m *CloudWatchMonitor) PublishWebhookMetric(ctx context.Context, name string) {
	m.put(ctx, name, nil)
}

// PublishRateLimitMetric publishes a rate limit event metric for endpoint.
func (m *CloudWatchMonitor) PublishRateLimitMetric(ctx context.Context, endpoint string) {
	m.put(ctx, "RateLimitExceeded", []types.Dimension{
		{
			Name:  aws.String("Endpoint"),
			Value: aws.String(endpoint),
		},
	})
}

// Flush waits until every metric published before the call has been sent, or ctx ends.
// Metrics still queued when ctx ends are sent later by the background sender.
func (m *CloudWatchMonitor) Flush(ctx context.Context) error {
	if m.isDev {
		return nil
	}
	done := make(chan struct{})
	select {
	case m.queue <- queued{flushed: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *CloudWatchMonitor) put(_ context.Context, name string, dimensions []types.Dimension) {
	if m.isDev {
		log.Printf("[CLOUDWATCH_DEV] %s/%s +1", m.namespace, name)
		return
	}

	datum := types.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(1.0),
		Unit:       types.StandardUnitCount,
		Timestamp:  aws.Time(m.now()),
		Dimensions: dimensions,
	}
	select {
	case m.queue <- queued{datum: datum}:
	default:
		log.Printf("[CLOUDWATCH_ERROR] Metric queue full, dropping %s", name)
	}
}

// run sends queued datums, batching whatever is already waiting.
func (m *CloudWatchMonitor) run() {
	batch := make([]types.MetricDatum, 0, maxBatchSize)
	for item := range m.queue {
		if item.flushed == nil {
			batch = append(batch, item.datum)
		}
		if len(batch) > 0 && (item.flushed != nil || len(batch) >= maxBatchSize || len(m.queue) == 0) {
			m.send(batch)
			batch = batch[:0]
		}
		if item.flushed != nil {
			close(item.flushed)
		}
	}
}

func (m *CloudWatchMonitor) send(batch []types.MetricDatum) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	data := make([]types.MetricDatum, len(batch))
	copy(data, batch)
	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	})
	if err != nil {
		log.Printf("[CLOUDWATCH_ERROR] Failed to publish %d metrics: %v", len(data), err)
	}
}
