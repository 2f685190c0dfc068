package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// MetricsRecorder publishes pipeline outcome counters to CloudWatch.
type MetricsRecorder struct {
	client      CloudWatchAPI
	namespace   string
	environment string
}

// NewMetricsRecorder returns a recorder writing to namespace with an
// Environment dimension on every datum.
func NewMetricsRecorder(client CloudWatchAPI, namespace, environment string) *MetricsRecorder {
	return &MetricsRecorder{
		client:      client,
		namespace:   namespace,
		environment: environment,
	}
}

// Count records value (a count) for the metric name.
func (m *MetricsRecorder) Count(ctx context.Context, name string, value float64) error {
	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: &m.namespace,
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: awsString(name),
				Unit:       cwtypes.StandardUnitCount,
				Value:      &value,
				Dimensions: []cwtypes.Dimension{
					{Name: awsString("Environment"), Value: awsString(m.environment)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("put metric data %s: %w", name, err)
	}
	return nil
}
