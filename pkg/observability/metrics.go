package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metrics publishes custom metrics to CloudWatch. Publishing is best-effort:
// a metrics failure must never fail the operation being measured, so all
// errors are swallowed by the caller-provided sink.
type Metrics struct {
	namespace string
	client    *cloudwatch.Client
	enabled   bool
}

// NewMetrics creates a metrics publisher for the given namespace
func NewMetrics(namespace string, client *cloudwatch.Client) *Metrics {
	return &Metrics{
		namespace: namespace,
		client:    client,
		enabled:   client != nil,
	}
}

// CountMutation records one tree mutation of the given kind
func (m *Metrics) CountMutation(ctx context.Context, kind string) error {
	return m.put(ctx, "TreeMutations", 1, types.StandardUnitCount, map[string]string{"Kind": kind})
}

// RecordSaveLatency records the duration of a persistence save
func (m *Metrics) RecordSaveLatency(ctx context.Context, d time.Duration) error {
	return m.put(ctx, "SaveLatency", float64(d.Milliseconds()), types.StandardUnitMilliseconds, nil)
}

// CountSaveFailure records a failed persistence save
func (m *Metrics) CountSaveFailure(ctx context.Context) error {
	return m.put(ctx, "SaveFailures", 1, types.StandardUnitCount, nil)
}

// CountUndo records an undo of a move
func (m *Metrics) CountUndo(ctx context.Context) error {
	return m.put(ctx, "UndoOperations", 1, types.StandardUnitCount, nil)
}

func (m *Metrics) put(ctx context.Context, name string, value float64, unit types.StandardUnit, dims map[string]string) error {
	if !m.enabled {
		return nil
	}

	datum := types.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(time.Now()),
	}
	for k, v := range dims {
		datum.Dimensions = append(datum.Dimensions, types.Dimension{
			Name:  aws.String(k),
			Value: aws.String(v),
		})
	}

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: []types.MetricDatum{datum},
	})
	return err
}
