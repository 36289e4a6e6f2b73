package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	transactions      metric.Int64Counter
	payouts           metric.Int64Counter
	processorFailures metric.Int64Counter
	approvals         metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "fieldpay"
	}
	meter := provider.Meter(name)

	transactions, err := meter.Int64Counter("fieldpay_payment_transactions_total")
	if err != nil {
		return nil, err
	}
	payouts, err := meter.Int64Counter("fieldpay_worker_payouts_total")
	if err != nil {
		return nil, err
	}
	processorFailures, err := meter.Int64Counter("fieldpay_processor_failures_total")
	if err != nil {
		return nil, err
	}
	approvals, err := meter.Int64Counter("fieldpay_approval_transitions_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		transactions:      transactions,
		payouts:           payouts,
		processorFailures: processorFailures,
		approvals:         approvals,
	}, nil
}

// RecordTransaction increments payment transaction counts.
func (m *Metrics) RecordTransaction(ctx context.Context, transactionType, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("transaction_type", strings.TrimSpace(transactionType)),
		attribute.String("status", strings.TrimSpace(status)),
	)
	m.transactions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPayout increments worker payout counts.
func (m *Metrics) RecordPayout(ctx context.Context, preference string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("preference", strings.TrimSpace(preference)))
	m.payouts.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordProcessorFailure increments processor failure counts.
func (m *Metrics) RecordProcessorFailure(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("operation", strings.TrimSpace(operation)))
	m.processorFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordApprovalTransition increments workflow transition counts.
func (m *Metrics) RecordApprovalTransition(ctx context.Context, transition string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("transition", strings.TrimSpace(transition)))
	m.approvals.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"company_id":       {},
	"endpoint":         {},
	"status":           {},
	"status_code":      {},
	"transaction_type": {},
	"preference":       {},
	"operation":        {},
	"transition":       {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
