package reportmetrics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/prometheus/prompb"
	"github.com/smallbiznis/loobook/internal/config"
	obstracing "github.com/smallbiznis/loobook/internal/observability/tracing"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/protoadapt"
)

const (
	exporterRemoteWrite = "remote_write"
	exporterPushgateway = "pushgateway"
	defaultPushTimeout  = 5 * time.Second

	// Only loobook_* families leave the process; runtime metrics stay on
	// the /metrics scrape.
	reportFamilyPrefix = "loobook_"
)

// Pusher ships report metrics to an external Prometheus endpoint.
type Pusher interface {
	Push(ctx context.Context, gatherer prometheus.Gatherer) error
}

// NewPusher builds a pusher from cfg.Metrics. Disabled or unusable settings
// yield nil and a warning; callers treat a nil Pusher as "do not push".
func NewPusher(cfg config.Config, logger *zap.Logger) Pusher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Metrics.Enabled {
		return nil
	}
	pusher, err := buildPusher(cfg)
	if err != nil {
		logger.Warn("report metrics push disabled",
			zap.String("exporter", cfg.Metrics.Exporter),
			zap.Error(err),
		)
		return nil
	}
	return pusher
}

func buildPusher(cfg config.Config) (Pusher, error) {
	endpoint := strings.TrimSpace(cfg.Metrics.Endpoint)
	if endpoint == "" {
		return nil, errors.New("metrics push endpoint is required")
	}
	labels := map[string]string{
		"service":     strings.TrimSpace(cfg.AppName),
		"environment": strings.TrimSpace(cfg.Environment),
	}

	exporter := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(cfg.Metrics.Exporter)), "prometheus_")
	switch exporter {
	case exporterRemoteWrite:
		if _, err := url.ParseRequestURI(endpoint); err != nil {
			return nil, fmt.Errorf("invalid metrics push endpoint: %w", err)
		}
		return NewRemoteWritePusher(endpoint, cfg.Metrics.AuthToken, labels), nil
	case exporterPushgateway:
		job := strings.TrimSpace(cfg.Metrics.Job)
		if job == "" {
			job = cfg.AppName
		}
		delete(labels, "service")
		return NewPushgatewayPusher(endpoint, job, labels), nil
	default:
		return nil, fmt.Errorf("unsupported metrics exporter %q", exporter)
	}
}

// reportFamilies gathers only the loobook_* families of gatherer.
func reportFamilies(gatherer prometheus.Gatherer) prometheus.Gatherer {
	return prometheus.GathererFunc(func() ([]*dto.MetricFamily, error) {
		families, err := gatherer.Gather()
		if err != nil {
			return nil, err
		}
		kept := families[:0]
		for _, family := range families {
			if strings.HasPrefix(family.GetName(), reportFamilyPrefix) {
				kept = append(kept, family)
			}
		}
		return kept, nil
	})
}

// RemoteWritePusher sends report metrics to a Prometheus remote_write
// endpoint. External labels are attached to every series.
type RemoteWritePusher struct {
	endpoint       string
	authToken      string
	externalLabels map[string]string
	httpClient     *http.Client
}

func NewRemoteWritePusher(endpoint, authToken string, externalLabels map[string]string) *RemoteWritePusher {
	return &RemoteWritePusher{
		endpoint:       endpoint,
		authToken:      strings.TrimSpace(authToken),
		externalLabels: externalLabels,
		httpClient: obstracing.WrapHTTPClient(&http.Client{
			Timeout: defaultPushTimeout,
		}),
	}
}

func (p *RemoteWritePusher) Push(ctx context.Context, gatherer prometheus.Gatherer) error {
	if p == nil || gatherer == nil {
		return nil
	}

	families, err := reportFamilies(gatherer).Gather()
	if err != nil {
		return err
	}
	series := buildRemoteWriteSeries(families, p.externalLabels, time.Now().UnixMilli())
	if len(series) == 0 {
		return nil
	}

	payload, err := proto.Marshal(protoadapt.MessageV2Of(&prompb.WriteRequest{Timeseries: series}))
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(snappy.Encode(nil, payload)))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/x-protobuf")
	httpReq.Header.Set("Content-Encoding", "snappy")
	httpReq.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")
	if p.authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.authToken)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("remote write returned %s", resp.Status)
	}
	return nil
}

// PushgatewayPusher replaces the report metric group of job on a
// Pushgateway.
type PushgatewayPusher struct {
	endpoint string
	job      string
	grouping map[string]string
}

func NewPushgatewayPusher(endpoint, job string, grouping map[string]string) *PushgatewayPusher {
	return &PushgatewayPusher{
		endpoint: strings.TrimSpace(endpoint),
		job:      strings.TrimSpace(job),
		grouping: grouping,
	}
}

func (p *PushgatewayPusher) Push(ctx context.Context, gatherer prometheus.Gatherer) error {
	if p == nil || gatherer == nil {
		return nil
	}
	if p.endpoint == "" || p.job == "" {
		return errors.New("pushgateway endpoint and job are required")
	}

	pusher := push.New(p.endpoint, p.job).Gatherer(reportFamilies(gatherer))
	for _, key := range sortedKeys(p.grouping) {
		if value := strings.TrimSpace(p.grouping[key]); value != "" {
			pusher = pusher.Grouping(key, value)
		}
	}
	return pusher.PushContext(ctx)
}

// buildRemoteWriteSeries flattens counters and gauges into one series each
// and histograms into their _count and _sum series.
func buildRemoteWriteSeries(families []*dto.MetricFamily, external map[string]string, timestampMs int64) []prompb.TimeSeries {
	var series []prompb.TimeSeries
	add := func(name string, metric *dto.Metric, value float64) {
		labels := []prompb.Label{{Name: "__name__", Value: name}}
		for _, label := range metric.GetLabel() {
			labels = append(labels, prompb.Label{Name: label.GetName(), Value: label.GetValue()})
		}
		for _, key := range sortedKeys(external) {
			if value := external[key]; value != "" && !hasLabel(labels, key) {
				labels = append(labels, prompb.Label{Name: key, Value: value})
			}
		}
		sort.Slice(labels, func(i, j int) bool { return labels[i].Name < labels[j].Name })
		series = append(series, prompb.TimeSeries{
			Labels:  labels,
			Samples: []prompb.Sample{{Value: value, Timestamp: timestampMs}},
		})
	}

	for _, family := range families {
		name := family.GetName()
		for _, metric := range family.GetMetric() {
			switch family.GetType() {
			case dto.MetricType_COUNTER:
				add(name, metric, metric.GetCounter().GetValue())
			case dto.MetricType_GAUGE:
				add(name, metric, metric.GetGauge().GetValue())
			case dto.MetricType_HISTOGRAM:
				add(name+"_count", metric, float64(metric.GetHistogram().GetSampleCount()))
				add(name+"_sum", metric, metric.GetHistogram().GetSampleSum())
			}
		}
	}
	return series
}

func hasLabel(labels []prompb.Label, name string) bool {
	for _, label := range labels {
		if label.Name == name {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}
