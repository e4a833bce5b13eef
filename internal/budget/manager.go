// Package budget tracks approximate content-size usage against named
// pools with soft/hard limits, classifies aging content into retention
// tiers, and provides a minimal file-backed content cache.
package budget

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentflow/internal/config"
)

const instrumentationName = "github.com/fyrsmithlabs/agentflow/internal/budget"

// Pool status thresholds: WARNING at 80% of the soft limit, CRITICAL at
// 95% of the hard limit.
const (
	warningFraction  = 0.8
	criticalFraction = 0.95
)

// PoolStatus is the derived health of one pool.
type PoolStatus string

const (
	StatusOK       PoolStatus = "OK"
	StatusWarning  PoolStatus = "WARNING"
	StatusCritical PoolStatus = "CRITICAL"
)

// PoolBudget is one pool's usage report. Used is computed on demand by
// summing estimates over the pool's current contents; it is never cached.
type PoolBudget struct {
	Pool      string     `json:"pool"`
	Used      int        `json:"used"`
	SoftLimit int        `json:"soft_limit"`
	HardLimit int        `json:"hard_limit"`
	Status    PoolStatus `json:"status"`
}

// Manager is the context budget manager. Pool contents live as files
// under <root>/pools/<name>/.
type Manager struct {
	root   string
	pools  map[string]config.PoolLimits
	logger *zap.Logger

	tracer      trace.Tracer
	meter       metric.Meter
	scanCounter metric.Int64Counter
	cacheHits   metric.Int64Counter
	cacheMisses metric.Int64Counter
}

// NewManager creates a budget manager from config.
func NewManager(cfg *config.Config, logger *zap.Logger) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manager{
		root:   cfg.Storage.Root,
		pools:  cfg.Pools,
		logger: logger,
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}
	m.initMetrics()
	return m, nil
}

func (m *Manager) initMetrics() {
	var err error

	m.scanCounter, err = m.meter.Int64Counter(
		"agentflow.budget.scans_total",
		metric.WithDescription("Total number of corpus scans"),
		metric.WithUnit("{scan}"),
	)
	if err != nil {
		m.logger.Warn("failed to create scan counter", zap.Error(err))
	}

	m.cacheHits, err = m.meter.Int64Counter(
		"agentflow.cache.hits_total",
		metric.WithDescription("Cache lookups that found an entry"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		m.logger.Warn("failed to create cache hit counter", zap.Error(err))
	}

	m.cacheMisses, err = m.meter.Int64Counter(
		"agentflow.cache.misses_total",
		metric.WithDescription("Cache lookups that found nothing"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		m.logger.Warn("failed to create cache miss counter", zap.Error(err))
	}
}

// PoolDir returns the content directory backing one pool.
func (m *Manager) PoolDir(name string) string {
	return filepath.Join(m.root, "pools", name)
}

// Budget computes one pool's usage at query time.
func (m *Manager) Budget(ctx context.Context, pool string) (*PoolBudget, error) {
	_, span := m.tracer.Start(ctx, "budget.query")
	defer span.End()
	span.SetAttributes(attribute.String("pool", pool))

	limits, ok := m.pools[pool]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownPool, pool, config.KnownPools)
	}

	used, err := m.poolUsage(pool)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return &PoolBudget{
		Pool:      pool,
		Used:      used,
		SoftLimit: limits.SoftLimit,
		HardLimit: limits.HardLimit,
		Status:    deriveStatus(used, limits),
	}, nil
}

// BudgetAll reports every known pool, in the fixed pool order.
func (m *Manager) BudgetAll(ctx context.Context) ([]*PoolBudget, error) {
	out := make([]*PoolBudget, 0, len(config.KnownPools))
	for _, name := range config.KnownPools {
		if _, ok := m.pools[name]; !ok {
			continue
		}
		b, err := m.Budget(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// poolUsage sums estimates over the pool directory's files. A missing
// directory means an empty pool, not an error.
func (m *Manager) poolUsage(pool string) (int, error) {
	total := 0
	err := walkFiles(m.PoolDir(pool), func(path string, info fs.FileInfo) error {
		n, err := EstimateFile(path)
		if err != nil {
			return err
		}
		total += n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

func deriveStatus(used int, limits config.PoolLimits) PoolStatus {
	if float64(used) >= criticalFraction*float64(limits.HardLimit) {
		return StatusCritical
	}
	if float64(used) >= warningFraction*float64(limits.SoftLimit) {
		return StatusWarning
	}
	return StatusOK
}

// TierBucket aggregates one tier's share of a scan.
type TierBucket struct {
	Count  int `json:"count"`
	Tokens int `json:"tokens"`
}

// ScanReport summarizes a content corpus by retention tier.
type ScanReport struct {
	Scope   string                `json:"scope"`
	Items   int                   `json:"items"`
	Tiers   map[string]TierBucket `json:"tiers"`
	Scanned time.Time             `json:"scanned_at"`
}

// datePrefix matches a leading YYYY-MM-DD in an item's filename, the
// learnings corpus naming convention. Items without one are dated by
// file modification time.
var datePrefix = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})`)

// Scan walks a content source, classifies each dated item into a tier
// and reports counts and estimated sizes per tier. A missing source
// directory is an expected steady state for new projects and reports
// zero items.
func (m *Manager) Scan(ctx context.Context, scope string) (*ScanReport, error) {
	ctx, span := m.tracer.Start(ctx, "budget.scan")
	defer span.End()
	span.SetAttributes(attribute.String("scope", scope))

	dir := scope
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(m.root, scope)
	}

	report := &ScanReport{
		Scope: scope,
		Tiers: map[string]TierBucket{
			"tier1": {},
			"tier2": {},
			"tier3": {},
		},
		Scanned: time.Now().UTC(),
	}

	now := time.Now()
	err := walkFiles(dir, func(path string, info fs.FileInfo) error {
		var tierInfo *TierInfo
		if match := datePrefix.FindString(filepath.Base(path)); match != "" {
			ti, terr := TierAt(match, now)
			if terr == nil {
				tierInfo = ti
			}
		}
		if tierInfo == nil {
			tierInfo = classifyAge(int(now.Sub(info.ModTime()).Hours() / 24))
		}

		tokens, eerr := EstimateFile(path)
		if eerr != nil {
			return eerr
		}

		bucket := report.Tiers[tierInfo.Tier]
		bucket.Count++
		bucket.Tokens += tokens
		report.Tiers[tierInfo.Tier] = bucket
		report.Items++
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if m.scanCounter != nil {
		m.scanCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.Int("items", report.Items),
		))
	}
	m.logger.Info("scanned corpus",
		zap.String("scope", scope),
		zap.Int("items", report.Items),
	)
	return report, nil
}

// walkFiles visits every regular file under dir. A missing dir is a
// no-op.
func walkFiles(dir string, fn func(path string, info fs.FileInfo) error) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return fn(path, info)
	})
}
