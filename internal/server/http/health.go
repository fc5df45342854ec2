package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go-backoffice/internal/discovery/etcd"
	"go-backoffice/internal/metrics"
	"go-backoffice/internal/mq/kafka"
	redisrepo "go-backoffice/internal/repository/redis"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// HealthChecker 聚合健康检查（liveness / readiness）。
// 数据库必需；Redis / Kafka / etcd 未配置时记为 disabled，不影响就绪状态。
type HealthChecker struct {
	probes []probe

	cacheMu     sync.Mutex
	cacheResult map[string]interface{}
	cacheCode   int
	cacheExpiry time.Time
	cacheTTL    time.Duration
}

type probe struct {
	name    string
	timeout time.Duration
	gauge   prometheus.Gauge
	// check 为 nil 表示未启用
	check func(ctx context.Context) error
}

type probeResult struct {
	name string
	up   bool
	err  string
	dur  time.Duration
}

func NewHealthChecker(db *gorm.DB, r *redisrepo.Client, p *kafka.Producer, e *etcd.Client) *HealthChecker {
	h := &HealthChecker{cacheTTL: 2 * time.Second}
	dbProbe := probe{name: "db", timeout: 300 * time.Millisecond, gauge: metrics.DBUp}
	if db != nil {
		dbProbe.check = func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	h.probes = append(h.probes, dbProbe)
	redisProbe := probe{name: "redis", timeout: 250 * time.Millisecond, gauge: metrics.RedisUp}
	if r != nil {
		redisProbe.check = r.Ping
	}
	kafkaProbe := probe{name: "kafka", timeout: 250 * time.Millisecond, gauge: metrics.KafkaUp}
	if p != nil {
		kafkaProbe.check = p.Ping
	}
	etcdProbe := probe{name: "etcd", timeout: 250 * time.Millisecond, gauge: metrics.EtcdUp}
	if e != nil {
		etcdProbe.check = e.Ping
	}
	h.probes = append(h.probes, redisProbe, kafkaProbe, etcdProbe)
	return h
}

// Liveness 仅表示进程活着，不依赖外部组件
func (h *HealthChecker) Liveness() map[string]interface{} {
	return map[string]interface{}{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	}
}

// ResetCache /readyz?refresh=1
func (h *HealthChecker) ResetCache() {
	h.cacheMu.Lock()
	h.cacheExpiry = time.Time{}
	h.cacheMu.Unlock()
}

// Readiness 并发检测外部依赖，结果缓存 cacheTTL
func (h *HealthChecker) Readiness(ctx context.Context) (map[string]interface{}, int) {
	h.cacheMu.Lock()
	if time.Now().Before(h.cacheExpiry) && h.cacheResult != nil {
		res, code := h.cacheResult, h.cacheCode
		h.cacheMu.Unlock()
		return res, code
	}
	h.cacheMu.Unlock()

	results := make([]probeResult, len(h.probes))
	var wg sync.WaitGroup
	for i, p := range h.probes {
		if p.check == nil {
			results[i] = probeResult{name: p.name}
			continue
		}
		wg.Add(1)
		go func(i int, p probe) {
			defer wg.Done()
			start := time.Now()
			ctx2, cancel := context.WithTimeout(ctx, p.timeout)
			defer cancel()
			out := probeResult{name: p.name}
			if err := p.check(ctx2); err != nil {
				out.err = err.Error()
			} else {
				out.up = true
			}
			out.dur = time.Since(start)
			metrics.DependencyCheckDuration.WithLabelValues(p.name).Observe(out.dur.Seconds())
			if out.up {
				p.gauge.Set(1)
			} else {
				p.gauge.Set(0)
			}
			results[i] = out
		}(i, p)
	}
	wg.Wait()

	res := map[string]interface{}{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	}
	detail := make([]map[string]interface{}, 0, len(results))
	for i, r := range results {
		enabled := h.probes[i].check != nil
		switch {
		case !enabled:
			res[r.name] = "disabled"
		case r.up:
			res[r.name] = "up"
		default:
			res[r.name] = r.err
			res["status"] = "degraded"
		}
		ms := float64(r.dur.Microseconds()) / 1000.0
		res[r.name+"_duration_ms"] = ms
		detail = append(detail, map[string]interface{}{"dep": r.name, "enabled": enabled, "up": r.up, "error": r.err, "duration_ms": ms})
	}
	res["detail"] = detail
	code := http.StatusOK
	if res["status"] != "ok" {
		code = http.StatusServiceUnavailable
	}

	h.cacheMu.Lock()
	h.cacheResult, h.cacheCode = res, code
	h.cacheExpiry = time.Now().Add(h.cacheTTL)
	h.cacheMu.Unlock()
	return res, code
}
