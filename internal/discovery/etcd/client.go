package etcd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go-backoffice/internal/logging"
	"go-backoffice/internal/metrics"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

const defaultPrefix = "/services/backoffice"

type Config struct {
	Endpoints []string
	TTL       int
	Prefix    string
}

// Instance 注册到 etcd 的实例描述，JSON 存为 value
type Instance struct {
	ID          string `json:"instance_id"`
	Env         string `json:"env"`
	Version     string `json:"version"`
	IP          string `json:"ip"`
	Port        string `json:"port"`
	Addr        string `json:"addr"`
	StartupUnix int64  `json:"startup_unix"`
}

// Key prefix/env/version/ip:port，同一实例重启后 key 不变
func (i Instance) Key(prefix string) string {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return fmt.Sprintf("%s/%s/%s/%s:%s", strings.TrimRight(prefix, "/"), i.Env, i.Version, i.IP, i.Port)
}

var ErrNotRegistered = errors.New("etcd: instance not registered")

type Client struct {
	cli    *clientv3.Client
	logger *logging.Logger
	ttl    int64
	prefix string

	// 续约 goroutine 生命周期，Close 时取消
	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	key   string
	val   string
	lease clientv3.LeaseID
}

// New 未配置 endpoints 时返回 nil，不注册也不参与就绪检查
func New(cfg Config, l *logging.Logger) (*Client, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, nil
	}
	cli, err := clientv3.New(clientv3.Config{Endpoints: cfg.Endpoints, DialTimeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}
	if l == nil {
		l = logging.NewNop()
	}
	ttl := int64(cfg.TTL)
	if ttl <= 0 {
		ttl = 10
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{cli: cli, logger: l, ttl: ttl, prefix: prefix, ctx: ctx, cancel: cancel}, nil
}

// Register 写入带租约的实例 key 并后台续约，返回 key。
// ctx 只约束首次 Grant/Put；续约跟随 Client 生命周期
func (c *Client) Register(ctx context.Context, inst Instance) (string, error) {
	val, err := json.Marshal(inst)
	if err != nil {
		return "", err
	}
	key := inst.Key(c.prefix)
	lease, err := c.grantAndPut(ctx, key, string(val))
	if err != nil {
		return "", err
	}
	ch, err := c.cli.KeepAlive(c.ctx, lease)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.key, c.val, c.lease = key, string(val), lease
	c.mu.Unlock()
	go c.watchKeepAlive(ch)
	return key, nil
}

func (c *Client) grantAndPut(ctx context.Context, key, val string) (clientv3.LeaseID, error) {
	lease, err := c.cli.Grant(ctx, c.ttl)
	if err != nil {
		return 0, err
	}
	if _, err := c.cli.Put(ctx, key, val, clientv3.WithLease(lease.ID)); err != nil {
		return 0, err
	}
	return lease.ID, nil
}

// watchKeepAlive 续约通道关闭说明租约丢失（网络分区或 etcd 重启），按 TTL 间隔重新注册
func (c *Client) watchKeepAlive(ch <-chan *clientv3.LeaseKeepAliveResponse) {
	for {
		for range ch {
		}
		if c.ctx.Err() != nil {
			return
		}
		metrics.EtcdUp.Set(0)
		c.mu.Lock()
		key, val := c.key, c.val
		c.mu.Unlock()
		c.logger.Warn("etcd_keepalive_lost", zap.String("key", key))
		for {
			select {
			case <-c.ctx.Done():
				return
			case <-time.After(time.Duration(c.ttl) * time.Second):
			}
			ctx, cancel := context.WithTimeout(c.ctx, 5*time.Second)
			lease, err := c.grantAndPut(ctx, key, val)
			cancel()
			if err != nil {
				c.logger.Warn("etcd_reregister_failed", zap.String("key", key), zap.Error(err))
				continue
			}
			next, err := c.cli.KeepAlive(c.ctx, lease)
			if err != nil {
				c.logger.Warn("etcd_reregister_failed", zap.String("key", key), zap.Error(err))
				continue
			}
			c.mu.Lock()
			c.lease = lease
			c.mu.Unlock()
			metrics.EtcdUp.Set(1)
			c.logger.Info("etcd_reregistered", zap.String("key", key))
			ch = next
			break
		}
	}
}

// Deregister 删除 key 并撤销租约，之后不再续约
func (c *Client) Deregister(ctx context.Context) error {
	c.mu.Lock()
	key, lease := c.key, c.lease
	c.key, c.lease = "", 0
	c.mu.Unlock()
	if key == "" {
		return ErrNotRegistered
	}
	c.cancel()
	var errs []error
	if _, err := c.cli.Delete(ctx, key); err != nil {
		errs = append(errs, err)
	}
	if lease != 0 {
		if _, err := c.cli.Revoke(ctx, lease); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Registered 当前注册的 key，未注册为空
func (c *Client) Registered() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key
}

// Ping 读一个不存在的 key 验证连通
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.cli.Get(ctx, c.prefix+"/health")
	return err
}

func (c *Client) Close() error {
	c.cancel()
	return c.cli.Close()
}
