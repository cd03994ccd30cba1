package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/aretw0/zonerules/pkg/domain"
	"github.com/aretw0/zonerules/pkg/ports"
	"github.com/aretw0/zonerules/pkg/rules"
	"github.com/aretw0/zonerules/pkg/schema"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key the provider touches.
const DefaultPrefix = "zonerules:"

// Provider implements ports.RulesProvider over Redis.
//
// Layout, relative to the prefix:
//
//	zone:<region>@<version>   JSON rules document
//	versions:<region>         set of versions
//	regions                   set of regions
//	changes                   pub/sub channel, one message per write
type Provider struct {
	client  *backend.Client
	prefix  string
	lockTTL time.Duration
	locker  ports.Locker
	logger  *slog.Logger
}

type Option func(*Provider)

// WithPrefix sets the key prefix, e.g. "zonerules:tzdb:" to keep groups apart.
func WithPrefix(prefix string) Option {
	return func(p *Provider) {
		p.prefix = prefix
	}
}

// WithLockTTL bounds how long a crashed writer can hold a region.
func WithLockTTL(ttl time.Duration) Option {
	return func(p *Provider) {
		p.lockTTL = ttl
	}
}

// WithLocker replaces the Redis lock guarding writers of a region.
func WithLocker(l ports.Locker) Option {
	return func(p *Provider) {
		p.locker = l
	}
}

// WithLogger sets the logger used by Watch.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// New creates a new Redis provider with options.
func New(address, password string, db int, opts ...Option) *Provider {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis provider from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Provider {
	p := &Provider{
		client:  client,
		prefix:  DefaultPrefix,
		lockTTL: 10 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.locker == nil {
		p.locker = NewLocker(client, p.prefix)
	}
	return p
}

func (p *Provider) docKey(region, version string) string {
	return p.prefix + "zone:" + schema.DocumentID(region, version)
}

func (p *Provider) versionsKey(region string) string {
	return p.prefix + "versions:" + region
}

func (p *Provider) regionsKey() string {
	return p.prefix + "regions"
}

func (p *Provider) changesChannel() string {
	return p.prefix + "changes"
}

// Publish validates doc, stores it and notifies watchers.
func (p *Provider) Publish(ctx context.Context, doc schema.ZoneDocument) error {
	if _, err := doc.Build(); err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal zone document: %w", err)
	}

	unlock, err := p.locker.Lock(ctx, doc.Region, p.lockTTL)
	if err != nil {
		return err
	}
	defer func() { _ = unlock(context.WithoutCancel(ctx)) }()

	id := schema.DocumentID(doc.Region, doc.Version)
	pipe := p.client.TxPipeline()
	pipe.Set(ctx, p.docKey(doc.Region, doc.Version), data, 0)
	pipe.SAdd(ctx, p.versionsKey(doc.Region), doc.Version)
	pipe.SAdd(ctx, p.regionsKey(), doc.Region)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish %s to redis: %w", id, err)
	}
	return p.client.Publish(ctx, p.changesChannel(), id).Err()
}

// Delete removes region at version, dropping the region once no version is left.
func (p *Provider) Delete(ctx context.Context, region, version string) error {
	unlock, err := p.locker.Lock(ctx, region, p.lockTTL)
	if err != nil {
		return err
	}
	defer func() { _ = unlock(context.WithoutCancel(ctx)) }()

	pipe := p.client.TxPipeline()
	pipe.Del(ctx, p.docKey(region, version))
	pipe.SRem(ctx, p.versionsKey(region), version)
	remaining := pipe.SCard(ctx, p.versionsKey(region))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}

	if remaining.Val() == 0 {
		if err := p.client.SRem(ctx, p.regionsKey(), region).Err(); err != nil {
			return fmt.Errorf("failed to delete from redis: %w", err)
		}
	}
	return p.client.Publish(ctx, p.changesChannel(), schema.DocumentID(region, version)).Err()
}

// Document returns the stored document of region at version.
func (p *Provider) Document(ctx context.Context, region, version string) (schema.ZoneDocument, error) {
	val, err := p.client.Get(ctx, p.docKey(region, version)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return schema.ZoneDocument{}, fmt.Errorf("%w: %s", domain.ErrUnknownZone, schema.DocumentID(region, version))
		}
		return schema.ZoneDocument{}, fmt.Errorf("failed to get from redis: %w", err)
	}

	doc, err := schema.Unmarshal("redis.json", val)
	if err != nil {
		return schema.ZoneDocument{}, err
	}
	return doc, nil
}

// Rules builds the engine of region at version.
func (p *Provider) Rules(ctx context.Context, region, version string) (*rules.Rules, error) {
	doc, err := p.Document(ctx, region, version)
	if err != nil {
		return nil, err
	}
	return doc.Build()
}

// Versions lists the versions of region, newest first.
func (p *Provider) Versions(ctx context.Context, region string) ([]string, error) {
	versions, err := p.client.SMembers(ctx, p.versionsKey(region)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: region %q", domain.ErrUnknownZone, region)
	}
	return domain.SortVersions(versions), nil
}

// LatestVersion returns the newest version of region.
func (p *Provider) LatestVersion(ctx context.Context, region string) (string, error) {
	versions, err := p.Versions(ctx, region)
	if err != nil {
		return "", err
	}
	return versions[0], nil
}

// Regions lists every region with at least one version.
func (p *Provider) Regions(ctx context.Context) ([]string, error) {
	regions, err := p.client.SMembers(ctx, p.regionsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list regions: %w", err)
	}
	sort.Strings(regions)
	return regions, nil
}

// Watch implements ports.Watchable by subscribing to the changes channel.
// The subscription is confirmed before Watch returns.
func (p *Provider) Watch(ctx context.Context) (<-chan struct{}, error) {
	sub := p.client.Subscribe(ctx, p.changesChannel())
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", p.changesChannel(), err)
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				p.logger.Debug("zone document changed", "zone", msg.Payload)
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()
	return ch, nil
}

// Close closes the redis client.
func (p *Provider) Close() error {
	return p.client.Close()
}

var (
	_ ports.RulesProvider = (*Provider)(nil)
	_ ports.Watchable     = (*Provider)(nil)
)
