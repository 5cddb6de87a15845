package app

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/yungbote/studydesk-backend/internal/data/convstore"
	"github.com/yungbote/studydesk-backend/internal/observability"
	"github.com/yungbote/studydesk-backend/internal/platform/gateway"
	"github.com/yungbote/studydesk-backend/internal/platform/logger"
	"github.com/yungbote/studydesk-backend/internal/platform/supabase"
)

type Clients struct {
	Gateway       *gateway.Client
	Conversations convstore.Store
	// Storage is nil when Supabase is not configured.
	Storage *supabase.Storage
}

func wireClients(log *logger.Logger, cfg Config, metrics *observability.Metrics) (Clients, error) {
	log.Info("Wiring clients...")

	gw, err := gateway.New(gateway.Options{
		URL:           cfg.GatewayURL,
		APIKey:        cfg.GatewayAPIKey,
		Model:         cfg.Model,
		Timeout:       cfg.GenerationTimeout,
		StreamTimeout: cfg.StreamTimeout,
		MaxRetries:    cfg.GatewayMaxRetries,
		Logger:        log,
		Metrics:       metrics,
	})
	if err != nil {
		return Clients{}, fmt.Errorf("init gateway client: %w", err)
	}

	// Redis
	var conversations convstore.Store
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		conversations, err = convstore.NewRedisStore(convstore.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.RedisTTL,
		}, log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis conversation store: %w", err)
		}
	} else {
		log.Warn("REDIS_ADDR not set; conversations are kept in memory")
		conversations = convstore.NewMemoryStore()
	}

	// Supabase
	var storage *supabase.Storage
	if strings.TrimSpace(cfg.SupabaseURL) != "" {
		storage, err = supabase.NewStorage(supabase.StorageOptions{
			URL:    cfg.SupabaseURL,
			Key:    cfg.SupabaseKey,
			Bucket: cfg.SupabaseBucket,
		}, log)
		if err != nil {
			_ = conversations.Close()
			return Clients{}, fmt.Errorf("init supabase storage: %w", err)
		}
	} else {
		log.Warn("SUPABASE_URL not set; uploaded files are not stored")
	}

	return Clients{
		Gateway:       gw,
		Conversations: conversations,
		Storage:       storage,
	}, nil
}

func (c *Clients) Close() error {
	if c == nil {
		return nil
	}
	var result error
	if c.Conversations != nil {
		if err := c.Conversations.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close conversation store: %w", err))
		}
	}
	return result
}
