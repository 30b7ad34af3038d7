// Package backend builds the state store and event forwarders selected by
// configuration.
package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/example/mavi-boutique/internal/config"
	"github.com/example/mavi-boutique/internal/infrastructure/kafka"
	"github.com/example/mavi-boutique/internal/infrastructure/store"
	"go.uber.org/zap"
)

// CloseFunc releases whatever a constructor opened.
type CloseFunc func() error

func noop() error { return nil }

// OpenStateStore connects to the configured state backend. SQL backends
// get their table created if missing.
func OpenStateStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (store.StateStore, CloseFunc, error) {
	if log == nil {
		log = zap.NewNop()
	}

	switch cfg.StateBackend {
	case config.BackendMemory:
		log.Warn("using in-memory state, nothing survives a restart")
		return store.NewMemoryStateStore(), noop, nil

	case config.BackendFile:
		s, err := store.NewFileStateStore(cfg.StateDir)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using file state", zap.String("dir", cfg.StateDir))
		return s, noop, nil

	case config.BackendPostgres:
		db, err := store.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		s := store.NewSQLStateStore(db, store.PostgresDialect)
		if err := s.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Info("using postgres state")
		return s, db.Close, nil

	case config.BackendSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		db, err := store.ConnectSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		s := store.NewSQLStateStore(db, store.SQLiteDialect)
		if err := s.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Info("using sqlite state", zap.String("path", cfg.SQLitePath))
		return s, db.Close, nil

	case config.BackendRedis:
		rdb, err := store.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using redis state", zap.String("addr", cfg.RedisAddr))
		return store.NewRedisStateStore(rdb, cfg.RedisPrefix), rdb.Close, nil

	case config.BackendDynamoDB:
		client, err := NewDynamoClient(ctx)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using dynamodb state", zap.String("table", cfg.DynamoStateTable))
		return store.NewDynamoStateStore(client, cfg.DynamoStateTable), noop, nil

	default:
		return nil, nil, fmt.Errorf("unknown state backend %q", cfg.StateBackend)
	}
}

// Forwarders builds the configured external event forwarder, if any.
func Forwarders(ctx context.Context, cfg *config.Config, log *zap.Logger) ([]store.Forwarder, CloseFunc, error) {
	if log == nil {
		log = zap.NewNop()
	}

	switch cfg.EventSink {
	case config.SinkNone:
		return nil, noop, nil

	case config.SinkKafka:
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, log.Named("kafka"))
		log.Info("forwarding events to kafka", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
		return []store.Forwarder{producer}, producer.Close, nil

	case config.SinkDynamoDB:
		client, err := NewDynamoClient(ctx)
		if err != nil {
			return nil, nil, err
		}
		log.Info("journaling events to dynamodb", zap.String("table", cfg.DynamoEventsTable))
		return []store.Forwarder{store.NewDynamoEventJournal(client, cfg.DynamoEventsTable)}, noop, nil

	default:
		return nil, nil, fmt.Errorf("unknown event sink %q", cfg.EventSink)
	}
}

// NewDynamoClient uses the default AWS credential chain and region.
func NewDynamoClient(ctx context.Context) (*dynamodb.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg), nil
}
