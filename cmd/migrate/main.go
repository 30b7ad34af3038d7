package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"github.com/example/mavi-boutique/internal/boutique"
	"github.com/example/mavi-boutique/internal/config"
	"github.com/example/mavi-boutique/internal/infrastructure/backend"
	"github.com/example/mavi-boutique/internal/infrastructure/store"
	"github.com/example/mavi-boutique/internal/logger"
	"go.uber.org/zap"
)

func main() {
	schema := flag.Bool("schema", false, "create the state table (postgres and sqlite backends)")
	importPath := flag.String("import", "", "import a state export (JSON) into the configured backend")
	force := flag.Bool("force", false, "replace an existing state on import")
	dynamoTables := flag.Bool("dynamo-tables", false, "create the DynamoDB state and event journal tables")
	flag.Parse()

	config.LoadDotEnv()
	if err := logger.Init(os.Getenv("APP_ENV") == "development"); err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.L().Named("migrate")

	if !*schema && !*dynamoTables && *importPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadBase(log)
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx := context.Background()

	if *dynamoTables {
		client, err := backend.NewDynamoClient(ctx)
		if err != nil {
			log.Fatal("failed to create dynamodb client", zap.Error(err))
		}
		if err := store.EnsureTables(ctx, client,
			store.StateTableInput(cfg.DynamoStateTable),
			store.JournalTableInput(cfg.DynamoEventsTable),
		); err != nil {
			log.Fatal("failed to create dynamodb tables", zap.Error(err))
		}
		log.Info("dynamodb tables ready",
			zap.String("state", cfg.DynamoStateTable),
			zap.String("events", cfg.DynamoEventsTable),
		)
		if !*schema && *importPath == "" {
			return
		}
	}

	// Opening a SQL backend creates its table.
	stateStore, closeState, err := backend.OpenStateStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open state backend", zap.Error(err))
	}
	defer closeState()

	if *schema {
		log.Info("schema ready", zap.String("backend", cfg.StateBackend))
	}

	if *importPath == "" {
		return
	}

	data, err := os.ReadFile(*importPath)
	if err != nil {
		log.Fatal("failed to read export", zap.String("path", *importPath), zap.Error(err))
	}

	state, err := boutique.Import(ctx, stateStore, cfg.StateKey, data, *force)
	if errors.Is(err, boutique.ErrStateExists) {
		log.Fatal("state already exists, rerun with -force to replace it", zap.String("key", cfg.StateKey))
	}
	if err != nil {
		log.Fatal("import failed", zap.Error(err))
	}

	log.Info("state imported",
		zap.String("key", cfg.StateKey),
		zap.Int("products", len(state.Products)),
		zap.Int("orders", len(state.Orders)),
		zap.Int("promos", len(state.Promos)),
	)
}
