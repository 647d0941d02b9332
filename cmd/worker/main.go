package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"markethub-be/internal/config"
	"markethub-be/internal/db"
	"markethub-be/internal/events"
	"markethub-be/internal/kafka"
	"markethub-be/internal/logger"
	"markethub-be/internal/lowstock"
	"markethub-be/internal/redisx"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	eventsTopic   = "markethub.events"
	consumerGroup = "markethub-worker"
	serviceName   = "markethub-worker"
)

func main() {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := db.InitDB(cfg)
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redisx.New(cfg.RedisAddr)
		defer rdb.Close()
	}

	var publisher events.Publisher = events.Nop{}
	var producer *kafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = kafka.NewProducer(cfg.KafkaBrokers, eventsTopic, 256)
		producer.Start(ctx)
		publisher = kafka.NewPublisher(producer)
	}

	alertRepo := lowstock.NewRepository(database)
	checker := lowstock.NewChecker(alertRepo, publisher)

	go runSweeper(ctx, checker, cfg.LowStockSweepInterval)

	if len(cfg.KafkaBrokers) > 0 {
		consumer := kafka.NewConsumer(cfg.KafkaBrokers, consumerGroup, eventsTopic, 4)
		logger.L().Info("worker consuming events", zap.String("topic", eventsTopic))
		if err := consumer.Start(ctx, handleEvent(rdb, checker)); err != nil {
			logger.L().Fatal("consumer failed", zap.Error(err))
		}
	} else {
		logger.L().Info("no kafka brokers configured, running sweep loop only")
		<-ctx.Done()
	}

	if producer != nil {
		producer.WaitClosed()
	}
}

// runSweeper triggers the low-stock sweep on a fixed interval until
// shutdown.
func runSweeper(ctx context.Context, checker lowstock.Checker, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := checker.Sweep(ctx)
			if err != nil {
				logger.L().Error("low stock sweep failed", zap.Error(err))
				continue
			}
			logger.L().Info("low stock sweep completed",
				zap.Int("scanned", result.Scanned),
				zap.Int("opened", result.Opened),
				zap.Int("resolved", result.Resolved),
			)
		}
	}
}

// handleEvent processes one envelope from the bus. Redis dedup makes
// redelivered messages no-ops.
func handleEvent(rdb *redis.Client, checker lowstock.Checker) kafka.Handler {
	return func(ctx context.Context, m kafkago.Message) error {
		var env events.Envelope
		if err := kafka.UnmarshalEnvelope(m.Value, &env); err != nil {
			logger.L().Warn("skipping malformed event", zap.Error(err))
			return nil
		}

		if rdb != nil {
			fresh, err := redisx.MarkProcessed(ctx, rdb, serviceName, env.EventID)
			if err != nil {
				return err
			}
			if !fresh {
				return nil
			}
		}

		switch env.EventType {
		case events.EventOrderConfirmed:
			payload, err := events.UnwrapPayload[events.OrderConfirmedPayload](env.Payload)
			if err != nil {
				return err
			}
			cacheOrderStatus(ctx, rdb, payload.OrderID, "processing")
			logger.L().Info("order confirmed",
				zap.Int64("order_id", payload.OrderID),
				zap.String("order_number", payload.OrderNumber),
			)
			// Confirmation just consumed stock; check thresholds now
			// instead of waiting for the next tick.
			if _, err := checker.Sweep(ctx); err != nil {
				return err
			}

		case events.EventOrderCancelled:
			payload, err := events.UnwrapPayload[events.OrderCancelledPayload](env.Payload)
			if err != nil {
				return err
			}
			cacheOrderStatus(ctx, rdb, payload.OrderID, "cancelled")
			logger.L().Info("order cancelled",
				zap.Int64("order_id", payload.OrderID),
				zap.String("reason", payload.Reason),
			)

		case events.EventLowStockDetected:
			payload, err := events.UnwrapPayload[events.LowStockDetectedPayload](env.Payload)
			if err != nil {
				return err
			}
			logger.L().Warn("low stock detected",
				zap.String("item_type", payload.ItemType),
				zap.Int64("item_id", payload.ItemID),
				zap.Int64("quantity", payload.CurrentQuantity),
				zap.Int64("threshold", payload.Threshold),
			)
		}

		return nil
	}
}

func cacheOrderStatus(ctx context.Context, rdb *redis.Client, orderID int64, status string) {
	if rdb == nil {
		return
	}
	key := redisx.OrderStatusKey(orderID)
	value := fmt.Sprintf(`{"status":%q}`, status)
	if err := rdb.Set(ctx, key, value, redisx.TTLStatusCache).Err(); err != nil {
		logger.L().Warn("failed to cache order status", zap.Int64("order_id", orderID), zap.Error(err))
	}
}
