// File: cmd/purge/main.go
//
// Maintenance tool: deletes every trace of one user (payments, conversation
// state, user row) in a single transaction, or wipes the whole store for a
// test reset. Usage:
//
//	purge <chat_id>
//	purge all
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"
	"time"

	"telegram-storefront-bot/internal/config"
	pg "telegram-storefront-bot/internal/infra/db/postgres"
	"telegram-storefront-bot/internal/infra/logging"
	"telegram-storefront-bot/internal/usecase"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if flag.NArg() != 1 {
		log.Fatal("usage: purge <chat_id>|all")
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.Connect(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	if flag.Arg(0) == "all" {
		if err := pg.PurgeAll(ctx, pool); err != nil {
			log.Fatalf("purge all: %v", err)
		}
		fmt.Println("store wiped")
		return
	}

	chatID, err := strconv.ParseInt(flag.Arg(0), 10, 64)
	if err != nil || chatID <= 0 {
		log.Fatalf("invalid chat id %q", flag.Arg(0))
	}

	userRepo := pg.NewPostgresUserRepo(pool)
	paymentRepo := pg.NewPaymentRepo(pool)
	stateRepo := pg.NewStateRepo(pool)
	txm := pg.NewTxManager(pool)

	userUC := usecase.NewUserUseCase(userRepo, paymentRepo, stateRepo, txm, logger)

	u, err := userUC.GetByChatID(ctx, chatID)
	if err != nil {
		log.Fatalf("lookup user %d: %v", chatID, err)
	}

	if err := userUC.Purge(ctx, chatID); err != nil {
		log.Fatalf("purge user %d: %v", chatID, err)
	}
	fmt.Printf("purged user %d (@%s)\n", chatID, u.Username)
}
