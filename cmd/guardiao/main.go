package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	guardiao "github.com/guardiao-iam/guardiao"
	"github.com/guardiao-iam/guardiao/audit"
	"github.com/guardiao-iam/guardiao/auth"
	"github.com/guardiao-iam/guardiao/generates"
	"github.com/guardiao-iam/guardiao/grants"
	"github.com/guardiao-iam/guardiao/lockout"
	"github.com/guardiao-iam/guardiao/migrate"
	"github.com/guardiao-iam/guardiao/permission"
	"github.com/guardiao-iam/guardiao/seed"
	"github.com/guardiao-iam/guardiao/server"
	"github.com/guardiao-iam/guardiao/store"
)

func main() {
	appCfg := server.GetAppConfig()
	cfg := appCfg.ServerConfig()

	if len(cfg.SigningKey) == 0 {
		log.Fatal("[main] GUARDIAO_TOKENS__SIGNING_KEY is required")
	}

	if err := migrate.RunFromEnv(); err != nil {
		log.Fatalf("[main] migrate: %v", err)
	}
	if err := seed.RunFromEnv(); err != nil {
		log.Fatalf("[main] seed: %v", err)
	}

	dsn := appCfg.DSN()
	if dsn == "" {
		log.Fatal("[main] GUARDIAO_DATABASE__DSN is required")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		log.Fatalf("[main] open database: %v", err)
	}

	if email := os.Getenv("GUARDIAO_ADMIN_EMAIL"); email != "" {
		if err := seed.EnsureAdminAccount(context.Background(), db, email, os.Getenv("GUARDIAO_ADMIN_SECRET")); err != nil {
			log.Fatalf("[main] bootstrap admin: %v", err)
		}
	}

	users := store.NewUserStore(db)
	roles := store.NewRoleStore(db)
	clients := store.NewClientStore(db)

	sink := audit.NewSink(store.NewAuditStore(db), cfg.AuditBuffer)
	defer sink.Close()

	refresh, closeRefresh, err := buildRefreshStore(appCfg)
	if err != nil {
		log.Fatalf("[main] refresh store: %v", err)
	}
	defer closeRefresh()

	resolver := permission.NewResolver(roles)
	// When Valkey backs the refresh store, the same connection doubles as the
	// permission cache.
	if vs, ok := refresh.(*store.ValkeyRefreshStore); ok {
		resolver.Cache = store.NewValkeyPermissionCache(vs.Client(), "guardiao:", 30*time.Second)
	}

	method, err := server.SigningMethodFromName(cfg.SigningMethod)
	if err != nil {
		log.Fatalf("[main] signing method: %v", err)
	}
	gen := generates.NewJWTGenerator(cfg.SigningKeyID, cfg.SigningKey, method, cfg.Issuer)

	dispatcher := &grants.Dispatcher{
		Gate: auth.NewGate(users, lockout.Policy{
			MaxAttempts: cfg.MaxFailedAttempts,
			Window:      cfg.LockoutWindow,
		}, sink),
		Accounts:  users,
		Clients:   clients,
		Assembler: generates.NewAssembler(resolver, cfg.Audience),
		Tokens:    gen,
		Refresh:   refresh,
		Audit:     sink,
		Options: grants.Options{
			AllowedGrantTypes: cfg.AllowedGrantTypes,
			AccessTTL:         cfg.AccessTokenTTL,
			IdentityTTL:       cfg.IdentityTokenTTL,
			RefreshTTL:        cfg.RefreshTokenTTL,
			RotateRefresh:     cfg.RotateRefresh,
		},
	}

	srv := server.NewServer(cfg, dispatcher)
	log.Printf("[main] listening on %s", appCfg.Addr())
	if err := srv.Run(appCfg.Addr()); err != nil {
		log.Fatalf("[main] server: %v", err)
	}
}

func buildRefreshStore(appCfg *server.AppConfig) (guardiao.RefreshTokenStore, func(), error) {
	if strings.EqualFold(appCfg.Refresh.Store, "valkey") {
		addr := appCfg.Refresh.ValkeyAddr
		if addr == "" {
			addr = "127.0.0.1:6379"
		}
		s, err := store.NewValkeyRefreshStore(addr, "guardiao:")
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	s, err := store.NewBuntRefreshStore(appCfg.Refresh.BuntPath)
	if err != nil {
		return nil, nil, err
	}
	return s, func() { _ = s.Close() }, nil
}
