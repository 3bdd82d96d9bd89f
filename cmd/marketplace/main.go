package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/PharmaLink/PharmaLink/internal/account"
	"github.com/PharmaLink/PharmaLink/internal/catalog"
	"github.com/PharmaLink/PharmaLink/internal/common/config"
	"github.com/PharmaLink/PharmaLink/internal/common/database"
	"github.com/PharmaLink/PharmaLink/internal/common/logger"
	"github.com/PharmaLink/PharmaLink/internal/common/middleware"
	"github.com/PharmaLink/PharmaLink/internal/common/server"
	"github.com/PharmaLink/PharmaLink/internal/common/tracing"
	"github.com/PharmaLink/PharmaLink/internal/delivery"
	"github.com/PharmaLink/PharmaLink/internal/filestore"
	"github.com/PharmaLink/PharmaLink/internal/httpapi"
	"github.com/PharmaLink/PharmaLink/internal/notification"
	"github.com/PharmaLink/PharmaLink/internal/order"
	"github.com/PharmaLink/PharmaLink/internal/payment"
	"github.com/PharmaLink/PharmaLink/internal/pharmacy"
	"github.com/PharmaLink/PharmaLink/internal/review"
)

func main() {
	configPath := flag.String("config", "configs/marketplace.json", "path to config file")
	consulHost := flag.String("consul-host", "localhost", "consul host for kv config")
	consulPort := flag.Int("consul-port", 8500, "consul port for kv config")
	consulKey := flag.String("consul-key", "", "consul kv key holding json config (overrides -config)")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *consulKey != "" {
		cfg, err = config.LoadConfigFromConsulKV(*consulHost, *consulPort, *consulKey)
	} else {
		cfg, err = config.LoadConfig(*configPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	// 链路追踪（失败不阻塞启动）
	if _, closer, err := tracing.InitTracer(cfg.Server.Name, cfg.Jaeger.Endpoint, cfg.Jaeger.Sampler); err != nil {
		log.Warnf("init tracer failed: %v", err)
	} else {
		defer closer.Close()
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	if err := db.AutoMigrate(
		&account.User{},
		&pharmacy.Pharmacy{},
		&pharmacy.Employee{},
		&catalog.Medication{},
		&catalog.PharmacyStock{},
		&order.Order{},
		&order.OrderItem{},
		&delivery.Assignment{},
		&payment.Payment{},
		&review.Review{},
	); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
	txManager := database.NewTxManager(db)

	files, err := filestore.NewLocalStore(cfg.Upload.Dir)
	if err != nil {
		log.Fatalf("init filestore: %v", err)
	}

	// 通知总线不可用时退化为日志输出，不影响业务链路
	var notifier notification.Dispatcher
	if amqpDispatcher, err := notification.NewAMQPDispatcher(cfg.Rabbit.URL, cfg.Rabbit.Exchange, log); err != nil {
		log.Warnf("rabbitmq unavailable, falling back to log dispatcher: %v", err)
		notifier = notification.NewLogDispatcher(log)
	} else {
		defer amqpDispatcher.Close()
		notifier = amqpDispatcher
	}

	feePolicy := delivery.FeePolicy{
		BaseCents:  cfg.Delivery.BaseFeeCents,
		FreeKm:     cfg.Delivery.FreeKm,
		PerKmCents: cfg.Delivery.PerKmCents,
	}

	accountRepo := account.NewRepo(db)
	pharmacyRepo := pharmacy.NewRepo(db)
	catalogRepo := catalog.NewRepo(db)
	orderRepo := order.NewRepo(db)
	deliveryRepo := delivery.NewRepo(db)
	paymentRepo := payment.NewRepo(db)
	reviewRepo := review.NewRepo(db)

	accountSvc := account.NewService(accountRepo)
	pharmacySvc := pharmacy.NewService(pharmacyRepo, files)
	catalogSvc := catalog.NewService(catalogRepo, pharmacySvc, feePolicy)
	orderSvc := order.NewService(orderRepo, catalogRepo, pharmacySvc, feePolicy, txManager, notifier, log)
	deliverySvc := delivery.NewService(deliveryRepo, orderSvc, accountSvc, pharmacySvc, files, txManager, log)

	gateway := payment.NewMockGateway(0.1, 50*time.Millisecond)
	breaker := middleware.NewCircuitBreaker("payment-gateway", 5, 30*time.Second)
	paymentSvc := payment.NewService(paymentRepo, orderSvc, gateway, breaker, txManager, log)

	reviewSvc := review.NewService(reviewRepo, orderSvc, log)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(
		server.Recovery(log),
		server.AccessLog(log),
		server.Tracing(cfg.Server.Name),
	)
	if cfg.Server.RateLimit > 0 {
		limiter := middleware.NewTokenBucket(cfg.Server.RateLimit*2, cfg.Server.RateLimit)
		engine.Use(server.RateLimit(limiter))
	}
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := httpapi.NewServer(accountSvc, pharmacySvc, catalogSvc, orderSvc, deliverySvc, paymentSvc, reviewSvc, log)
	api.RegisterRoutes(engine)

	if err := server.RunHTTPServer(cfg, log, engine); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
