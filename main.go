package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"kitchen-board/api"
	"kitchen-board/board"
	"kitchen-board/domain"
	"kitchen-board/storage"
	"kitchen-board/stream"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	logger := log.New()
	logger.SetLevel(log.GetLevel())

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	ordersTableName := os.Getenv("ORDERS_TABLE")
	eventsQueueName := os.Getenv("EVENTS_QUEUE")
	if connStr == "" || ordersTableName == "" || eventsQueueName == "" {
		log.Fatal("missing storage config")
	}
	storeID := os.Getenv("STORE_ID")
	if storeID == "" {
		log.Fatal("missing STORE_ID")
	}
	store, err := storage.New(connStr, ordersTableName, eventsQueueName, storeID)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	redisConn := os.Getenv("REDIS_CONNECTION_STRING")
	if redisConn == "" {
		log.Fatal("missing redis config")
	}
	redisOpts, err := redis.ParseURL(redisConn)
	if err != nil {
		parts := strings.Split(redisConn, ",")
		redisOpts = &redis.Options{Addr: parts[0]}
		for _, p := range parts[1:] {
			kv := strings.SplitN(p, "=", 2)
			if len(kv) != 2 {
				continue
			}
			switch strings.ToLower(kv[0]) {
			case "password":
				redisOpts.Password = kv[1]
			case "ssl":
				if strings.ToLower(kv[1]) == "true" {
					redisOpts.TLSConfig = &tls.Config{}
				}
			}
		}
	}
	rc := redis.NewClient(redisOpts)

	cacheTTL := envDuration("CACHE_TTL", 30*time.Second)
	orders := storage.NewCache(store, rc, cacheTTL, storeID)

	queueDir := os.Getenv("QUEUE_DIR")
	if queueDir == "" {
		queueDir = "data"
	}
	queueFile, err := storage.NewQueueFile(queueDir, storeID)
	if err != nil {
		log.Fatalf("queue store: %v", err)
	}

	ctx := context.Background()
	queue, err := board.NewMutationQueue(ctx, queueFile, logger)
	if err != nil {
		log.Fatalf("mutation queue: %v", err)
	}

	broker := stream.NewBroker(rc, "board:"+storeID, logger)

	beeps := board.DefaultBeepSequence
	beeps.Count = envInt("BEEP_COUNT", beeps.Count)
	beeps.FrequencyHz = envInt("BEEP_FREQUENCY_HZ", beeps.FrequencyHz)
	trigger, err := board.NewTrigger(ctx, stream.NewChimeSink(broker, storeID), storage.NewMutePrefs(rc, storeID), beeps, logger)
	if err != nil {
		log.Fatalf("alert trigger: %v", err)
	}

	thresholds := domain.UrgencyThresholds{
		WarningMinutes:  envInt("URGENCY_WARNING_MINUTES", domain.DefaultThresholds.WarningMinutes),
		CriticalMinutes: envInt("URGENCY_CRITICAL_MINUTES", domain.DefaultThresholds.CriticalMinutes),
	}
	archiveWindow := time.Duration(envInt("DONE_ARCHIVE_HOURS", 4)) * time.Hour

	toasts := stream.NewToastSink(broker, storeID)
	conn := board.NewConnectivity()
	controller := board.NewController(board.Config{
		StoreID:       storeID,
		Orders:        orders,
		Queue:         queue,
		Trigger:       trigger,
		Toasts:        toasts,
		Logger:        logger,
		Thresholds:    thresholds,
		ArchiveWindow: archiveWindow,
		OnChange: func(state board.BoardState) {
			data, err := json.Marshal(state)
			if err != nil {
				logger.WithError(err).Error("marshal board snapshot")
				return
			}
			broker.Publish(ctx, stream.Event{Kind: stream.KindBoard, StoreID: storeID, Data: data})
		},
	}, conn)

	replayer := board.NewReplayer(queue, orders, conn, toasts, logger)
	refresher := board.NewRefresher(controller, envDuration("REFRESH_INTERVAL", 5*time.Second), logger)

	go broker.Run(ctx)
	go replayer.Run(ctx)
	go refresher.Run(ctx)
	replayer.Wake()

	testMode := os.Getenv("AUTH0_TEST_MODE") == "1"
	var auth *api.Auth
	if testMode {
		auth = api.NewAuth(nil, "", "")
	} else {
		jwtAudience := os.Getenv("AUTH0_AUDIENCE")
		authDomain := os.Getenv("AUTH0_DOMAIN")
		if jwtAudience == "" || authDomain == "" {
			log.Fatal("missing Auth0 config")
		}
		jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", authDomain)
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		auth = api.NewAuth(jwks, jwtAudience, "https://"+authDomain+"/")
	}

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echoprometheus.NewMiddleware("kitchen_board"))
	e.Use(api.GzipRequestMiddleware())
	e.GET("/metrics", echoprometheus.NewHandler())

	api.Register(e, api.Config{
		Board:      controller,
		Alerts:     trigger,
		Sync:       replayer,
		Stream:     broker,
		Auth:       auth,
		Thresholds: thresholds,
		Logger:     logger,
	})

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("FUNCTIONS_CUSTOMHANDLER_PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}

func envInt(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Fatalf("invalid %s: %q", name, v)
	}
	return n
}

func envDuration(name string, fallback time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Fatalf("invalid %s: %q", name, v)
	}
	return d
}
