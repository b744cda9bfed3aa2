package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"quota-gateway/middleware/quota"
	"quota-gateway/middleware/quota/domain"
	"quota-gateway/middleware/quota/infra"
)

func main() {
	cfg, err := readConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	target, err := url.Parse(cfg.upstreamURL)
	if err != nil {
		log.Fatalf("invalid UPSTREAM_URL: %v", err)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Printf("proxy error: %v", err)
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// conexão única por processo: compartilhada por todas as verificações
	// de admissão. Não conectar é fatal: o serviço não sobe com o rate
	// limit silenciosamente inoperante.
	store, err := infra.DialWindowStore(ctx, infra.RedisConfig{
		Addr:           cfg.redisAddr,
		Password:       cfg.redisPassword,
		DB:             cfg.redisDB,
		DialTimeout:    cfg.redisDialTimeout,
		ConnectRetries: cfg.redisConnectRetries,
	}, infra.WithWindowPrefix(cfg.keyPrefix))
	if err != nil {
		log.Fatalf("redis connect error: %v", err)
	}

	var statsStore domain.StatsStore
	if cfg.statsEnabled {
		statsStore = infra.NewRedisStatsStore(
			store.Client(),
			infra.WithStatsPrefix(cfg.statsPrefix),
			infra.WithStatsTTL(cfg.statsTTL),
			infra.WithStatsTrackKeys(cfg.statsTrackKeys),
		)
	}

	h := http.Handler(proxy)
	h = quota.Middleware(quota.Options{
		Counter:     store,
		Stats:       statsStore,
		Credentials: quota.TableCredentials(cfg.apiKeyHeader, cfg.apiKeys),
		FailOpen:    cfg.failOpen,
	})(h)

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		// estado da janela é efêmero: limpa e fecha, best-effort
		if err := store.Shutdown(shutdownCtx); err != nil {
			log.Printf("store shutdown: %v", err)
		}
	}()

	log.Printf("gateway listening on %s -> %s", cfg.listenAddr, target)
	log.Printf("quota: window=%s keyHeader=%q keys=%d failOpen=%v prefix=%q", domain.Window, cfg.apiKeyHeader, len(cfg.apiKeys), cfg.failOpen, cfg.keyPrefix)
	log.Printf("redis: addr=%q db=%d dialTimeout=%s retries=%d", cfg.redisAddr, cfg.redisDB, cfg.redisDialTimeout, cfg.redisConnectRetries)
	log.Printf("stats: enabled=%v prefix=%q ttl=%s trackKeys=%v", cfg.statsEnabled, cfg.statsPrefix, cfg.statsTTL, cfg.statsTrackKeys)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}

type config struct {
	listenAddr  string
	upstreamURL string

	redisAddr           string
	redisPassword       string
	redisDB             int
	redisDialTimeout    time.Duration
	redisConnectRetries int
	keyPrefix           string

	apiKeyHeader string
	apiKeys      map[string]int
	failOpen     bool

	statsEnabled   bool
	statsPrefix    string
	statsTTL       time.Duration
	statsTrackKeys bool
}

func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.upstreamURL = os.Getenv("UPSTREAM_URL")

	cfg.redisAddr = os.Getenv("REDIS_ADDR")
	cfg.redisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.redisDB = getenvIntDefault("REDIS_DB", 0)
	cfg.redisDialTimeout = getenvDurationDefault("REDIS_DIAL_TIMEOUT", 3*time.Second)
	cfg.redisConnectRetries = getenvIntDefault("REDIS_CONNECT_RETRIES", 3)
	cfg.keyPrefix = getenvDefault("RATE_KEY_PREFIX", "ratelimit")

	cfg.apiKeyHeader = getenvDefault("API_KEY_HEADER", "X-Api-Key")
	cfg.failOpen = getenvBoolDefault("FAIL_OPEN", false)

	cfg.statsEnabled = getenvBoolDefault("STATS_ENABLED", false)
	cfg.statsPrefix = getenvDefault("STATS_PREFIX", "ratelimit:stats")
	cfg.statsTTL = getenvDurationDefault("STATS_TTL", 24*time.Hour)
	cfg.statsTrackKeys = getenvBoolDefault("STATS_TRACK_KEYS", false)

	keys, err := parseAPIKeys(os.Getenv("API_KEYS"))
	if err != nil {
		return config{}, err
	}
	cfg.apiKeys = keys

	if cfg.upstreamURL == "" {
		return config{}, errors.New("UPSTREAM_URL is required")
	}
	if cfg.redisAddr == "" {
		return config{}, errors.New("REDIS_ADDR is required")
	}
	if cfg.redisDialTimeout <= 0 {
		return config{}, errors.New("REDIS_DIAL_TIMEOUT must be > 0")
	}
	if cfg.redisConnectRetries <= 0 {
		return config{}, errors.New("REDIS_CONNECT_RETRIES must be > 0")
	}
	return cfg, nil
}

// parseAPIKeys lê a tabela chave->cota do formato "key1:100,key2:5".
// É o colaborador de autenticação de demonstração; produção pluga o seu
// CredentialFunc próprio.
func parseAPIKeys(raw string) (map[string]int, error) {
	keys := make(map[string]int)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return keys, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, quotaStr, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("API_KEYS: entry %q must be key:quota", pair)
		}
		key = strings.TrimSpace(key)
		q, err := strconv.Atoi(strings.TrimSpace(quotaStr))
		if err != nil || key == "" || q <= 0 {
			return nil, fmt.Errorf("API_KEYS: invalid entry %q", pair)
		}
		keys[key] = q
	}
	return keys, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
