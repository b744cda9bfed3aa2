package infra

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"quota-gateway/middleware/quota/domain"

	"github.com/redis/go-redis/v9"
)

// admissionScript é a operação de admissão inteira, executada server-side
// para que incremento do id global, poda, inserção, expiração e contagem
// sejam UM passo indivisível. Um read-modify-write do lado do cliente
// perderia atualizações sob concorrência.
//
// KEYS[1] = chave da janela (zset score=timestamp, member=request id)
// KEYS[2] = chave do contador global de request ids
// ARGV[1] = now em segundos, com 3 casas decimais (precisão de ms)
// ARGV[2] = janela em segundos
//
// O wrap do contador em 1e12 é um read-then-set dentro do script: atômico
// por execução, mas duas execuções podem ler >= 1e12 antes do SET: janela
// teórica de colisão na borda do wrap, tolerada.
var admissionScript = redis.NewScript(`
local window_key = KEYS[1]
local counter_key = KEYS[2]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local request_id = tonumber(redis.call('INCR', counter_key))
if request_id >= 1e12 then
    redis.call('SET', counter_key, 1)
end
if redis.call('EXISTS', window_key) == 1 then
    redis.call('ZREMRANGEBYSCORE', window_key, 0, now - window)
end
redis.call('ZADD', window_key, now, tostring(request_id))
redis.call('EXPIRE', window_key, window)
return redis.call('ZCARD', window_key)
`)

// RedisWindowStore implementa domain.WindowCounter sobre um Redis
// compartilhado por todas as instâncias stateless do serviço.
type RedisWindowStore struct {
	rdb    *redis.Client
	prefix string
	window time.Duration
}

type RedisWindowOption func(*RedisWindowStore)

// WithWindowPrefix define o namespace das chaves no Redis.
func WithWindowPrefix(prefix string) RedisWindowOption {
	return func(s *RedisWindowStore) { s.prefix = prefix }
}

// WithWindow troca o tamanho da janela. Todos os processos que compartilham
// o mesmo Redis precisam usar o mesmo valor.
func WithWindow(d time.Duration) RedisWindowOption {
	return func(s *RedisWindowStore) { s.window = d }
}

// NewRedisWindowStore embrulha um client já conectado.
// Para o ciclo completo (conexão com retries + registro do script), use
// DialWindowStore.
func NewRedisWindowStore(rdb *redis.Client, opts ...RedisWindowOption) *RedisWindowStore {
	s := &RedisWindowStore{
		rdb:    rdb,
		prefix: "ratelimit",
		window: domain.Window,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RedisConfig é a configuração de conexão com o store compartilhado.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// DialTimeout limita cada tentativa de conexão. Padrão: 3s.
	DialTimeout time.Duration
	// ConnectRetries é o número de tentativas de ping antes de desistir.
	// Padrão: 3. Estourar o orçamento de retries é fatal para o startup:
	// o serviço não deve subir com o rate limit silenciosamente inoperante.
	ConnectRetries int
}

// DialWindowStore estabelece a conexão com o store, valida com ping
// (com retries limitados) e registra o script de admissão uma única vez.
// O store retornado é seguro para uso concorrente e deve ser compartilhado
// por todo o processo, não recriado por request.
func DialWindowStore(ctx context.Context, cfg RedisConfig, opts ...RedisWindowOption) (*RedisWindowStore, error) {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 3 * time.Second
	}
	if cfg.ConnectRetries <= 0 {
		cfg.ConnectRetries = 3
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	var err error
	for attempt := 0; attempt < cfg.ConnectRetries; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			break
		}
		select {
		case <-ctx.Done():
			_ = rdb.Close()
			return nil, ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	s := NewRedisWindowStore(rdb, opts...)
	if err := admissionScript.Load(ctx, rdb).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("load admission script: %w", err)
	}
	return s, nil
}

// Client expõe o client subjacente para colaboradores que compartilham a
// mesma conexão (ex: RedisStatsStore).
func (s *RedisWindowStore) Client() *redis.Client { return s.rdb }

// Window devolve o tamanho da janela configurado.
func (s *RedisWindowStore) Window() time.Duration { return s.window }

// Admit implementa domain.WindowCounter: registra a requisição e devolve a
// cardinalidade da janela depois da inserção, em uma única viagem ao Redis.
func (s *RedisWindowStore) Admit(ctx context.Context, key domain.AccessKey, now time.Time) (int64, error) {
	keys := []string{s.windowKey(key), s.counterKey()}
	args := []interface{}{formatScore(now), int64(s.window / time.Second)}

	count, err := admissionScript.Run(ctx, s.rdb, keys, args...).Int64()
	if err != nil {
		return 0, fmt.Errorf("admission script: %w", err)
	}
	return count, nil
}

// Shutdown limpa o estado do rate limiter (é efêmero: a janela se reconstrói
// sozinha) e fecha a conexão. Erros de conexão na limpeza são engolidos:
// cleanup é best-effort e não pode derrubar a sequência de shutdown.
func (s *RedisWindowStore) Shutdown(ctx context.Context) error {
	if err := s.rdb.FlushDB(ctx).Err(); err != nil && !isConnError(err) {
		_ = s.rdb.Close()
		return fmt.Errorf("flush rate limit state: %w", err)
	}
	return s.rdb.Close()
}

func (s *RedisWindowStore) windowKey(key domain.AccessKey) string {
	return s.prefix + ":" + string(key)
}

func (s *RedisWindowStore) counterKey() string {
	return s.prefix + ":__request_id"
}

// formatScore quantiza o timestamp para milissegundos e o serializa como
// segundos com exatamente 3 casas decimais, o formato que o script compara
// e insere como score.
func formatScore(now time.Time) string {
	return strconv.FormatFloat(float64(now.UnixMilli())/1000.0, 'f', 3, 64)
}

func isConnError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, net.ErrClosed) || errors.Is(err, redis.ErrClosed)
}
