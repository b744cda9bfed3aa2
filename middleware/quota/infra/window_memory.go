package infra

import (
	"context"
	"sync"
	"time"

	"quota-gateway/middleware/quota/domain"
)

// MemoryWindowStore é uma implementação em memória de domain.WindowCounter
// com a mesma semântica do script Redis: id global com wrap em 1e12, poda
// antes da contagem e expiração da chave por TTL igual à janela.
//
// Útil para testes e desenvolvimento. Não compartilha estado entre processos
// e não é indicada para produção.
type MemoryWindowStore struct {
	mu      sync.Mutex
	nextID  int64
	entries map[domain.AccessKey]*memoryWindow
	window  time.Duration
}

type memoryWindow struct {
	records   []memoryRecord
	expiresAt time.Time
}

// memoryRecord espelha um membro do zset: score (ms) + request id.
type memoryRecord struct {
	scoreMs int64
	id      int64
}

type MemoryWindowOption func(*MemoryWindowStore)

func WithMemoryWindow(d time.Duration) MemoryWindowOption {
	return func(s *MemoryWindowStore) { s.window = d }
}

func NewMemoryWindowStore(opts ...MemoryWindowOption) *MemoryWindowStore {
	s := &MemoryWindowStore{
		entries: make(map[domain.AccessKey]*memoryWindow),
		window:  domain.Window,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Admit implementa domain.WindowCounter. O mutex faz o papel que o script
// atômico faz no Redis: nenhum estado intermediário visível a concorrentes.
func (s *MemoryWindowStore) Admit(_ context.Context, key domain.AccessKey, now time.Time) (int64, error) {
	now = now.Truncate(domain.TimePrecision)
	nowMs := now.UnixMilli()
	windowMs := s.window.Milliseconds()

	s.mu.Lock()
	defer s.mu.Unlock()

	// mesmo passo do INCR + wrap do script: o id devolvido pode ser o do
	// teto; só o PRÓXIMO chamador recomeça de 1
	s.nextID++
	id := s.nextID
	if id >= domain.RequestIDWrap {
		s.nextID = 1
	}

	win, ok := s.entries[key]
	if ok && now.After(win.expiresAt) {
		// TTL venceu: a chave teria sumido do Redis
		delete(s.entries, key)
		ok = false
	}
	if !ok {
		win = &memoryWindow{}
		s.entries[key] = win
	} else {
		// poda antes de contar: remove tudo com score <= now - window
		cutoff := nowMs - windowMs
		kept := win.records[:0]
		for _, rec := range win.records {
			if rec.scoreMs > cutoff {
				kept = append(kept, rec)
			}
		}
		win.records = kept
	}

	win.records = append(win.records, memoryRecord{scoreMs: nowMs, id: id})
	win.expiresAt = now.Add(s.window)

	return int64(len(win.records)), nil
}

// TTL devolve quanto falta para a chave expirar, dado o relógio `now`.
// Retorna false se a chave não existe (ou já teria expirado).
func (s *MemoryWindowStore) TTL(key domain.AccessKey, now time.Time) (time.Duration, bool) {
	// mesma quantização do Admit, senão o resto sub-milissegundo do
	// relógio entra na conta
	now = now.Truncate(domain.TimePrecision)

	s.mu.Lock()
	defer s.mu.Unlock()

	win, ok := s.entries[key]
	if !ok || now.After(win.expiresAt) {
		return 0, false
	}
	return win.expiresAt.Sub(now), true
}

// Flush descarta todo o estado, como o FlushDB do shutdown no Redis.
func (s *MemoryWindowStore) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[domain.AccessKey]*memoryWindow)
	s.nextID = 0
}
