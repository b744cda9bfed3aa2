package domain

import (
	"context"
	"time"
)

// StatsEvent representa uma decisão de admissão já tomada.
//
// Observação: cuidado com cardinalidade: gravar AccessKey sem controle pode
// explodir o número de chaves em uma base como Redis.
type StatsEvent struct {
	Key     AccessKey
	Allowed bool

	// RollingCount da decisão, quando houve consulta ao contador.
	RollingCount int64

	At time.Time
}

// StatsStore é a estratégia de persistência para estatísticas de admissão.
//
// Implementações podem armazenar em Redis, memória, etc.
// O middleware trata erro como best-effort (não derruba a request e não
// altera a decisão de admissão).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
