package domain

// Camada de domínio da admissão por cota.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"context"
	"errors"
	"time"
)

const (
	// Window é o tamanho da janela deslizante. Fixo: o algoritmo e os headers
	// assumem o mesmo valor em todos os processos que compartilham o store.
	Window = 900 * time.Second

	// TimePrecision é a precisão dos timestamps usados como score.
	// Todo `now` é quantizado para isso antes de entrar na janela.
	TimePrecision = time.Millisecond

	// RequestIDWrap é o teto do contador global de requisições.
	// Ao alcançá-lo, o contador volta para 1 (limita o tamanho dos ids).
	RequestIDWrap = int64(1e12)

	// UnauthenticatedLimit é o limite estático anunciado nos headers de
	// respostas não autenticadas. Não há contagem real nesse caso.
	UnauthenticatedLimit = 1000
)

// ErrRateLimitExceeded indica que a contagem na janela ultrapassou a cota.
// É uma condição normal e recuperável do cliente; a camada HTTP traduz para
// 429. Não confundir com erros de conectividade do store.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// AccessKey identifica o titular de uma cota (ex: chave de API resolvida
// pela camada de autenticação). Todo o histórico da janela é indexado por ela.
type AccessKey string

// Credentials é o que a camada de autenticação (colaborador externo) resolve
// e anexa à requisição: quem é o chamador e qual a cota dele por janela.
type Credentials struct {
	AccessKey AccessKey
	Quota     int
}

// WindowCounter registra uma requisição e devolve a contagem corrente dentro
// da janela deslizante da chave, como UMA operação atômica e indivisível:
// nenhum estado intermediário (poda, inserção) fica visível para chamadas
// concorrentes.
//
// Implementações podem usar um script no Redis, memória, etc.
type WindowCounter interface {
	Admit(ctx context.Context, key AccessKey, now time.Time) (int64, error)
}

// Decision é o resultado de uma verificação de admissão.
type Decision struct {
	Allowed bool
	// Limit é a cota do chamador (ecoada nos headers).
	Limit int
	// Remaining é quantas requisições ainda cabem na janela. Nunca negativo.
	Remaining int
	// RollingCount é a contagem devolvida pelo contador, incluindo esta
	// requisição. Zero quando o contador não foi consultado.
	RollingCount int64
}
