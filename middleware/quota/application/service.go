package application

import (
	"context"
	"fmt"
	"time"

	"quota-gateway/middleware/quota/domain"
)

// Service concentra a regra de aplicação da admissão por cota.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
// A serialização entre chamadas concorrentes fica toda no WindowCounter; o
// Service em si não tem estado mutável.
type Service struct {
	Counter domain.WindowCounter

	// FailOpen muda a propriedade de segurança do sistema: com false
	// (padrão), erro do store propaga e a requisição NÃO passa
	// (fail-closed). Com true, erro do store admite a requisição com a
	// cota inteira disponível. Escolha explícita, nunca implícita.
	FailOpen bool
}

// Admit executa uma verificação de admissão para as credenciais dadas.
//
// Retorna ErrRateLimitExceeded (embrulhável com errors.Is) quando a contagem
// na janela ultrapassa a cota. Qualquer outro erro é falha do store.
// A admissão registrada não é desfeita depois: mesmo que o chamador seja
// cancelado em seguida, a contagem permanece na janela.
func (s Service) Admit(ctx context.Context, cred domain.Credentials, now time.Time) (domain.Decision, error) {
	if s.Counter == nil {
		return domain.Decision{Allowed: true, Limit: cred.Quota, Remaining: cred.Quota}, nil
	}

	now = now.Truncate(domain.TimePrecision)

	count, err := s.Counter.Admit(ctx, cred.AccessKey, now)
	if err != nil {
		if s.FailOpen {
			return domain.Decision{Allowed: true, Limit: cred.Quota, Remaining: cred.Quota}, nil
		}
		return domain.Decision{}, fmt.Errorf("admission check for %q: %w", cred.AccessKey, err)
	}

	if count > int64(cred.Quota) {
		return domain.Decision{
			Allowed:      false,
			Limit:        cred.Quota,
			RollingCount: count,
		}, domain.ErrRateLimitExceeded
	}

	remaining := cred.Quota - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return domain.Decision{
		Allowed:      true,
		Limit:        cred.Quota,
		Remaining:    remaining,
		RollingCount: count,
	}, nil
}
