package quota

import (
	"errors"
	"net/http"
	"time"

	"quota-gateway/middleware/quota/application"
	"quota-gateway/middleware/quota/domain"
)

type Options struct {
	// Counter é o contador de janela compartilhado (um por processo).
	Counter domain.WindowCounter
	// Stats recebe cada decisão, best-effort. Pode ser nil.
	Stats domain.StatsStore
	// Credentials extrai identidade+cota da requisição.
	// Padrão: ContextCredentials().
	Credentials CredentialFunc

	// RejectStatus é o status do caminho de rejeição. Padrão: 429.
	RejectStatus int
	// Window é o valor anunciado em X-RateLimit-Window.
	// Precisa casar com a janela configurada no Counter. Padrão: domain.Window.
	Window time.Duration
	// StaticLimit é o limite anunciado para requisições não autenticadas.
	// Padrão: domain.UnauthenticatedLimit.
	StaticLimit int
	// FailOpen admite a requisição quando o store falha. Padrão false:
	// erro do store responde 500 e a requisição não passa (fail-closed).
	FailOpen bool
}

// Middleware devolve o filtro de admissão: decide allow/reject ANTES do
// próximo handler rodar. Requisição rejeitada não produz nenhum efeito
// colateral downstream; requisição admitida cuja resposta downstream falhe
// depois já foi contada e não há rollback.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.Window <= 0 {
		opts.Window = domain.Window
	}
	if opts.StaticLimit <= 0 {
		opts.StaticLimit = domain.UnauthenticatedLimit
	}
	if opts.Credentials == nil {
		opts.Credentials = ContextCredentials()
	}

	svc := application.Service{
		Counter:  opts.Counter,
		FailOpen: opts.FailOpen,
	}
	windowValue := formatInt(int(opts.Window / time.Second))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cred, authorized := opts.Credentials(r)
			if !authorized {
				// não autenticado: nenhuma interação com o store,
				// headers estáticos generosos
				h := w.Header()
				h.Set(HeaderLimit, formatInt(opts.StaticLimit))
				h.Set(HeaderRemaining, formatInt(opts.StaticLimit))
				h.Set(HeaderWindow, windowValue)
				next.ServeHTTP(w, r)
				return
			}

			now := time.Now()
			dec, err := svc.Admit(r.Context(), cred, now)

			if opts.Stats != nil {
				_ = opts.Stats.Record(r.Context(), domain.StatsEvent{
					Key:          cred.AccessKey,
					Allowed:      dec.Allowed,
					RollingCount: dec.RollingCount,
					At:           now,
				})
			}

			if err != nil {
				if errors.Is(err, domain.ErrRateLimitExceeded) {
					// rejeição seca: sem headers de rate limit
					http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
					return
				}
				// falha do store: fail-closed
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			h := w.Header()
			h.Set(HeaderLimit, formatInt(dec.Limit))
			h.Set(HeaderRemaining, formatInt(dec.Remaining))
			h.Set(HeaderWindow, windowValue)

			next.ServeHTTP(w, r)
		})
	}
}
