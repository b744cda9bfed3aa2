package quota

import (
	"context"
	"net/http"
	"strings"

	"quota-gateway/middleware/quota/domain"
)

// CredentialFunc extrai as credenciais já resolvidas pela camada de
// autenticação (colaborador externo). O segundo retorno é o flag
// autorizado/não-autorizado: false pula a contagem inteira.
type CredentialFunc func(r *http.Request) (domain.Credentials, bool)

type credentialsKey struct{}

// WithCredentials anexa credenciais resolvidas ao contexto.
// É o que o middleware de autenticação chama antes de passar adiante.
func WithCredentials(ctx context.Context, cred domain.Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey{}, cred)
}

// CredentialsFromContext lê credenciais anexadas por WithCredentials.
func CredentialsFromContext(ctx context.Context) (domain.Credentials, bool) {
	cred, ok := ctx.Value(credentialsKey{}).(domain.Credentials)
	if !ok || cred.AccessKey == "" {
		return domain.Credentials{}, false
	}
	return cred, true
}

// ContextCredentials é o CredentialFunc padrão: confia no que a camada de
// autenticação colocou no contexto da requisição.
func ContextCredentials() CredentialFunc {
	return func(r *http.Request) (domain.Credentials, bool) {
		return CredentialsFromContext(r.Context())
	}
}

// TableCredentials resolve a access key de um header e a cota de uma tabela
// fixa key->quota. Serve como colaborador de autenticação de demonstração
// (o gateway monta a tabela a partir de API_KEYS); produção normalmente
// pluga um CredentialFunc próprio.
func TableCredentials(keyHeader string, quotas map[string]int) CredentialFunc {
	return func(r *http.Request) (domain.Credentials, bool) {
		key := strings.TrimSpace(r.Header.Get(keyHeader))
		if key == "" {
			return domain.Credentials{}, false
		}
		q, ok := quotas[key]
		if !ok {
			return domain.Credentials{}, false
		}
		return domain.Credentials{AccessKey: domain.AccessKey(key), Quota: q}, true
	}
}
