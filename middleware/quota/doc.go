// Package quota fornece o adapter HTTP (net/http) da admissão por cota em
// janela deslizante, compartilhada entre instâncias via um store coordenador.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: caso de uso (decisão allow/deny + remaining) sem net/http
//   - infra: implementações concretas (script atômico no Redis, memória)
//   - quota (este pacote): middleware HTTP + credenciais via contexto +
//     tradução para status/headers
//
// Fluxo no gateway:
//
//  1. A camada de autenticação (colaborador externo) resolve as credenciais
//     (access key + cota) e as anexa ao contexto da requisição
//  2. O middleware chama a camada application para registrar e contar a
//     requisição na janela, como UMA operação atômica no store
//  3. Se a contagem estourar a cota, responde 429 sem invocar o próximo
//     handler (e sem headers de rate limit, assimetria intencional)
//  4. Se permitido, chama o próximo handler com os headers
//     X-RateLimit-Limit/Remaining/Window preenchidos
//
// Requisições não autenticadas nunca tocam o store e recebem headers
// estáticos generosos.
//
// Variáveis de ambiente do binário gateway (cmd/gateway) controlam o
// comportamento, como REDIS_ADDR, API_KEYS e FAIL_OPEN.
package quota
