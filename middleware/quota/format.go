// utilitário pequeno para formatação rápida/consistente dos valores dos
// headers X-RateLimit-*. Evita puxar fmt (mais “pesado” e genérico) só para
// inteiros simples.

package quota

import "strconv"

// Nomes dos headers anexados em respostas admitidas (e nas não autenticadas).
// O caminho de rejeição NÃO leva nenhum deles.
const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderWindow    = "X-RateLimit-Window"
)

func formatInt(v int) string { return strconv.Itoa(v) }
