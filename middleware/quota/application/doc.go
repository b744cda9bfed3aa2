// Package application contém o caso de uso da admissão por cota.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: Service.Admit(ctx, cred, now) retorna uma Decision (allow/deny +
// remaining) ou um erro distinto para cota estourada vs falha do store.
package application
