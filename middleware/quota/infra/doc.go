// Package infra contém implementações concretas (infraestrutura) para os
// contratos definidos no pacote domain.
//
// Exemplos:
//   - RedisWindowStore: janela deslizante por chave em um Redis compartilhado,
//     com o passo de contagem executado como UM script atômico
//   - MemoryWindowStore: mesma semântica em memória, para testes e dev
//   - RedisStatsStore / MemoryStatsStore: contadores best-effort de decisões
package infra
