package alert

import (
	"context"
	"errors"
	"strings"
)

// ErrLedgerUnavailable marca falhas de leitura/escrita do ledger. O ciclo deve
// abortar: seguir sem ledger arrisca alertas duplicados.
var ErrLedgerUnavailable = errors.New("alert ledger unavailable")

// Ledger guarda, por dia, os cavalos já notificados.
type Ledger interface {
	// FilterNew devolve os nomes ainda não registrados para o dia, na ordem recebida.
	FilterNew(ctx context.Context, names []string, date string) ([]string, error)
	// Record registra os nomes; chamar de novo com nomes repetidos não duplica.
	Record(ctx context.Context, names []string, date string) error
	// Claim faz check-and-set atômico por nome e devolve os recém-registrados.
	Claim(ctx context.Context, names []string, date string) ([]string, error)
}

// ledgerKey é a forma gravada no ledger: uma linha, sem espaços nas pontas.
// Nomes que só diferem nisso são o mesmo cavalo.
func ledgerKey(name string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return ' '
		}
		return r
	}, name))
}

// dedupe remove vazios e repetidos (pela ledgerKey), mantendo a primeira
// grafia recebida de cada nome.
func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		k := ledgerKey(n)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, n)
	}
	return out
}
