package odds

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount é um valor numérico vindo do mercado (preço ou liquidez) que pode
// estar ausente. O valor zero de Amount é "desconhecido".
type Amount struct {
	v     decimal.Decimal
	known bool
}

// Unknown representa preço/liquidez indisponível (ladder vazia, valor inválido).
var Unknown = Amount{}

// Known cria um Amount a partir de um float vindo da exchange.
func Known(f float64) Amount {
	return Amount{v: decimal.NewFromFloat(f), known: true}
}

// KnownDecimal cria um Amount a partir de um decimal já normalizado.
func KnownDecimal(d decimal.Decimal) Amount {
	return Amount{v: d, known: true}
}

// ParseAmount interpreta texto livre; qualquer coisa não numérica vira Unknown.
func ParseAmount(s string) Amount {
	s = strings.TrimSpace(s)
	if s == "" {
		return Unknown
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Unknown
	}
	return KnownDecimal(d)
}

func (a Amount) IsKnown() bool { return a.known }

// Decimal retorna o valor e se ele é conhecido.
func (a Amount) Decimal() (decimal.Decimal, bool) { return a.v, a.known }

// Float64 retorna o valor como float; 0,false quando desconhecido.
func (a Amount) Float64() (float64, bool) {
	if !a.known {
		return 0, false
	}
	return a.v.InexactFloat64(), true
}

// AtMost reporta se o valor é conhecido e <= limit.
func (a Amount) AtMost(limit decimal.Decimal) bool {
	return a.known && a.v.LessThanOrEqual(limit)
}

func (a Amount) String() string {
	if !a.known {
		return "N/A"
	}
	return a.v.String()
}

// MarshalJSON escreve número ou null.
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.known {
		return []byte("null"), nil
	}
	return []byte(a.v.String()), nil
}

// UnmarshalJSON aceita número, string numérica, null ou "N/A".
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = Unknown
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = ParseAmount(s)
		return nil
	}
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return fmt.Errorf("odds amount %s: %w", strconv.Quote(string(b)), err)
	}
	*a = KnownDecimal(d)
	return nil
}
