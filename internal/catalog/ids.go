// internal/catalog/ids.go
package catalog

import "strings"

// FormatCardID: ("Chase", "Sapphire Preferred") -> "chase_sapphire_preferred"
func FormatCardID(issuer, name string) string {
	issuer = strings.ToLower(strings.TrimSpace(issuer))
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.ReplaceAll(issuer+"_"+name, " ", "_")
}

// NormalizeIssuer: в каталоге American Express хранится как "Amex"
func NormalizeIssuer(issuer string) string {
	issuer = strings.TrimSpace(issuer)
	switch strings.ToLower(issuer) {
	case "american express", "amex":
		return "Amex"
	}
	return issuer
}

// ExtractCardName убирает название банка из начала продукта: "Amex Gold" -> "Gold"
func ExtractCardName(issuer, product string) string {
	product = strings.TrimSpace(product)
	parts := strings.Fields(product)
	if len(parts) < 2 {
		return product
	}
	first := parts[0]
	if strings.EqualFold(first, strings.TrimSpace(issuer)) ||
		(first == "Amex" && NormalizeIssuer(issuer) == "Amex") {
		return strings.Join(parts[1:], " ")
	}
	return product
}
