package catalog

import "strings"

// Canonical variant codes. Older parts of the system wrote sizes as "3kg",
// "5.5 kg" or even bare "12"; everything is normalised to the kgNN form at
// the ingestion boundary and the alternate spellings never travel further.
const (
	VariantKg3  = "kg3"
	VariantKg5  = "kg5"
	VariantKg12 = "kg12"
	VariantKg50 = "kg50"
)

// DefaultVariant is the subsidised 3kg tabung, used only when the
// compatibility fallback is explicitly enabled.
const DefaultVariant = VariantKg3

var variantAliases = map[string]string{
	"kg3":    VariantKg3,
	"3kg":    VariantKg3,
	"3":      VariantKg3,
	"melon":  VariantKg3,
	"kg5":    VariantKg5,
	"5kg":    VariantKg5,
	"kg55":   VariantKg5,
	"55kg":   VariantKg5,
	"5":      VariantKg5,
	"kg12":   VariantKg12,
	"12kg":   VariantKg12,
	"12":     VariantKg12,
	"kg50":   VariantKg50,
	"50kg":   VariantKg50,
	"50":     VariantKg50,
}

// CanonicalVariant maps any known spelling of an LPG size to its canonical
// code. The second return is false when the label matches nothing.
func CanonicalVariant(label string) (string, bool) {
	normalized := normalizeLabel(label)
	code, ok := variantAliases[normalized]
	return code, ok
}

// IsCanonicalVariant reports whether code is one of the canonical codes.
func IsCanonicalVariant(code string) bool {
	switch code {
	case VariantKg3, VariantKg5, VariantKg12, VariantKg50:
		return true
	}
	return false
}

func normalizeLabel(label string) string {
	s := strings.ToLower(strings.TrimSpace(label))
	replacer := strings.NewReplacer(" ", "", "-", "", "_", "", ".", "", ",", "")
	s = replacer.Replace(s)
	s = strings.TrimPrefix(s, "lpg")
	s = strings.TrimPrefix(s, "gas")
	s = strings.TrimPrefix(s, "tabung")
	return s
}
