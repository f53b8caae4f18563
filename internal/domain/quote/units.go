package quote

import "strings"

// Unit is the measurement unit of a line.
type Unit string

const (
	UnitPiece       Unit = "U"
	UnitSquareMeter Unit = "M2"
	UnitLinearMeter Unit = "ML"
	UnitCubicMeter  Unit = "M3"
	UnitKilogram    Unit = "KG"
	UnitTonne       Unit = "T"
	UnitLitre       Unit = "L"
	UnitHour        Unit = "H"
	UnitDay         Unit = "J"
	UnitLumpSum     Unit = "FORFAIT"
	UnitSet         Unit = "ENS"
)

// unitAliases maps lower-cased spellings found in bills of quantities.
var unitAliases = map[string]Unit{
	"u":              UnitPiece,
	"un":             UnitPiece,
	"unite":          UnitPiece,
	"unité":          UnitPiece,
	"pce":            UnitPiece,
	"pc":             UnitPiece,
	"piece":          UnitPiece,
	"pièce":          UnitPiece,
	"m2":             UnitSquareMeter,
	"m²":             UnitSquareMeter,
	"m^2":            UnitSquareMeter,
	"ml":             UnitLinearMeter,
	"m":              UnitLinearMeter,
	"mètre linéaire": UnitLinearMeter,
	"metre lineaire": UnitLinearMeter,
	"m3":             UnitCubicMeter,
	"m³":             UnitCubicMeter,
	"m^3":            UnitCubicMeter,
	"kg":             UnitKilogram,
	"t":              UnitTonne,
	"tonne":          UnitTonne,
	"l":              UnitLitre,
	"litre":          UnitLitre,
	"h":              UnitHour,
	"heure":          UnitHour,
	"hr":             UnitHour,
	"j":              UnitDay,
	"jour":           UnitDay,
	"f":              UnitLumpSum,
	"ft":             UnitLumpSum,
	"fft":            UnitLumpSum,
	"forfait":        UnitLumpSum,
	"ens":            UnitSet,
	"ensemble":       UnitSet,
}

// ParseUnit resolves a free-text unit; unknown or blank input yields the
// piece unit and ok=false.
func ParseUnit(s string) (Unit, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return UnitPiece, false
	}
	if u, ok := unitAliases[key]; ok {
		return u, true
	}
	if u := Unit(strings.ToUpper(key)); u.IsValid() {
		return u, true
	}
	return UnitPiece, false
}

// IsValid reports whether u is a canonical unit.
func (u Unit) IsValid() bool {
	switch u {
	case UnitPiece, UnitSquareMeter, UnitLinearMeter, UnitCubicMeter, UnitKilogram,
		UnitTonne, UnitLitre, UnitHour, UnitDay, UnitLumpSum, UnitSet:
		return true
	}
	return false
}
