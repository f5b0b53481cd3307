package transform

// Unknown is the label used for missing ratings and release dates.
const Unknown = "Desconhecido"

var ageRatings = map[int]string{
	1:  "PEGI 3",
	2:  "PEGI 7",
	3:  "PEGI 12",
	4:  "PEGI 16",
	5:  "PEGI 18",
	6:  "RP (Classificação Pendente)",
	7:  "EC (Primeira Infância)",
	8:  "E (Todos)",
	9:  "E10+ (Todos +10)",
	10: "T (Adolescentes)",
	11: "M (Maduro 17+)",
	12: "AO (Apenas Adultos)",
}

// ResolveAgeRating maps an IGDB age rating code to its label.
func ResolveAgeRating(code *int) string {
	if code == nil {
		return Unknown
	}
	if label, ok := ageRatings[*code]; ok {
		return label
	}
	return Unknown
}
