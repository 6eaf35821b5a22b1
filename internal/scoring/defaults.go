package scoring

// DefaultCategories returns the built-in profile table for a senior
// commercial leader in FMCG and retail. Caps sum to 100.
func DefaultCategories() []Category {
	return []Category{
		{
			Name: "FMCG",
			Cap:  30,
			Keywords: []Keyword{
				{Token: "fmcg", Points: 30},
				{Token: "fast moving", Points: 15},
				{Token: "consumer goods", Points: 15},
				{Token: "spożywcz", Points: 10},
				{Token: "kosmety", Points: 10},
				{Token: "chemia gospodarcza", Points: 10},
			},
		},
		{
			Name: "Leadership",
			Cap:  25,
			Keywords: []Keyword{
				{Token: "director", Points: 25},
				{Token: "dyrektor", Points: 25},
				{Token: "head of", Points: 20},
				{Token: "vice president", Points: 20},
				{Token: "vp", Points: 20},
				{Token: "kierownik", Points: 10},
				{Token: "manager", Points: 10},
			},
		},
		{
			Name: "Commercial",
			Cap:  20,
			Keywords: []Keyword{
				{Token: "commercial", Points: 15},
				{Token: "retail", Points: 10},
				{Token: "e-commerce", Points: 10},
				{Token: "sales", Points: 10},
				{Token: "sprzedaż", Points: 10},
				{Token: "key account", Points: 5},
				{Token: "sieci handlowe", Points: 5},
				{Token: "marketplace", Points: 5},
			},
		},
		{
			Name: "Team Management",
			Cap:  10,
			Keywords: []Keyword{
				{Token: "team management", Points: 5},
				{Token: "people management", Points: 5},
				{Token: "zarządzanie zespołem", Points: 5},
				{Token: "budowanie zespołu", Points: 5},
				{Token: "lider", Points: 5},
			},
		},
		{
			Name: "Analytics",
			Cap:  10,
			Keywords: []Keyword{
				{Token: "data analysis", Points: 5},
				{Token: "analytics", Points: 5},
				{Token: "power bi", Points: 5},
				{Token: "excel", Points: 3},
				{Token: "sql", Points: 3},
				{Token: "raportowanie", Points: 3},
			},
		},
		{
			Name: "English",
			Cap:  5,
			Keywords: []Keyword{
				{Token: "english", Points: 5},
				{Token: "angielski", Points: 5},
				{Token: "fluent", Points: 5},
			},
		},
	}
}
