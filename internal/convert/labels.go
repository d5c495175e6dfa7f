// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

// Labels holds the words used in synthesized section titles and in the
// coverage warning. Tables are selected by document language.
type Labels struct {
	Row      string
	Entry    string
	Content  string
	BaseData string
	Column   string
	Value    string

	// CoverageIssue is a format string taking the percentage as a float.
	CoverageIssue string
}

var labelTables = map[string]Labels{
	"de": {
		Row:           "Zeile",
		Entry:         "Eintrag",
		Content:       "Inhalt",
		BaseData:      "Grunddaten",
		Column:        "Spalte",
		Value:         "Wert",
		CoverageIssue: "Coverage nur %.0f%% – manuell prüfen",
	},
	"en": {
		Row:           "Row",
		Entry:         "Entry",
		Content:       "Content",
		BaseData:      "Base Data",
		Column:        "Column",
		Value:         "Value",
		CoverageIssue: "Coverage only %.0f%% – review manually",
	},
}

// LabelsFor returns the label table for lang, falling back to German.
func LabelsFor(lang string) Labels {
	if l, ok := labelTables[lang]; ok {
		return l
	}
	return labelTables["de"]
}
