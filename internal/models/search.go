package models

// Filter field names, shared by the search wizard and the matcher.
const (
	FilterGender   = "gender"
	FilterRegion   = "region"
	FilterCountry  = "country"
	FilterLanguage = "language"
)

var FilterFields = []string{FilterGender, FilterRegion, FilterCountry, FilterLanguage}

// SearchFilters narrows partner selection. An empty field matches anyone.
type SearchFilters struct {
	Gender   string `json:"gender,omitempty"`
	Region   string `json:"region,omitempty"`
	Country  string `json:"country,omitempty"`
	Language string `json:"language,omitempty"`
}

// IsEmpty reports whether no field is set.
func (f SearchFilters) IsEmpty() bool {
	return f == SearchFilters{}
}

// Matches reports whether every set field equals the candidate's attribute
// exactly. Candidates with an unset attribute never satisfy a set field.
func (f SearchFilters) Matches(u *User) bool {
	if u == nil {
		return false
	}
	for _, field := range FilterFields {
		want := f.Get(field)
		if want == "" {
			continue
		}
		if u.Attribute(field) != want {
			return false
		}
	}
	return true
}

// Get returns the value of a named field.
func (f SearchFilters) Get(field string) string {
	switch field {
	case FilterGender:
		return f.Gender
	case FilterRegion:
		return f.Region
	case FilterCountry:
		return f.Country
	case FilterLanguage:
		return f.Language
	}
	return ""
}

// With returns a copy with the named field set to value.
func (f SearchFilters) With(field, value string) SearchFilters {
	switch field {
	case FilterGender:
		f.Gender = value
	case FilterRegion:
		f.Region = value
	case FilterCountry:
		f.Country = value
	case FilterLanguage:
		f.Language = value
	}
	return f
}
