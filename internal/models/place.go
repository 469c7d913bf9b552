package models

// AccuracyLevel is the most specific administrative tier resolved for a place.
type AccuracyLevel int

// Accuracy levels ordered from the most general to the most specific.
const (
	AccuracyCountry AccuracyLevel = iota
	AccuracyState
	AccuracyCounty
	AccuracyCity
	AccuracyStreet
	AccuracyHouse
)

var accuracyNames = [...]string{"country", "state", "county", "city", "street", "house"}

func (a AccuracyLevel) String() string {
	if a < AccuracyCountry || int(a) >= len(accuracyNames) {
		return "unknown"
	}

	return accuracyNames[a]
}

// AddressField selects one address component of a Place. Each field maps to the accuracy
// level of the same tier.
type AddressField = AccuracyLevel

// Address field selectors.
const (
	FieldCountry = AccuracyCountry
	FieldState   = AccuracyState
	FieldCounty  = AccuracyCounty
	FieldCity    = AccuracyCity
	FieldStreet  = AccuracyStreet
	FieldHouse   = AccuracyHouse
)

// Place is a canonical reverse-geocoding result. Two places are the same entity iff their IDs match.
type Place struct {
	ID       string        `json:"id"`
	Accuracy AccuracyLevel `json:"accuracy"`
	Country  string        `json:"country,omitempty"`
	State    string        `json:"state,omitempty"`
	County   string        `json:"county,omitempty"`
	City     string        `json:"city,omitempty"`
	Street   string        `json:"street,omitempty"`
	House    string        `json:"house,omitempty"`
}

// Field returns the value of the selected address component.
func (p *Place) Field(field AddressField) string {
	if ptr := p.fieldPtr(field); ptr != nil {
		return *ptr
	}

	return ""
}

// Set stores a non-empty value and raises the accuracy to the field's tier.
// Empty values are ignored and never lower the accuracy.
func (p *Place) Set(field AddressField, value string) {
	ptr := p.fieldPtr(field)
	if ptr == nil || value == "" {
		return
	}

	*ptr = value
	if field > p.Accuracy {
		p.Accuracy = field
	}
}

// Fill behaves like Set but only when the field has not been resolved yet.
func (p *Place) Fill(field AddressField, value string) {
	if p.Field(field) != "" {
		return
	}
	p.Set(field, value)
}

func (p *Place) fieldPtr(field AddressField) *string {
	switch field {
	case FieldCountry:
		return &p.Country
	case FieldState:
		return &p.State
	case FieldCounty:
		return &p.County
	case FieldCity:
		return &p.City
	case FieldStreet:
		return &p.Street
	case FieldHouse:
		return &p.House
	default:
		return nil
	}
}
