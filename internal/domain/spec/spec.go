// Package spec holds the normalized query intent extracted from a customer
// message: the seven specification fields and the unit-aware range parser
// that turns their free-text values into numeric filters.
package spec

// Canonical field keys of a specification payload. Every payload must carry
// all seven, even when a value is intentionally empty.
const (
	KeyGroup  = "group"
	KeyObject = "object"
	KeyPrice  = "price"
	KeyPower  = "power"
	KeyWeight = "weight"
	KeyVolume = "volume"
	KeyIntent = "intent"
)

// CanonicalKeys lists the required payload keys in schema order.
var CanonicalKeys = []string{
	KeyGroup, KeyObject, KeyPrice, KeyPower, KeyWeight, KeyVolume, KeyIntent,
}

// Field is one specification value. The zero value is Unspecified —
// present in the mapping but intentionally empty.
type Field struct {
	value     string
	specified bool
}

// NewField creates a Field; an empty string yields Unspecified.
func NewField(v string) Field {
	if v == "" {
		return Field{}
	}
	return Field{value: v, specified: true}
}

// Specified reports whether the field carries a value.
func (f Field) Specified() bool { return f.specified }

// Value returns the raw extracted text ("" when unspecified).
func (f Field) Value() string { return f.value }

// Specification is the normalized seven-field query intent. It is created
// once per incoming query, consumed by the query compiler, then discarded.
type Specification struct {
	group  Field
	object Field
	price  Field
	power  Field
	weight Field
	volume Field
	intent Field
}

// New assembles a Specification from the seven canonical fields.
func New(group, object, price, power, weight, volume, intent Field) Specification {
	return Specification{
		group: group, object: object,
		price: price, power: power, weight: weight, volume: volume,
		intent: intent,
	}
}

// Group returns the product group field.
func (s Specification) Group() Field { return s.group }

// Object returns the product name/type field.
func (s Specification) Object() Field { return s.object }

// Price returns the price fragment.
func (s Specification) Price() Field { return s.price }

// Power returns the power fragment.
func (s Specification) Power() Field { return s.power }

// Weight returns the weight fragment.
func (s Specification) Weight() Field { return s.weight }

// Volume returns the volume fragment.
func (s Specification) Volume() Field { return s.volume }

// Intent returns the user intent field.
func (s Specification) Intent() Field { return s.intent }

// NumericUnspecified reports whether all four numeric fields are empty,
// which triggers the best-seller ranking fallback.
func (s Specification) NumericUnspecified() bool {
	return !s.price.Specified() && !s.power.Specified() &&
		!s.weight.Specified() && !s.volume.Specified()
}

// AsMap renders the specification as a flat mapping with every canonical
// key present; unspecified fields map to the empty string.
func (s Specification) AsMap() map[string]string {
	return map[string]string{
		KeyGroup:  s.group.Value(),
		KeyObject: s.object.Value(),
		KeyPrice:  s.price.Value(),
		KeyPower:  s.power.Value(),
		KeyWeight: s.weight.Value(),
		KeyVolume: s.volume.Value(),
		KeyIntent: s.intent.Value(),
	}
}
