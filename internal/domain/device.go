package domain

// DomainKind describes the value domain accepted by a device attribute.
type DomainKind int

const (
	// DomainBool accepts the bilingual on/off token set.
	DomainBool DomainKind = iota
	// DomainInt accepts integers clamped into [Lo,Hi], optionally scaled.
	DomainInt
	// DomainEnum accepts a canonical string set plus aliases.
	DomainEnum
	// DomainPreset expands into a fixed group of attribute writes.
	DomainPreset
)

// ValueDomain is the accepted-value descriptor for one attribute.
type ValueDomain struct {
	Kind DomainKind

	// Bounded integer domains.
	Lo, Hi int
	// Scale multiplies the clamped value before it goes on the wire
	// (the climate unit stores °C as value*10). Zero means no scaling.
	Scale int
	// PercentHi: integer inputs in [1,PercentHi] are treated as a
	// percentage and multiplied by 10 before clamping.
	PercentHi int

	// Enum domains. Aliases maps lowercase tokens to canonical values;
	// canonical values map to themselves. Notes carries advisory
	// messages for tokens that resolve but deserve a remark.
	Aliases map[string]string
	Notes   map[string]string
}

// AttributeSpec binds a semantic field to a protocol data point.
type AttributeSpec struct {
	DPS    int
	Domain ValueDomain
}

// Device is one addressable unit. Identity fields come from config;
// the attribute map is static for the device's kind.
type Device struct {
	Name       string
	ID         string
	Address    string
	LocalKey   string
	Version    string
	Attributes map[string]AttributeSpec
}

// Write is a protocol-ready attribute write: the value is guaranteed to
// satisfy the target attribute's domain.
type Write struct {
	DPS   int
	Value any
}

// Changes records the semantic fields an intent actually applied.
type Changes map[string]any
