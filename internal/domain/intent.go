package domain

// Intent is a fully-typed device command decoded from a backend tool
// call. One variant per controllable device; dispatch is an exhaustive
// switch, never a name-based lookup.
type Intent interface {
	intent()
}

// ClimateIntent drives the split air conditioner. Nil fields are left
// unchanged on the device.
type ClimateIntent struct {
	Power       *bool
	TargetTempC *int
	Mode        *string
	Wind        *string
	Eco         *bool
	Sleep       *bool
	Swing       *bool
	Health      *bool
	Light       *bool
	Lock        *bool
	Unit        *string
}

// FanIntent drives the ceiling fan circuit on the switch box.
type FanIntent struct {
	Power *bool
	Speed *string
}

// CeilingLampIntent drives the plain ceiling lamp circuit.
type CeilingLampIntent struct {
	Power bool
}

// RgbLampIntent drives the RGB bulb. Power is physically carried by the
// switch box's lamp circuit, not by the bulb itself.
type RgbLampIntent struct {
	Power       *bool
	Mode        *string
	Brightness  *int
	Temperature *string
}

func (ClimateIntent) intent()     {}
func (FanIntent) intent()         {}
func (CeilingLampIntent) intent() {}
func (RgbLampIntent) intent()     {}
