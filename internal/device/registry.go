package device

import (
	"context"
	"fmt"
	"sync"

	"delta-assistant/internal/domain"
)

// Device names as spoken and as configured.
const (
	DeviceSwitch  = "interruptor"
	DeviceClimate = "ar"
	DeviceRGBLamp = "lampada"
)

// Switch box fields.
const (
	FieldFanPower    = "ventilador"
	FieldFanSpeed    = "speed"
	FieldCeilingLamp = "lamp"
)

// Climate unit fields.
const (
	FieldPower  = "power"
	FieldTemp   = "temp"
	FieldMode   = "mode"
	FieldWind   = "wind"
	FieldEco    = "eco"
	FieldLight  = "light"
	FieldLock   = "lock"
	FieldUnit   = "unit"
	FieldSwing  = "swing"
	FieldSleep  = "sleep"
	FieldHealth = "health"
)

// RGB lamp fields.
const (
	FieldWorkMode   = "work_mode"
	FieldBrightness = "brightness"
	FieldColorTemp  = "color_temp"
)

// Transport is an open protocol handle to one device. The wire protocol
// behind it is opaque to the controller.
type Transport interface {
	WriteAttribute(ctx context.Context, dps int, value any) error
	Status(ctx context.Context) (map[string]any, error)
}

// Dialer opens a Transport for a device on first use.
type Dialer interface {
	Dial(ctx context.Context, dev *domain.Device) (Transport, error)
}

// Identity carries the per-installation network identity of a device.
type Identity struct {
	ID       string
	Address  string
	LocalKey string
	Version  string
}

// Registry holds the static device table. It does not change during
// operation except for lazy creation of transport handles.
type Registry struct {
	dialer  Dialer
	devices map[string]*domain.Device

	mu      sync.Mutex
	handles map[string]Transport
}

// NewRegistry builds the device table from the configured identities.
// Devices without a configured identity are still resolvable so that
// commands against them fail at the transport, not with a nil map.
func NewRegistry(dialer Dialer, identities map[string]Identity) *Registry {
	devices := make(map[string]*domain.Device, len(attributeMaps))
	for name, attrs := range attributeMaps {
		dev := &domain.Device{Name: name, Attributes: attrs}
		if id, ok := identities[name]; ok {
			dev.ID = id.ID
			dev.Address = id.Address
			dev.LocalKey = id.LocalKey
			dev.Version = id.Version
		}
		devices[name] = dev
	}
	return &Registry{
		dialer:  dialer,
		devices: devices,
		handles: make(map[string]Transport),
	}
}

// Resolve returns the device registered under name.
func (r *Registry) Resolve(name string) (*domain.Device, error) {
	dev, ok := r.devices[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownDevice, name)
	}
	return dev, nil
}

// Attribute returns the protocol binding for a semantic field.
func (r *Registry) Attribute(dev *domain.Device, field string) (domain.AttributeSpec, error) {
	spec, ok := dev.Attributes[field]
	if !ok {
		return domain.AttributeSpec{}, fmt.Errorf("%w: %s.%s", domain.ErrUnknownField, dev.Name, field)
	}
	return spec, nil
}

// Handle returns the transport for a device, dialing it on first use.
// Handles are cached for the process lifetime; there is no teardown
// beyond dropping the process.
func (r *Registry) Handle(ctx context.Context, name string) (Transport, error) {
	dev, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.handles[name]; ok {
		return h, nil
	}
	h, err := r.dialer.Dial(ctx, dev)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", name, err)
	}
	r.handles[name] = h
	return h, nil
}

// attributeMaps is the static protocol map for the three known device
// kinds, one data point id per semantic field.
var attributeMaps = map[string]map[string]domain.AttributeSpec{
	DeviceSwitch: {
		FieldFanPower:    {DPS: 1, Domain: boolDomain},
		FieldFanSpeed:    {DPS: 3, Domain: fanSpeedDomain},
		FieldCeilingLamp: {DPS: 5, Domain: boolDomain},
	},
	DeviceClimate: {
		FieldPower:  {DPS: 1, Domain: boolDomain},
		FieldTemp:   {DPS: 2, Domain: climateTempDomain},
		FieldMode:   {DPS: 4, Domain: climateModeDomain},
		FieldWind:   {DPS: 5, Domain: windDomain},
		FieldEco:    {DPS: 8, Domain: boolDomain},
		FieldLight:  {DPS: 13, Domain: boolDomain},
		FieldLock:   {DPS: 14, Domain: boolDomain},
		FieldUnit:   {DPS: 19, Domain: unitDomain},
		FieldSwing:  {DPS: 33, Domain: boolDomain},
		FieldSleep:  {DPS: 102, Domain: boolDomain},
		FieldHealth: {DPS: 106, Domain: boolDomain},
	},
	DeviceRGBLamp: {
		FieldMode:       {DPS: 21, Domain: domain.ValueDomain{Kind: domain.DomainPreset}},
		FieldWorkMode:   {DPS: 21, Domain: workModeDomain},
		FieldBrightness: {DPS: 22, Domain: brightnessDomain},
		FieldColorTemp:  {DPS: 23, Domain: colorTempDomain},
	},
}
