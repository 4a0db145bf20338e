package device

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"delta-assistant/internal/domain"
)

// Settle delays encode real hardware latency: a device that just
// received power needs time before it accepts further writes.
const (
	climateSettle = 1500 * time.Millisecond
	fanSettle     = 500 * time.Millisecond
	lampSettle    = 800 * time.Millisecond
)

// Controller is the high-level facade over the registered devices. Each
// intent call is device-scoped and sequential; invalid individual
// fields are dropped, transport failures abort the remaining writes of
// that call. The climate/fan mutual-exclusion rule is a caller
// contract, it is not re-validated here.
type Controller struct {
	registry *Registry
	logger   *slog.Logger

	// settle waits between dependent writes; replaceable in tests.
	settle func(ctx context.Context, d time.Duration) error
}

func NewController(registry *Registry, logger *slog.Logger) *Controller {
	return &Controller{
		registry: registry,
		logger:   logger,
		settle:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// SetClimateState applies the provided fields to the air conditioner in
// a fixed order: power, temperature, mode, wind, then the auxiliary
// booleans. A power-on write is followed by a settle delay before
// anything else is sent.
func (c *Controller) SetClimateState(ctx context.Context, in domain.ClimateIntent) (domain.Changes, error) {
	dev, err := c.registry.Resolve(DeviceClimate)
	if err != nil {
		return nil, err
	}
	h, err := c.registry.Handle(ctx, DeviceClimate)
	if err != nil {
		return nil, err
	}

	changes := domain.Changes{}

	if in.Power != nil {
		if err := c.writeBool(ctx, h, dev, FieldPower, *in.Power); err != nil {
			return changes, err
		}
		changes["power"] = *in.Power
		if *in.Power {
			if err := c.settle(ctx, climateSettle); err != nil {
				return changes, err
			}
		}
	}

	if in.TargetTempC != nil {
		if v, ok, err := c.writeRaw(ctx, h, dev, FieldTemp, strconv.Itoa(*in.TargetTempC)); err != nil {
			return changes, err
		} else if ok {
			changes["target_temp_c"] = v.(int) / climateTempDomain.Scale
		}
	}

	for _, f := range []struct {
		field string
		key   string
		raw   *string
	}{
		{FieldMode, "mode", in.Mode},
		{FieldWind, "wind", in.Wind},
		{FieldUnit, "unit", in.Unit},
	} {
		if f.raw == nil {
			continue
		}
		if v, ok, err := c.writeRaw(ctx, h, dev, f.field, *f.raw); err != nil {
			return changes, err
		} else if ok {
			changes[f.key] = v
		}
	}

	for _, f := range []struct {
		field string
		key   string
		val   *bool
	}{
		{FieldEco, "eco", in.Eco},
		{FieldSleep, "sleep", in.Sleep},
		{FieldSwing, "swing", in.Swing},
		{FieldHealth, "health", in.Health},
		{FieldLight, "light", in.Light},
		{FieldLock, "lock", in.Lock},
	} {
		if f.val == nil {
			continue
		}
		if err := c.writeBool(ctx, h, dev, f.field, *f.val); err != nil {
			return changes, err
		}
		changes[f.key] = *f.val
	}

	return changes, nil
}

// SetFanState drives the ceiling fan. When the fan is being turned on
// and a speed is also requested, a short settle delay separates the two
// writes so the speed is not lost by the switch firmware.
func (c *Controller) SetFanState(ctx context.Context, in domain.FanIntent) (domain.Changes, error) {
	dev, err := c.registry.Resolve(DeviceSwitch)
	if err != nil {
		return nil, err
	}
	h, err := c.registry.Handle(ctx, DeviceSwitch)
	if err != nil {
		return nil, err
	}

	changes := domain.Changes{}

	if in.Power != nil {
		if err := c.writeBool(ctx, h, dev, FieldFanPower, *in.Power); err != nil {
			return changes, err
		}
		changes["power"] = *in.Power
		if *in.Power && in.Speed != nil {
			if err := c.settle(ctx, fanSettle); err != nil {
				return changes, err
			}
		}
	}

	if in.Speed != nil {
		if v, ok, err := c.writeRaw(ctx, h, dev, FieldFanSpeed, *in.Speed); err != nil {
			return changes, err
		} else if ok {
			changes["speed"] = v
		}
	}

	return changes, nil
}

// SetCeilingLampState switches the plain ceiling lamp circuit. This is
// a physically distinct circuit from the RGB bulb.
func (c *Controller) SetCeilingLampState(ctx context.Context, in domain.CeilingLampIntent) (domain.Changes, error) {
	dev, err := c.registry.Resolve(DeviceSwitch)
	if err != nil {
		return nil, err
	}
	h, err := c.registry.Handle(ctx, DeviceSwitch)
	if err != nil {
		return nil, err
	}

	if err := c.writeBool(ctx, h, dev, FieldCeilingLamp, in.Power); err != nil {
		return nil, err
	}
	return domain.Changes{"power": in.Power}, nil
}

// SetRgbLampState drives the RGB bulb. Its mains power is carried by
// the switch box's lamp circuit, so a power-on goes through the switch
// first and waits for the bulb to boot. Numeric writes without a mode
// preset force the bulb into white work mode so they take effect.
func (c *Controller) SetRgbLampState(ctx context.Context, in domain.RgbLampIntent) (domain.Changes, error) {
	changes := domain.Changes{}

	if in.Power != nil {
		swDev, err := c.registry.Resolve(DeviceSwitch)
		if err != nil {
			return nil, err
		}
		swHandle, err := c.registry.Handle(ctx, DeviceSwitch)
		if err != nil {
			return nil, err
		}
		if err := c.writeBool(ctx, swHandle, swDev, FieldCeilingLamp, *in.Power); err != nil {
			return changes, err
		}
		changes["power"] = *in.Power
		if *in.Power {
			if err := c.settle(ctx, lampSettle); err != nil {
				return changes, err
			}
		}
	}

	if in.Mode == nil && in.Brightness == nil && in.Temperature == nil {
		return changes, nil
	}

	dev, err := c.registry.Resolve(DeviceRGBLamp)
	if err != nil {
		return changes, err
	}
	h, err := c.registry.Handle(ctx, DeviceRGBLamp)
	if err != nil {
		return changes, err
	}

	workModeSet := false

	if in.Mode != nil {
		preset, err := ResolvePreset(*in.Mode)
		if err != nil {
			c.dropField(FieldMode, *in.Mode, err)
		} else {
			for _, w := range []domain.Write{
				{DPS: dev.Attributes[FieldWorkMode].DPS, Value: "white"},
				{DPS: dev.Attributes[FieldBrightness].DPS, Value: preset.Brightness},
				{DPS: dev.Attributes[FieldColorTemp].DPS, Value: preset.ColorTemp},
			} {
				if err := h.WriteAttribute(ctx, w.DPS, w.Value); err != nil {
					return changes, fmt.Errorf("writing %s dps %d: %w", dev.Name, w.DPS, err)
				}
			}
			workModeSet = true
			changes["mode"] = preset.Name
			changes["brightness"] = preset.Brightness
			changes["temperature"] = preset.ColorTemp
		}
	}

	ensureWhite := func() error {
		if workModeSet {
			return nil
		}
		if err := h.WriteAttribute(ctx, dev.Attributes[FieldWorkMode].DPS, "white"); err != nil {
			return fmt.Errorf("writing %s work mode: %w", dev.Name, err)
		}
		workModeSet = true
		return nil
	}

	if in.Brightness != nil {
		v, note, err := Normalize(FieldBrightness, dev.Attributes[FieldBrightness], strconv.Itoa(*in.Brightness))
		if err != nil {
			c.dropField(FieldBrightness, strconv.Itoa(*in.Brightness), err)
		} else {
			c.advise(note)
			if err := ensureWhite(); err != nil {
				return changes, err
			}
			if err := h.WriteAttribute(ctx, dev.Attributes[FieldBrightness].DPS, v); err != nil {
				return changes, fmt.Errorf("writing %s brightness: %w", dev.Name, err)
			}
			changes["brightness"] = v
		}
	}

	if in.Temperature != nil {
		v, note, err := Normalize(FieldColorTemp, dev.Attributes[FieldColorTemp], *in.Temperature)
		if err != nil {
			c.dropField(FieldColorTemp, *in.Temperature, err)
		} else {
			c.advise(note)
			if err := ensureWhite(); err != nil {
				return changes, err
			}
			if err := h.WriteAttribute(ctx, dev.Attributes[FieldColorTemp].DPS, v); err != nil {
				return changes, fmt.Errorf("writing %s color temp: %w", dev.Name, err)
			}
			changes["temperature"] = v
		}
	}

	return changes, nil
}

// writeRaw normalizes and writes one field. A rejected value is dropped
// (ok=false) without failing the call; a transport error is fatal for
// the remaining writes of the intent.
func (c *Controller) writeRaw(ctx context.Context, h Transport, dev *domain.Device, field, raw string) (any, bool, error) {
	spec, err := c.registry.Attribute(dev, field)
	if err != nil {
		return nil, false, err
	}
	v, note, err := Normalize(field, spec, raw)
	if err != nil {
		if domain.IsRejected(err) {
			c.dropField(field, raw, err)
			return nil, false, nil
		}
		return nil, false, err
	}
	c.advise(note)
	if err := h.WriteAttribute(ctx, spec.DPS, v); err != nil {
		return nil, false, fmt.Errorf("writing %s.%s: %w", dev.Name, field, err)
	}
	return v, true, nil
}

func (c *Controller) writeBool(ctx context.Context, h Transport, dev *domain.Device, field string, on bool) error {
	spec, err := c.registry.Attribute(dev, field)
	if err != nil {
		return err
	}
	if err := h.WriteAttribute(ctx, spec.DPS, on); err != nil {
		return fmt.Errorf("writing %s.%s: %w", dev.Name, field, err)
	}
	return nil
}

func (c *Controller) dropField(field, raw string, err error) {
	c.logger.Debug("dropping field", "field", field, "value", raw, "reason", err)
}

func (c *Controller) advise(note string) {
	if note != "" {
		c.logger.Info("value alias resolved", "note", note)
	}
}
