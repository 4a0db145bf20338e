package device

import "delta-assistant/internal/domain"

var boolDomain = domain.ValueDomain{Kind: domain.DomainBool}

// Target temperature in °C; the protocol stores value*10.
var climateTempDomain = domain.ValueDomain{
	Kind:  domain.DomainInt,
	Lo:    16,
	Hi:    30,
	Scale: 10,
}

var climateModeDomain = domain.ValueDomain{
	Kind: domain.DomainEnum,
	Aliases: map[string]string{
		"cold": "cold", "frio": "cold", "cool": "cold",
		"wet": "wet", "seco": "wet", "dry": "wet",
		"wind": "wind", "ventilar": "wind", "fan": "wind",
		"auto": "auto", "automatico": "auto",
	},
}

var windDomain = domain.ValueDomain{
	Kind: domain.DomainEnum,
	Aliases: map[string]string{
		"auto": "auto", "automatico": "auto",
		"mute": "mute", "off": "mute", "silencioso": "mute", "quieto": "mute",
		"low": "low", "baixo": "low",
		"mid": "mid", "medio": "mid",
		"high": "high", "alto": "high", "turbo": "high", "maximo": "high",
		"0": "mute", "1": "low", "2": "mid", "3": "high", "4": "high",
	},
	Notes: map[string]string{
		"off":    "wind off vira mute (silencioso)",
		"turbo":  "turbo no app equivale a high no protocolo local",
		"maximo": "maximo equivale a high no protocolo local",
		"4":      "4 equivale a high no protocolo local",
	},
}

var unitDomain = domain.ValueDomain{
	Kind: domain.DomainEnum,
	Aliases: map[string]string{
		"c": "C", "celsius": "C", "C": "C",
		"f": "F", "fahrenheit": "F", "F": "F",
	},
}

var fanSpeedDomain = domain.ValueDomain{
	Kind: domain.DomainEnum,
	Aliases: map[string]string{
		"1": "level_1", "baixo": "level_1", "low": "level_1",
		"2": "level_2", "medio_baixo": "level_2",
		"3": "level_3", "medio": "level_3", "middle": "level_3", "mid": "level_3",
		"4": "level_4", "medio_alto": "level_4",
		"5": "level_5", "alto": "level_5", "high": "level_5",
		"level_1": "level_1", "level_2": "level_2", "level_3": "level_3",
		"level_4": "level_4", "level_5": "level_5",
	},
}

var workModeDomain = domain.ValueDomain{
	Kind: domain.DomainEnum,
	Aliases: map[string]string{
		"white": "white", "colour": "colour", "scene": "scene", "music": "music",
	},
}

// Brightness 10..1000; 1..100 is read as a percentage.
var brightnessDomain = domain.ValueDomain{
	Kind:      domain.DomainInt,
	Lo:        10,
	Hi:        1000,
	PercentHi: 100,
}

// Color temperature 0 (warm, 2700K) .. 1000 (cold, 6500K).
var colorTempDomain = domain.ValueDomain{
	Kind: domain.DomainInt,
	Lo:   0,
	Hi:   1000,
	Aliases: map[string]string{
		"quente": "0", "warm": "0", "amarelo": "0",
		"frio": "1000", "cold": "1000", "branco": "1000",
	},
}
