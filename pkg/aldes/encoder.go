// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package aldes

import (
	"fmt"
	"math"
)

// CommandKind names one of the commands the controller accepts
type CommandKind string

// Command kinds
const (
	KindAuto     CommandKind = "auto"
	KindBoost    CommandKind = "boost"
	KindConfort  CommandKind = "confort"
	KindVacances CommandKind = "vacances"
	KindTemp     CommandKind = "temp"
	KindDebug    CommandKind = "debug"
)

// CommandKinds lists the supported kinds in protocol order
var CommandKinds = []CommandKind{KindAuto, KindBoost, KindConfort, KindVacances, KindTemp, KindDebug}

// Parameter names
const (
	ParamDuration    = "duration"
	ParamTemperature = "temperature"
)

// Command is a parsed command: a kind plus optional numeric parameters
type Command struct {
	Kind   CommandKind
	Params map[string]interface{}
}

// Encode builds the 10-byte command frame for cmd.
// Unknown kinds and non-numeric parameters wrap ErrInvalidCommand;
// parameters that do not fit a byte wrap ErrEncoding.
func Encode(cmd Command) ([]byte, error) {
	frame := commandTemplate

	switch cmd.Kind {
	case KindAuto:
		frame[posMode] = ModeAuto

	case KindBoost:
		frame[posMode] = ModeBoost

	case KindConfort:
		days, err := byteParam(cmd, ParamDuration, DefaultConfortDays)
		if err != nil {
			return nil, err
		}
		frame[posMode] = ModeConfort
		frame[posParamHigh] = 0x00
		frame[posParamLow] = days

	case KindVacances:
		days, err := byteParam(cmd, ParamDuration, DefaultVacancesDays)
		if err != nil {
			return nil, err
		}
		frame[posMode] = ModeVacances
		frame[posParamHigh] = 0x00
		frame[posParamLow] = days

	case KindTemp:
		raw, err := temperatureParam(cmd)
		if err != nil {
			return nil, err
		}
		frame[posTemperature] = raw

	case KindDebug:
		code, err := byteParam(cmd, ParamDuration, DefaultDebugCode)
		if err != nil {
			return nil, err
		}
		frame[posMode] = code

	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidCommand, cmd.Kind)
	}

	return AppendChecksum(frame[:]), nil
}

// byteParam reads an integer parameter that must fit in one byte
func byteParam(cmd Command, name string, def byte) (byte, error) {
	raw, ok := cmd.Params[name]
	if !ok || raw == nil {
		return def, nil
	}

	f, ok := numericParam(raw)
	if !ok {
		return 0, fmt.Errorf("%w: %s parameter %s is %T, want a finite number", ErrInvalidCommand, cmd.Kind, name, raw)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %s parameter %s must be an integer, got %v", ErrInvalidCommand, cmd.Kind, name, f)
	}
	if f < 0 || f > math.MaxUint8 {
		return 0, fmt.Errorf("%w: %s parameter %s=%v out of range 0-255", ErrEncoding, cmd.Kind, name, f)
	}
	return byte(f), nil
}

// temperatureParam converts the temperature in degrees into half-degree
// steps. Without a temperature the raw default byte is used.
func temperatureParam(cmd Command) (byte, error) {
	raw, ok := cmd.Params[ParamTemperature]
	if !ok || raw == nil {
		return DefaultTemperatureRaw, nil
	}

	celsius, ok := numericParam(raw)
	if !ok {
		return 0, fmt.Errorf("%w: temp parameter %s is %T, want a finite number", ErrInvalidCommand, ParamTemperature, raw)
	}
	steps := math.Round(celsius * 2)
	if steps < 0 || steps > math.MaxUint8 {
		return 0, fmt.Errorf("%w: temperature %v°C does not fit in a byte", ErrEncoding, celsius)
	}
	return byte(steps), nil
}

// Command builders

// NewAutoCommand switches the unit to automatic mode
func NewAutoCommand() Command {
	return Command{Kind: KindAuto}
}

// NewBoostCommand switches the unit to boost mode
func NewBoostCommand() Command {
	return Command{Kind: KindBoost}
}

// NewConfortCommand enables comfort mode for the given number of days
func NewConfortCommand(days int) Command {
	return Command{Kind: KindConfort, Params: map[string]interface{}{ParamDuration: int64(days)}}
}

// NewVacancesCommand enables holiday mode for the given number of days
func NewVacancesCommand(days int) Command {
	return Command{Kind: KindVacances, Params: map[string]interface{}{ParamDuration: int64(days)}}
}

// NewTempCommand sets the target temperature in degrees Celsius
func NewTempCommand(celsius float64) Command {
	return Command{Kind: KindTemp, Params: map[string]interface{}{ParamTemperature: celsius}}
}

// NewDebugCommand writes code directly into the mode byte
func NewDebugCommand(code uint8) Command {
	return Command{Kind: KindDebug, Params: map[string]interface{}{ParamDuration: int64(code)}}
}
