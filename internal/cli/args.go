// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// ARG PARSER
// =============================================================================

// ArgParser splits command arguments into flags and positionals.
// It accepts these forms:
//   - --flag value and --flag=value
//   - -f value
//   - --flag for booleans
//
// Flags named in the parser's boolean set never consume the next argument,
// so "render --ten-bit clip.mp4" keeps clip.mp4 positional.
type ArgParser struct {
	flags      map[string]string
	boolFlags  map[string]bool
	positional []string
	raw        []string
}

// NewArgParser parses raw. bools names the flags that take no value.
//
// Example:
//
//	args := NewArgParser([]string{"clip.mp4", "-o", "out.mkv", "--codec=ffv1", "--interlace"}, "interlace")
//	args.Positional(0)       // "clip.mp4"
//	args.Flag("o")           // "out.mkv"
//	args.Flag("codec")       // "ffv1"
//	args.BoolFlag("interlace") // true
func NewArgParser(raw []string, bools ...string) *ArgParser {
	isBool := make(map[string]bool, len(bools))
	for _, b := range bools {
		isBool[b] = true
	}
	p := &ArgParser{
		flags:     make(map[string]string),
		boolFlags: make(map[string]bool),
		raw:       raw,
	}

	for i := 0; i < len(raw); i++ {
		arg := raw[i]
		if arg == "--" {
			p.positional = append(p.positional, raw[i+1:]...)
			break
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			p.positional = append(p.positional, arg)
			continue
		}

		name := strings.TrimLeft(arg, "-")
		if k, v, ok := strings.Cut(name, "="); ok {
			if isBool[k] || v == "true" || v == "false" {
				b, err := ParseBoolString(v)
				p.boolFlags[k] = err == nil && b
			} else {
				p.flags[k] = v
			}
			continue
		}

		if !isBool[name] && i+1 < len(raw) && !looksLikeFlag(raw[i+1]) {
			p.flags[name] = raw[i+1]
			i++
			continue
		}
		p.boolFlags[name] = true
	}
	return p
}

// looksLikeFlag reports whether s starts a new flag. Negative numbers are
// values.
func looksLikeFlag(s string) bool {
	if !strings.HasPrefix(s, "-") || s == "-" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err != nil
}

// Flag returns the value of the first of names that is set, or "". Use it
// with a long and a short name: Flag("output", "o").
func (p *ArgParser) Flag(names ...string) string {
	for _, n := range names {
		if v, ok := p.flags[strings.TrimLeft(n, "-")]; ok {
			return v
		}
	}
	return ""
}

// FlagOrDefault returns the flag value or a default if not found.
func (p *ArgParser) FlagOrDefault(name, defaultValue string) string {
	if val := p.Flag(name); val != "" {
		return val
	}
	return defaultValue
}

// FlagInt returns the flag as an integer. ok is false when it is unset.
func (p *ArgParser) FlagInt(name string) (val int, ok bool, err error) {
	s := p.Flag(name)
	if s == "" {
		return 0, false, nil
	}
	val, err = strconv.Atoi(s)
	if err != nil {
		return 0, true, NewValidationErrorWithExample(name, s, "must be an integer", "--"+name+" 23")
	}
	return val, true, nil
}

// FlagSeconds returns a duration flag given in seconds, such as "2.5", or
// in Go duration syntax, such as "1m30s".
func (p *ArgParser) FlagSeconds(name string) (time.Duration, bool, error) {
	s := p.Flag(name)
	if s == "" {
		return 0, false, nil
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), true, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, true, NewValidationErrorWithExample(name, s, "must be seconds or a duration", "--"+name+" 7.5")
	}
	return d, true, nil
}

// BoolFlag returns the value of a boolean flag, false when unset.
func (p *ArgParser) BoolFlag(name string) bool {
	return p.boolFlags[strings.TrimLeft(name, "-")]
}

// Positional returns the positional argument at index, or "".
func (p *ArgParser) Positional(index int) string {
	if index < 0 || index >= len(p.positional) {
		return ""
	}
	return p.positional[index]
}

// PositionalCount returns the number of positional arguments.
func (p *ArgParser) PositionalCount() int {
	return len(p.positional)
}

// HasFlag returns true if the flag exists (either as string or bool flag).
func (p *ArgParser) HasFlag(name string) bool {
	name = strings.TrimLeft(name, "-")
	_, hasString := p.flags[name]
	_, hasBool := p.boolFlags[name]
	return hasString || hasBool
}

// Raw returns the original raw arguments.
func (p *ArgParser) Raw() []string {
	return p.raw
}

// ParseBoolString parses a boolean from various string representations.
// Accepts: true/false, yes/no, y/n, 1/0, on/off (case-insensitive)
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1", "on":
		return true, nil
	case "false", "no", "n", "0", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value: %s", s)
	}
}
