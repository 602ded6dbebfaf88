package compression

import (
	"strconv"
	"strings"
)

// MiB is the unit presets measure dictionary sizes in.
const MiB = 1 << 20

// Effort is the compression effort level a preset selects.
type Effort int

const (
	EffortLow Effort = iota
	EffortMedium
	EffortMax
)

// Params is the resolved tuning for one compression run.
type Params struct {
	// Preset is the name the params were resolved from.
	Preset string
	// Effort selects the match finder and search thoroughness.
	Effort Effort
	// DictCap is the sliding-window dictionary capacity in bytes.
	DictCap int
	// StreamFraming selects full xz stream framing instead of a one-shot
	// raw LZMA encoding, so the decoder can stay agnostic about which
	// framing the encoder picked.
	StreamFraming bool
}

// ParsePreset resolves a preset name into concrete tuning parameters.
// Matching is case-sensitive and exact:
//
//	ultra      maximum effort, heuristic dictionary, stream framing
//	ultra-<N>  maximum effort, N MiB dictionary, stream framing
//	max        maximum effort, 256 MiB dictionary
//	balanced   medium effort, 128 MiB dictionary
//	(other)    low effort, 64 MiB dictionary
//
// Unrecognized names, including "fast" and an unparsable ultra-<N> suffix,
// fall back to the lowest-effort tuning rather than erroring.
func ParsePreset(name string) Params {
	params := Params{Preset: name}

	switch {
	case name == "ultra":
		params.Effort = EffortMax
		params.DictCap = OptimalDictCap()
		params.StreamFraming = true
	case strings.HasPrefix(name, "ultra-"):
		mib, err := strconv.Atoi(name[len("ultra-"):])
		if err != nil || mib <= 0 {
			params.Effort = EffortLow
			params.DictCap = 64 * MiB
			break
		}
		params.Effort = EffortMax
		params.DictCap = mib * MiB
		params.StreamFraming = true
	case name == "max":
		params.Effort = EffortMax
		params.DictCap = 256 * MiB
	case name == "balanced":
		params.Effort = EffortMedium
		params.DictCap = 128 * MiB
	default:
		params.Effort = EffortLow
		params.DictCap = 64 * MiB
	}

	return params
}

// OptimalDictCap computes the dictionary size used by the plain "ultra"
// preset: a 256 MiB starting point rounded down to a power of two and
// clamped into [64 MiB, 1536 MiB].
func OptimalDictCap() int {
	dictCap := 256 * MiB

	rounded := 1
	for rounded < dictCap {
		rounded <<= 1
	}
	if rounded > dictCap {
		rounded >>= 1
	}
	dictCap = rounded

	if dictCap < 64*MiB {
		dictCap = 64 * MiB
	}
	if dictCap > 1536*MiB {
		dictCap = 1536 * MiB
	}
	return dictCap
}
