package config

import "fmt"

// Variant selects which hardware-configuration contract to validate
// against. The variant is a deployment choice (set in the appliance
// settings), not stored in the hardware config file itself.
type Variant string

const (
	// VariantEncoderOled is the legacy build: two I2C encoders and an OLED.
	VariantEncoderOled Variant = "encoder_oled"
	// VariantRotary is the switch-based build: BCD rotary switches on GPIO
	// pins plus a single volume encoder.
	VariantRotary Variant = "rotary"
)

// ButtonAction is what pressing the volume encoder's push button does.
type ButtonAction string

const (
	ButtonPlayPause  ButtonAction = "play_pause"
	ButtonMuteToggle ButtonAction = "mute_toggle"
	ButtonNoop       ButtonAction = "noop"
)

// Polling defaults applied when the optional timing fields are absent.
const (
	defaultStabilityWindow    = 0.12
	defaultInvalidLogInterval = 5.0
)

var switchBits = []string{"bit0", "bit1", "bit2", "bit3"}

var requiredControls = []string{
	"bank_min", "bank_max", "station_min", "station_max",
	"volume_min", "volume_max", "volume_step",
}

// ValidateHardware checks a decoded hardware-config tree against the
// contract of the given variant and returns every problem found, in the
// order the fields are checked. Malformed input is the expected case and
// produces issues, never a panic. An unknown variant yields a single issue
// naming it.
func ValidateHardware(tree any, variant Variant) Issues {
	switch variant {
	case VariantEncoderOled:
		return validateEncoderOled(tree)
	case VariantRotary:
		return validateRotary(tree)
	}
	return Issues{{Message: fmt.Sprintf("unknown hardware variant: %s", variant)}}
}

// validateEncoderOled checks the legacy encoder + OLED contract. The legacy
// deployments only ever broke by leaving whole sections out, so this
// variant is presence-only.
func validateEncoderOled(tree any) Issues {
	var issues Issues

	cfg, ok := asMapping(tree)
	if !ok {
		issues.addf("", "hardware config must be a mapping")
		return issues
	}

	if i2c, ok := cfg["i2c"]; !ok {
		issues.addf("i2c", "missing section")
	} else {
		if _, ok := get(i2c, "encoder_i2c_address"); !ok {
			issues.addf("i2c.encoder_i2c_address", "missing")
		}
		if _, ok := get(i2c, "oled_i2c_address"); !ok {
			issues.addf("i2c.oled_i2c_address", "missing")
		}
	}

	if _, ok := cfg["encoders"]; !ok {
		issues.addf("encoders", "missing section")
	}

	if controls, ok := cfg["controls"]; !ok {
		issues.addf("controls", "missing section")
	} else {
		for _, key := range requiredControls {
			if _, ok := get(controls, key); !ok {
				issues.addf("controls."+key, "missing")
			}
		}
	}

	if _, ok := cfg["buttons"]; !ok {
		issues.addf("buttons", "missing section")
	}
	if _, ok := cfg["display"]; !ok {
		issues.addf("display", "missing section")
	}

	return issues
}

// validateRotary checks the switch-based contract. Section-level problems
// suppress descent into the section's fields so one root cause does not
// cascade into a wall of secondary errors.
func validateRotary(tree any) Issues {
	var issues Issues

	cfg, ok := asMapping(tree)
	if !ok {
		issues.addf("", "hardware config must be a mapping")
		return issues
	}

	if i2c, ok := asMapping(cfg["i2c"]); !ok {
		issues.addf("i2c", "missing or invalid section (must be a mapping)")
	} else {
		addr, ok := i2c["volume_i2c_address"]
		if !ok || addr == nil {
			issues.addf("i2c.volume_i2c_address", "missing")
		} else if _, err := ParseI2CAddress(addr); err != nil {
			issues.addf("i2c.volume_i2c_address", "invalid (%v): %v", addr, err)
		}
	}

	if switches, ok := asMapping(cfg["switches"]); !ok {
		issues.addf("switches", "missing or invalid section (must be a mapping)")
	} else {
		for _, swName := range []string{"station_switch", "bank_switch"} {
			sw, ok := asMapping(switches[swName])
			if !ok {
				issues.addf("switches."+swName, "missing or invalid (must be a mapping)")
				continue
			}
			for _, bit := range switchBits {
				if _, ok := asInt(sw[bit]); !ok {
					issues.addf(fmt.Sprintf("switches.%s.%s", swName, bit), "must be an integer GPIO pin")
				}
			}
		}

		for _, mapName := range []string{"bank_decode_map", "station_decode_map"} {
			raw, ok := switches[mapName]
			if !ok || raw == nil {
				continue // decode maps are optional
			}
			decodeMap, ok := asMapping(raw)
			if !ok {
				issues.addf("switches."+mapName, "must be a mapping of raw_code->decoded_digit")
				continue
			}
			for _, key := range sortedKeys(decodeMap) {
				if code, ok := asInt(key); !ok {
					issues.addf("switches."+mapName, "key %v must be an integer", key)
				} else if code < 0 || code > 15 {
					issues.addf("switches."+mapName, "key %d must be in range 0-15", code)
				}

				if digit, ok := asInt(decodeMap[key]); !ok {
					issues.addf(fmt.Sprintf("switches.%s[%v]", mapName, key), "must be an integer")
				} else if digit < 0 || digit > 9 {
					issues.addf(fmt.Sprintf("switches.%s[%v]", mapName, key), "must be in range 0-9")
				}
			}
		}
	}

	if encoders, ok := asMapping(cfg["encoders"]); !ok {
		issues.addf("encoders", "missing or invalid section (must be a mapping)")
	} else if _, ok := asInt(encoders["volume_encoder"]); !ok {
		issues.addf("encoders.volume_encoder", "must be an integer")
	}

	if controls, ok := asMapping(cfg["controls"]); !ok {
		issues.addf("controls", "missing or invalid section (must be a mapping)")
	} else {
		for _, key := range requiredControls {
			if _, ok := asInt(controls[key]); !ok {
				issues.addf("controls."+key, "must be an integer")
			}
		}

		// Cross-field checks run only when both operands individually
		// passed their type check, so a mistyped field cannot also produce
		// a misleading range error.
		checkRange := func(minKey, maxKey string) {
			lo, loOK := asInt(controls[minKey])
			hi, hiOK := asInt(controls[maxKey])
			if loOK && hiOK && lo > hi {
				issues.addf("controls."+minKey, "must be <= controls.%s", maxKey)
			}
		}
		checkRange("bank_min", "bank_max")
		checkRange("station_min", "station_max")
		checkRange("volume_min", "volume_max")

		if step, ok := asInt(controls["volume_step"]); ok && step <= 0 {
			issues.addf("controls.volume_step", "must be > 0")
		}
	}

	if buttons, ok := asMapping(cfg["buttons"]); !ok {
		issues.addf("buttons", "missing or invalid section (must be a mapping)")
	} else {
		action, _ := buttons["volume_button"].(string)
		switch ButtonAction(action) {
		case ButtonPlayPause, ButtonMuteToggle, ButtonNoop:
		default:
			issues.addf("buttons.volume_button", "must be one of: play_pause, mute_toggle, noop")
		}
	}

	if polling, ok := asMapping(cfg["polling"]); !ok {
		issues.addf("polling", "missing or invalid section (must be a mapping)")
	} else {
		if v, ok := asNumber(polling["switch_poll_interval"]); !ok || v <= 0 {
			issues.addf("polling.switch_poll_interval", "must be a number > 0")
		}
		if v, ok := asNumber(polling["switch_debounce"]); !ok || v < 0 {
			issues.addf("polling.switch_debounce", "must be a number >= 0")
		}
		if raw, ok := polling["switch_stability_window"]; ok {
			if v, ok := asNumber(raw); !ok || v < 0 {
				issues.addf("polling.switch_stability_window", "must be a number >= 0")
			}
		}
		if raw, ok := polling["invalid_code_log_interval"]; ok {
			if v, ok := asNumber(raw); !ok || v < 0 {
				issues.addf("polling.invalid_code_log_interval", "must be a number >= 0")
			}
		}
	}

	return issues
}
