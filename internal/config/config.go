// Package config binds the device's singleton DeviceConfig record (spec §6
// "Persisted on flash") to a viper-loaded configuration file, for the CLI
// harness and tests that need to seed a store without going through a full
// flow. Real firmware has no config file or environment variables (spec
// §6 "CLI surface: None"); this package exists only to construct the
// DeviceConfig value this module's simulation entry points pass to the
// store.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/cypherock/x1wallet/pkg/store"
)

// Defaults mirrors the factory-reset DeviceConfig the firmware ships with.
func Defaults() store.DeviceConfig {
	return store.DeviceConfig{
		DisplayRotated:    false,
		PassphraseEnabled: false,
		LoggingEnabled:    true,
		FamilyID:          [4]byte{0, 0, 0, 1},
	}
}

// Load reads a DeviceConfig from the given viper instance, falling back to
// Defaults() for any key left unset. v may come from a config file, flags,
// or environment variables bound by the caller (cobra's root command does
// this the same way for its own persistent flags).
func Load(v *viper.Viper) (store.DeviceConfig, error) {
	cfg := Defaults()
	if v == nil {
		return cfg, nil
	}
	if v.IsSet("display_rotated") {
		cfg.DisplayRotated = v.GetBool("display_rotated")
	}
	if v.IsSet("passphrase_enabled") {
		cfg.PassphraseEnabled = v.GetBool("passphrase_enabled")
	}
	if v.IsSet("logging_enabled") {
		cfg.LoggingEnabled = v.GetBool("logging_enabled")
	}
	if v.IsSet("family_id") {
		raw := v.GetString("family_id")
		var id [4]byte
		n, err := fmt.Sscanf(raw, "%02x%02x%02x%02x", &id[0], &id[1], &id[2], &id[3])
		if err != nil || n != 4 {
			return store.DeviceConfig{}, fmt.Errorf("config: invalid family_id %q: %w", raw, err)
		}
		cfg.FamilyID = id
	}
	return cfg, nil
}
