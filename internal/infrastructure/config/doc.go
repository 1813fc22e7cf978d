// Package config handles loading and validating bulbsync configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// The bulb inventory and group definitions are static configuration: they
// are read once at startup and never change while the process runs.
//
// Security Considerations:
//   - Sensitive values (MQTT password, InfluxDB token, Wi-Fi key) should be
//     set via environment variables rather than committed to the config file
//   - The config file should have restricted permissions (0600)
//
// Performance Characteristics:
//   - Configuration is loaded once at startup
//   - No runtime overhead after initial load
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(len(cfg.Bulbs))
package config
