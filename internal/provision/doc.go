// Package provision recovers bulbs that have reverted to access point mode.
//
// A factory-reset or power-cycled bulb broadcasts an open LEDnetXXXXXX
// access point instead of joining the home network. The provisioner scans
// for those APs, joins one, pushes the home network credentials over the
// bulb's UDP AT command interface (port 48899), reboots it into station
// mode and then probes TCP 5577 on the LAN until the bulb reappears.
//
// Shell steps (nmcli, ip) go through an injected command runner and the
// AT exchange through an injected UDP exchanger, so the full flow is
// testable without a wireless interface or a bulb.
//
// Requires root at runtime for interface management.
package provision
