// Package mqtt provides the MQTT integration for bulbsync.
//
// The client wraps paho.mqtt.golang with connection management,
// automatic reconnection, subscription restoration and Last Will and
// Testament so other services can detect when bulbsync goes offline.
//
// The Bridge on top of the client mirrors bulb state changes to
// retained state topics and accepts commands from command topics,
// making bulbs controllable from any MQTT-speaking system.
//
// # Topic Hierarchy
//
//	bulbsync/state/{bulb}     retained JSON state snapshots
//	bulbsync/command/{bulb}   inbound command payloads
//	bulbsync/system/status    online/offline status (retained, LWT)
//
// # Thread Safety
//
// All client and bridge methods are safe for concurrent use.
package mqtt
