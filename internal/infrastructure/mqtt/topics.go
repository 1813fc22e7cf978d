package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes for the bulbsync MQTT hierarchy.
const (
	// TopicPrefix is the base for all bulbsync topics.
	TopicPrefix = "bulbsync"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "bulbsync/system"
)

// Topics provides builders for bulbsync MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
type Topics struct{}

// BulbState returns the retained state topic for a bulb.
//
// Example: bulbsync/state/lamp
func (Topics) BulbState(bulb string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, bulb)
}

// BulbCommand returns the command topic for a bulb.
//
// Example: bulbsync/command/lamp
func (Topics) BulbCommand(bulb string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, bulb)
}

// AllCommands returns the wildcard pattern matching every bulb command topic.
//
// Example: bulbsync/command/+
func (Topics) AllCommands() string {
	return TopicPrefix + "/command/+"
}

// SystemStatus returns the system status topic used for LWT and
// graceful online/offline announcements.
//
// Example: bulbsync/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// BulbFromCommandTopic extracts the bulb name from a command topic.
// Returns an empty string if the topic is not a command topic.
func (Topics) BulbFromCommandTopic(topic string) string {
	prefix := TopicPrefix + "/command/"
	if !strings.HasPrefix(topic, prefix) {
		return ""
	}
	bulb := strings.TrimPrefix(topic, prefix)
	if bulb == "" || strings.Contains(bulb, "/") {
		return ""
	}
	return bulb
}
