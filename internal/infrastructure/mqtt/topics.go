package mqtt

// Topic prefixes.
const (
	TopicPrefix       = "backoffice"
	TopicPrefixSystem = TopicPrefix + "/system"
	TopicPrefixAuth   = TopicPrefix + "/auth"
)

// Topics provides builders for the service's MQTT topics.
//
//	topic := mqtt.Topics{}.AuthStats()
//	// Returns: "backoffice/auth/stats"
type Topics struct{}

// SystemStatus returns the online/offline status topic.
//
// Example: backoffice/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// AuthStats returns the topic carrying auth counter snapshots.
//
// Example: backoffice/auth/stats
func (Topics) AuthStats() string {
	return TopicPrefixAuth + "/stats"
}

// AllTopics returns a pattern matching every back-office topic.
//
// Pattern: backoffice/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
