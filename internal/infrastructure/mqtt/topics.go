package mqtt

// Topic layout. Every graydb topic lives under TopicRoot:
//
//	graydb/system/status       retained online/offline status
//	graydb/<driver>/events     one message per database operation
const (
	// TopicRoot is the first level of every graydb topic.
	TopicRoot = "graydb"

	// TopicPrefixSystem is the base for process-level topics.
	TopicPrefixSystem = TopicRoot + "/system"
)

// Topics builds graydb MQTT topics.
//
//	topic := mqtt.Topics{}.Events("sqlite3")
//	// Returns: "graydb/sqlite3/events"
type Topics struct{}

// Events returns the topic database events for driver are published on.
func (Topics) Events(driver string) string {
	return TopicRoot + "/" + sanitiseLevel(driver) + "/events"
}

// AllEvents matches the event topics of every driver.
//
// Pattern: graydb/+/events
func (Topics) AllEvents() string {
	return TopicRoot + "/+/events"
}

// SystemStatus returns the retained status topic.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// AllTopics matches every graydb topic.
func (Topics) AllTopics() string {
	return TopicRoot + "/#"
}

// sanitiseLevel keeps a single topic level free of separators and wildcards.
func sanitiseLevel(s string) string {
	if s == "" {
		return "unknown"
	}
	out := []byte(s)
	for i, b := range out {
		switch b {
		case '/', '+', '#':
			out[i] = '_'
		}
	}
	return string(out)
}
