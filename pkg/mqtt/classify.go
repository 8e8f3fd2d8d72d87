package mqtt

import (
	"fmt"
	"strings"
)

// Classify extracts (deviceID, messageType) from a topic of the form
// <prefix-segments>/<deviceID>/<messageType>. The two identifiers always
// occupy the trailing segments; anything shorter is unroutable.
func Classify(topic string) (deviceID string, messageType string, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 || parts[len(parts)-2] == "" || parts[len(parts)-1] == "" {
		return "", "", fmt.Errorf("topic %q has too few segments", topic)
	}
	return parts[len(parts)-2], parts[len(parts)-1], nil
}
