package pubsub

import (
	"fmt"
	"strconv"
	"strings"
)

// Channel naming: {prefix}:user:{userID}:{stream}.
const (
	ChannelPrefix   = "pulse"
	StreamEvents    = "events"
	channelUserPart = "user"
)

// UserChannel returns the realtime channel for a user.
func UserChannel(userID int64) string {
	return fmt.Sprintf("%s:%s:%d:%s", ChannelPrefix, channelUserPart, userID, StreamEvents)
}

// UserPattern matches every user's events channel.
func UserPattern() string {
	return fmt.Sprintf("%s:%s:*:%s", ChannelPrefix, channelUserPart, StreamEvents)
}

// ParseUserChannel extracts the user id from a channel built by UserChannel.
func ParseUserChannel(channel string) (int64, error) {
	parts := strings.Split(channel, ":")
	if len(parts) != 4 || parts[1] != channelUserPart {
		return 0, fmt.Errorf("invalid channel format: %s", channel)
	}
	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user id in channel %s: %w", channel, err)
	}
	return id, nil
}
