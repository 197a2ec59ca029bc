// Package common contains constants and sentinel errors shared by the chat
// client, its transports and the relay backend.
package common

// AccessTokenHeaderName is the gRPC metadata key carrying the access token.
const AccessTokenHeaderName = "access_token"

// AuthorizationHeaderName is the HTTP header carrying "Bearer <token>".
const AuthorizationHeaderName = "Authorization"

// TopicPrefix scopes every conversation channel to a vehicle.
const TopicPrefix = "vehicle:"

// DeletedMarker replaces the body of a soft-deleted message on display.
const DeletedMarker = "This message was deleted"

// Topic returns the channel topic for a vehicle conversation.
func Topic(conversationID string) string {
	return TopicPrefix + conversationID
}

// ConversationFromTopic is the inverse of Topic. ok is false when the topic
// is not vehicle scoped or names no conversation.
func ConversationFromTopic(topic string) (id string, ok bool) {
	if len(topic) <= len(TopicPrefix) || topic[:len(TopicPrefix)] != TopicPrefix {
		return "", false
	}
	return topic[len(TopicPrefix):], true
}
