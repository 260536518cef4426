// Package namespace derives vector-store partition keys for a (user, session)
// pair and tears a session's data down.
package namespace

import "strings"

var escaper = strings.NewReplacer("%", "%25", "_", "%5F")

// escape makes a component free of "_" so the templates below split
// unambiguously. Ids without "%" or "_" pass through unchanged.
func escape(s string) string {
	return escaper.Replace(s)
}

// Doc returns the document namespace "user_{user}_session_{session}".
func Doc(userID, sessionID string) string {
	return "user_" + escape(userID) + "_session_" + escape(sessionID)
}

// Chat returns the chat namespace "chat_{user}_{session}".
func Chat(userID, sessionID string) string {
	return "chat_" + escape(userID) + "_" + escape(sessionID)
}
