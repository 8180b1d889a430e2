/*
Package session serializes access to conversations.

A Manager keeps one reference-counted mutex per session, optionally backed by a
distributed lock, so that read-modify-write cycles such as appending a chat turn
never lose messages across goroutines or replicas. Append also applies the
history limit, trimming old messages once a conversation grows too long.
*/
package session
