/*
Package session serializes access to per-chat conversation state.

The Manager pairs an in-process, reference-counted mutex per chat with an
optional DistributedLocker, and wraps every event in a load, mutate, then save
(or clear) cycle through Transact.
*/
package session
