/*
Package libris is a conversational engine for an office lending library.

Members talk to a chat bot to list, reserve, take and return books by scanning
QR codes on shelves and books; administrators curate the catalog, locations
and wishlists through guided multi-step conversations.

The engine (internal/runtime) consumes one text or button event at a time per
chat, keeps the half-filled form of each conversation in a session store
(pkg/session and pkg/adapters) and persists entities through ports.EntityStore.
Events arrive over HTTP (pkg/adapters/http) or the console (pkg/runner).

	libris migrate
	libris directory add-employee "Ada Admin" ada@example.com
	libris serve
*/
package libris

// Version is the release of this module.
var Version = "0.1.0"
