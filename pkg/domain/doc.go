/*
Package domain contains the core models of the library bot.

It defines the persisted entities (books, locations, orders, wishlist items and
the user directory), the per-chat conversation State, the inbound Event and
outbound Reply shapes, and the failure taxonomy shared by the engine and the
store adapters. The package has no I/O and no persistence dependencies.

# Key Entities

  - State: the per-chat session (workflow, step, scratchpad).
  - Event / Reply: what the transport hands in and what it renders back.
  - BookEdit / WishlistEdit: closed sets of field edits applied through patches.
  - Failure: validation, not-found, conflict and store outcomes.
*/
package domain
