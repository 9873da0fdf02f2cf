/*
Package ports defines the driven ports (interfaces) of the library bot.

These interfaces decouple the conversation engine from storage, rendering and
transport implementations.

# Key Interfaces

  - StateStore: persists per-chat session State.
  - DistributedLocker: serializes access to one chat's session across replicas.
  - EntityStore: create/read/update/delete for books, locations, orders,
    wishlist items and the user directory.
  - QRGenerator / Mailer: opaque side effects used by workflows.
  - Engine: the inbound port used by the HTTP ingress and the console runner.
*/
package ports
