// Package messages harvests contact candidates from the local macOS Messages
// database.
//
// Data source
//
//   - SQLite (~/Library/Messages/chat.db), opened read-only.
//
// Exported API
//
//  1. ListHandles(ctx, input)
//     Conversation partners ordered by most recent message, with message
//     counts and the display name of their one-to-one chat when set.
//  2. Harvest(ctx, input)
//     The same handles folded into contact drafts: email handles become email
//     drafts, phone handles with at least seven digits become phone drafts.
//     Short codes are skipped.
//
// Operational notes
//
//   - Reading chat.db requires Full Disk Access for the calling process
//     (System Settings -> Privacy & Security -> Full Disk Access).
//   - SQLite access uses github.com/mattn/go-sqlite3 (CGO required).
//   - HarvestInput.Path points Harvest at a copy of the database, which is
//     useful when Messages holds a lock on the live file.
package messages
