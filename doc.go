// Package contacttidy is a lightweight index for the packages in this module.
//
// This root package is documentation-only. Import specific subpackages to use
// concrete functionality.
//
// Available subpackages:
//   - github.com/spachava753/contacttidy/contacts
//     Contact model, directory interface and value normalization.
//   - github.com/spachava753/contacttidy/dedupe
//     Similarity scoring, duplicate detection, merging and auto-merge.
//   - github.com/spachava753/contacttidy/directory/sqlite
//     SQLite-backed contact directory.
//   - github.com/spachava753/contacttidy/config
//     YAML, dotenv and environment configuration.
//   - github.com/spachava753/contacttidy/gmail
//     Harvesting contacts from Gmail and mailing auto-merge reports.
//   - github.com/spachava753/contacttidy/macos/messages
//     Harvesting contacts from the macOS Messages database.
//
// The contacttidy command in cmd/contacttidy wires these together.
package contacttidy
