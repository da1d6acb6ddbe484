// Package docingest ingests a documentation website into a structured,
// re-indexable corpus. It crawls pages under a path prefix, converts their
// content to markdown, classifies embedded media, and persists everything
// as append-only JSON Lines records for downstream cleaning and indexing.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., rod/, goquery/, sqlite/).
package docingest
