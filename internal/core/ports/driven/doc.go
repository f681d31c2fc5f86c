// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - ArtifactStore: per-document, per-stage artifact persistence
//   - ExtractionBackend: language model used for structured extraction
//   - SiteMetadataSource: the external site table
//   - PromptStore: extraction prompt template
//   - ConfigStore: application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Translator: without it, raw text is used as translated text
//   - RunLedger: without it, runs are not recorded
//   - ProgressReporter: without it, progress events are dropped
//   - RowExporter, TextExtractor: used by the export and ingest commands
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
