// Package file provides file-based implementations of driven port interfaces.
//
// Adapters:
//   - ConfigStore: TOML configuration at ~/.permit-assets/config.toml
//   - PromptStore: editable prompt templates under ~/.permit-assets/prompts
package file
