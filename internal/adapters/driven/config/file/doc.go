// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data under the assistant's config directory.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//   - EnvConfigStore: environment overlay for ConfigStore, fed by .env files
//   - PromptStore: editable prompt templates
package file
