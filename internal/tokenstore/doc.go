// Package tokenstore persists the attributes of an access grant.
//
// Supports three storage backends with different security and deployment tradeoffs:
//   - File: JSON document on the local filesystem, written atomically with 0600 permissions
//   - Env: Read-only environment variable holding a JSON document or a bare access token
//   - Keyring: OS-native credential storage (macOS Keychain, Windows Credential Manager, etc.)
//
// Refreshing a grant requires writable storage (file or keyring); a static
// access token can come from any backend including read-only env storage.
package tokenstore
