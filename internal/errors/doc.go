// Package errors provides structured, actionable error messages for
// the gatewire CLI.
//
// The errors package implements an error system that:
//   - Explains what went wrong in plain language
//   - Suggests how to fix issues
//   - Links to documentation for deeper understanding
//
// # Error Categories
//
// Errors are organized into categories:
//   - config: Configuration errors (missing token, invalid gatewire.json)
//   - gateway: Connection errors (URL resolution, fatal close codes)
//   - auth: Authentication errors (rejected token, disallowed intents)
//   - cli: Command errors (debug server startup)
//
// # Error Codes
//
// Each error has a unique code (e.g., "E100") that maps to:
//   - A short message describing the error
//   - A detailed explanation
//   - A documentation URL
//
// # Usage
//
//	err := errors.New("E103").
//	    WithSuggestion("Set GATEWIRE_TOKEN or add a token field to gatewire.json")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E103: Bot token missing
//	//
//	//   A bot token is required to connect to the gateway. Set it in
//	//   gatewire.json or via GATEWIRE_TOKEN.
//	//
//	//   Hint: Set GATEWIRE_TOKEN or add a token field to gatewire.json
//	//
//	//   Learn more: https://gatewire.dev/docs/errors/E103
package errors
