// Package processor contains the application service shared by the GUI,
// the CLI, the HTTP server and the MCP tools. It loads the saved layout
// settings, composes notes from form input, submits them through
// AnkiConnect and records every attempt in the local history.
package processor
