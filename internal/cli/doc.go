// Package cli provides command-line interface setup and configuration
// for the ankiform application. It handles flag parsing, command
// creation, configuration management using cobra and viper, and wires
// the application services shared by the GUI, HTTP and MCP front ends.
package cli
