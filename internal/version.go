package internal

// Version is the application version, overridden at build time with
// -ldflags "-X codeberg.org/snonux/ankiform/internal.Version=...".
var Version = "0.9.0"
