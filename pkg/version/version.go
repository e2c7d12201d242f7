package version

// Version is the release version, overridden at build time via
// -ldflags "-X wikifetch/pkg/version.Version=...".
var Version = "v0.3.1"
