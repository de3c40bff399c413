package version

// Version is overridden at build time with -ldflags "-X github.com/hms-project/hmsctl/internal/version.Version=...".
var Version = "dev"
