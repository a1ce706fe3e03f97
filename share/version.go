package wcshare

// BuildVersion is the version of the build, overridden with -ldflags
var BuildVersion = "0.0.0-src"
