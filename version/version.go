package version

// Version is the current release of the safelady server.
const Version = "0.1.0"
