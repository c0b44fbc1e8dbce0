package internal

// Version is the application version reported by --version and /health
const Version = "0.3.0"
