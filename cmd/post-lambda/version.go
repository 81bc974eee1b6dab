package main

// Set at build time via -ldflags "-X main.commitHash=... -X main.buildTime=...".
var (
	commitHash = "dev"
	buildTime  = "unknown"
)
