package main

// version will be set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	SetVersion(version)
	Execute()
}
