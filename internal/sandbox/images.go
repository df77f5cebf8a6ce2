package sandbox

import (
	"os"
	"path/filepath"
)

// imageFor picks a container image for the working directory. A custom
// image from config wins; otherwise the toolchain is inferred from the
// manifest files present.
func imageFor(workDir string, config Config) string {
	if config.DockerImage != "" {
		return config.DockerImage
	}

	exists := func(name string) bool {
		_, err := os.Stat(filepath.Join(workDir, name))
		return err == nil
	}

	switch {
	case exists("go.mod"):
		return "golang:alpine"
	case exists("package.json"):
		return "node:alpine"
	case exists("pyproject.toml") || exists("requirements.txt"):
		return "python:alpine"
	case exists("Cargo.toml"):
		return "rust:alpine"
	default:
		return "alpine:latest"
	}
}
