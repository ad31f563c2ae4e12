//go:build mage

package main

import (
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

var Default = Build

func Build() error {
	return sh.RunV("go", "build", "-o", "bin/metagraph", ".")
}

func Lint() error {
	return sh.RunV("golangci-lint", "run")
}

// Generate regenerates the mockery mocks.
func Generate() error {
	return sh.RunV("go", "generate", "./...")
}

func Update() error {
	if err := sh.RunV("go", "get", "-u", "-v"); err != nil {
		return err
	}
	return sh.RunV("go", "mod", "tidy", "-v")
}

type Test mg.Namespace

func (Test) All() error {
	return sh.RunV("go", "test", "-v", "./...")
}

func (Test) Cover() error {
	if err := sh.RunV("go", "test", "-coverprofile=cover.out", "./..."); err != nil {
		return err
	}
	return sh.RunV("go", "tool", "cover", "-func=cover.out")
}

// Pipeline runs the whole pipeline with the sample config and the sample lua oracle.
func Pipeline() error {
	mg.Deps(Build)
	config := os.Getenv("METAGRAPH_CONFIG")
	if config == "" {
		config = "metagraph.yml"
	}
	return sh.RunV("bin/metagraph", "--config", config, "run")
}
