//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Default target to run when none is specified
// If not set, running mage will list available targets
var Default = Build

// Build compiles the alpidesim executable into ./bin.
func Build() error {
	mg.Deps(Generate)

	fmt.Println("Building alpidesim executable...")

	version := os.Getenv("ALPIDESIM_VERSION")
	ldflags := ""
	if version != "" {
		ldflags = "-X github.com/sarchlab/alpidesim/alpidesim/cmd.Version=" + version
	}

	err := sh.RunV("go", "build", "-ldflags", ldflags,
		"-o", "./bin/alpidesim", "./alpidesim")
	if err != nil {
		return err
	}

	fmt.Println("Compilation finished")

	return nil
}

// Generate regenerates the mocks.
func Generate() error {
	fmt.Println("Generating mocks...")
	return sh.RunV("go", "generate", "./...")
}

// Test runs all the test suites.
func Test() error {
	mg.Deps(Generate)
	return sh.RunV("go", "run", "github.com/onsi/ginkgo/v2/ginkgo",
		"-r", "--randomize-all", "--race")
}

// Lint runs go vet and, when it is installed, golangci-lint.
func Lint() error {
	if err := sh.RunV("go", "vet", "./..."); err != nil {
		return err
	}

	if _, err := sh.Output("golangci-lint", "version"); err != nil {
		fmt.Println("golangci-lint not found, skipping")
		return nil
	}

	return sh.RunV("golangci-lint", "run", "./...")
}

// Clean removes the executables and the run directories of the default
// settings.
func Clean() error {
	fmt.Println("Cleaning...")

	for _, dir := range []string{"bin", "sim_output"} {
		if err := sh.Rm(dir); err != nil {
			return err
		}
	}

	return nil
}
