//go:build mage

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binary = "surveytranslate"

// Default target to run when none is specified
var Default = Build

// Build compiles the server binary
func Build() error {
	fmt.Println("Building", binary, "...")
	return sh.RunV("go", "build", "-o", binary, "./cmd/"+binary)
}

// Test runs all package tests
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Vet runs go vet over all packages
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Run builds and starts the server, forwarding ARGS to it
func Run() error {
	mg.Deps(Build)
	return sh.RunV("./"+binary, strings.Fields(os.Getenv("ARGS"))...)
}

// Clean removes the built binary
func Clean() error {
	return sh.Rm(binary)
}
