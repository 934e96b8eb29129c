// aisearch CI/CD
//
// Package main runs the aisearch builds, tests and lint checks the same way
// locally and in GitHub actions.
package main

import (
	"context"

	"dagger/aisearch/internal/dagger"
)

// Aisearch is the CI/CD module for the aisearch client and mock backend.
type Aisearch struct {
	// Project source directory
	//
	// +private
	Source *dagger.Directory
}

// New creates a new Aisearch CI/CD module instance
func New(
	// Project source directory.
	//
	// +defaultPath="/"
	// +ignore=[".git", ".direnv", ".devenv", ".aisearch", "build", "tmp"]
	source *dagger.Directory,
) *Aisearch {
	return &Aisearch{
		Source: source,
	}
}

// goContainer returns a Go container with the module caches and the project
// source mounted. The client is pure Go so CGO stays off.
func (a *Aisearch) goContainer() *dagger.Container {
	return dag.Container().
		From("golang:1.25-bookworm").
		WithEnvVariable("CGO_ENABLED", "0").
		WithEnvVariable("PATH", "/go/bin:$PATH", dagger.ContainerWithEnvVariableOpts{Expand: true}).
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build")).
		WithWorkdir("/src").
		WithDirectory("/src", a.Source)
}

// Test runs the aisearch unit tests via "go test"
func (a *Aisearch) Test(ctx context.Context) (string, error) {
	return a.goContainer().
		WithExec([]string{"go", "test", "-race", "-v", "./..."}).
		Stdout(ctx)
}

// Vet runs "go vet" over every package.
//
// +check
func (a *Aisearch) Vet(ctx context.Context) (string, error) {
	return a.goContainer().
		WithExec([]string{"go", "vet", "./..."}).
		Stdout(ctx)
}
