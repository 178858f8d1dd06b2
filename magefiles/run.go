//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Runs the testbed in a window.
func (Run) Testbed() error {
	if err := buildShaders(); err != nil {
		return err
	}
	fmt.Println("Run testbed...")
	_, err := executeCmd("go", withArgs("run", ".", "run", "--config", "anima.toml"), withStream())
	return err
}

// Renders the testbed headless to frame.png.
func (Run) Render() error {
	_, err := executeCmd("go", withArgs("run", ".", "render", "--frames", "3", "--out", "frame.png"), withStream())
	return err
}

// Runs the headless batching benchmark.
func (Run) Bench() error {
	_, err := executeCmd("go", withArgs("run", ".", "bench"), withStream())
	return err
}
