//go:build mage

package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

const shaderDir = "assets/shaders"

// Compiles the Vulkan shader sources to SPIR-V next to them.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the anima2d binary.
func (Build) Engine() error {
	_, err := executeCmd("go", withArgs("build", "-o", "bin/anima2d", "."), withEnv("CGO_ENABLED=1"), withStream())
	return err
}

// Compiles the shaders and builds the binary.
func (Build) All() {
	mg.SerialDeps(Build.Shaders, Build.Engine)
}

func buildShaders() error {
	sources, err := filepath.Glob(filepath.Join(shaderDir, "*.vk.*"))
	if err != nil {
		return err
	}
	for _, source := range sources {
		if strings.HasSuffix(source, ".spv") {
			continue
		}
		out := strings.Replace(source, ".vk.", ".", 1) + ".spv"
		if _, err := executeCmd("glslc", withArgs(source, "-o", out), withStream()); err != nil {
			return fmt.Errorf("shader %s: %w", source, err)
		}
	}
	return nil
}
