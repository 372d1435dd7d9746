package api

import (
	"github.com/JaimeStill/casestudio/internal/generations"
	"github.com/JaimeStill/casestudio/internal/generator"
	"github.com/JaimeStill/casestudio/internal/prompts"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Prompts     prompts.System
	Generations generations.System
}

// NewDomain creates all domain systems from the API runtime. Instruction
// overrides managed by the prompts system feed the generation client.
func NewDomain(runtime *Runtime) *Domain {
	promptsSystem := prompts.New(
		runtime.Database.Connection(),
		runtime.Logger,
		runtime.Pagination,
	)

	client := generator.New(
		runtime.Backend,
		promptsSystem,
		runtime.Model,
		runtime.Logger,
	)

	generationsSystem := generations.New(
		runtime.Database.Connection(),
		runtime.Storage,
		client,
		runtime.Telemetry,
		runtime.Logger,
		generations.Options{
			Stream:     runtime.Stream,
			Pagination: runtime.Pagination,
		},
	)

	return &Domain{
		Prompts:     promptsSystem,
		Generations: generationsSystem,
	}
}
