package ai

import "github.com/google/wire"

var Set = wire.NewSet(
	NewBotRepository,
	NewLLMGenerator,
	wire.Bind(new(Generator), new(*LLMGenerator)),
	NewService,
	NewHandler,
)
