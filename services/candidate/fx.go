package candidate

import (
	"go.uber.org/fx"
)

var Module = fx.Module("candidate.module",
	fx.Provide(
		NewService,
	),
)
