package partner

import (
	"go.uber.org/fx"
)

var Module = fx.Module("partner.module",
	fx.Provide(
		NewService,
	),
)

var Worker = fx.Module("partner.worker",
	Module,
	fx.Invoke(
		RegisterHandlers,
	),
)
