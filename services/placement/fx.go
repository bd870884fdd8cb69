package placement

import (
	"talentflow/services/candidate"

	"go.uber.org/fx"
)

var Module = fx.Module("placement.module",
	fx.Provide(
		NewService,
		func(s *Service) candidate.Starter { return s },
	),
)
