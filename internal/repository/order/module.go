package order

import "go.uber.org/fx"

// Module provides the order store implementations to Fx.
var Module = fx.Provide(NewUnitOfWork, NewReader)
