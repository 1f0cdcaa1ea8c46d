package metrics

import "github.com/google/wire"

var Set = wire.NewSet(ProvideMetrics)
