package realtime

import "github.com/google/wire"

var Set = wire.NewSet(NewRegistry, NewHub)
