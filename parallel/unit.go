package parallel

import (
	"sync"
	"time"

	"github.com/katalvlaran/mwpm/dualinterface"
	"github.com/katalvlaran/mwpm/dualmodule"
	"github.com/katalvlaran/mwpm/primal"
)

// eventTimes is one unit's §6 "Profiler report" entry: start, children
// return, and end timestamps, all in wall-clock time until Profile()
// converts them to seconds-from-solve-start.
type eventTimes struct {
	start          time.Time
	childrenReturn time.Time
	end            time.Time
	hasChildren    bool
}

// unit is one node of the partition tree (§4.5 "Partition tree"): an owned
// serial primal engine, a dual-interface/backend pair, parent/child links,
// and the is_active flag guarding against double-solving.
type unit struct {
	mu sync.RWMutex

	info PartitionInfo

	itf     *dualinterface.Interface
	backend dualmodule.PartitionedBackend
	engine  primal.Engine

	isActive bool

	events eventTimes
}

func newUnit(info PartitionInfo, backend dualmodule.PartitionedBackend, engine primal.Engine) *unit {
	return &unit{
		info:     info,
		itf:      dualinterface.NewEmpty(),
		backend:  backend,
		engine:   engine,
		isActive: info.Leaf,
	}
}
