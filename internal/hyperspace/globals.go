package hyperspace

import (
	"sync/atomic"

	"github.com/gookit/color"
)

// isCriticalAtomic is 1 while a pipeline run is mutating a bundle.
// The signal handler refuses the first interrupt during that window.
var isCriticalAtomic atomic.Int32

var (
	appVersion = "dev"     // overridden at build time
	buildDate  = "unknown" // overridden at build time

	// Debug enables debugf output. Set from config or --debug.
	Debug bool
)

// color helpers
var (
	colInfo    = color.Info // style provided by gookit/color
	colWarn    = color.Warn
	colError   = color.Error
	colSuccess = color.HEX("#1976D2")
	colArrow   = color.HEX("#FFEB3B")
	colNote    = color.Tag("notice")
)
