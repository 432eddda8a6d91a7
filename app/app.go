package app

import (
	"time"

	"github.com/mbolis/encuestas-pae/config"
	"github.com/mbolis/encuestas-pae/export"
	"github.com/mbolis/encuestas-pae/store"
)

// App bundles what the handlers need. It is built once in main.
type App struct {
	*store.Store
	Shaper   *export.Shaper
	Archiver export.Archiver // nil when exports are not archived
	Now      func() time.Time
	config.Config
}
