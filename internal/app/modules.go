package app

import (
	"github.com/specialistvlad/gamepipe/internal/cache"
	"github.com/specialistvlad/gamepipe/internal/handlers"
	"github.com/specialistvlad/gamepipe/modules/artifact"
	"github.com/specialistvlad/gamepipe/modules/exec"
	"github.com/specialistvlad/gamepipe/modules/extract"
	"github.com/specialistvlad/gamepipe/modules/filecopy"
	"github.com/specialistvlad/gamepipe/modules/unapply"
)

// coreModules is the definitive list of all step modules that are compiled
// into the gamepipe binary.
func coreModules(store *cache.Store) []handlers.Module {
	runner := exec.OSRunner{}
	return []handlers.Module{
		&filecopy.Module{},
		&exec.Module{Runner: runner},
		&unapply.Module{Runner: runner},
		&artifact.Module{Source: store},
		&extract.Module{},
	}
}
