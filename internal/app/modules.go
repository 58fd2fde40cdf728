package app

import (
	"github.com/specialistvlad/fieldgraph/internal/registry"
	"github.com/specialistvlad/fieldgraph/modules/arithmetic"
	"github.com/specialistvlad/fieldgraph/modules/composite"
	"github.com/specialistvlad/fieldgraph/modules/conditional"
	"github.com/specialistvlad/fieldgraph/modules/constant"
	"github.com/specialistvlad/fieldgraph/modules/derivatives"
	"github.com/specialistvlad/fieldgraph/modules/logical"
	"github.com/specialistvlad/fieldgraph/modules/matrix"
	"github.com/specialistvlad/fieldgraph/modules/meshfield"
	"github.com/specialistvlad/fieldgraph/modules/nodeset"
	"github.com/specialistvlad/fieldgraph/modules/vector"
)

// coreModules is every field type family compiled into the binary.
var coreModules = []registry.Module{
	&arithmetic.Module{},
	&composite.Module{},
	&conditional.Module{},
	&constant.Module{},
	&derivatives.Module{},
	&logical.Module{},
	&matrix.Module{},
	&meshfield.Module{},
	&nodeset.Module{},
	&vector.Module{},
}
