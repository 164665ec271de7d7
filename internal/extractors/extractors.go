// Package extractors imports all extractor packages to trigger their init()
// registration. Import this package for side effects only.
package extractors

import (
	// Import all extractor packages to register them with the registry.
	_ "ais_parser/internal/extractors/aton"
	_ "ais_parser/internal/extractors/basestation"
	_ "ais_parser/internal/extractors/classb"
	_ "ais_parser/internal/extractors/classbext"
	_ "ais_parser/internal/extractors/longrange"
	_ "ais_parser/internal/extractors/position"
	_ "ais_parser/internal/extractors/staticdata"
	_ "ais_parser/internal/extractors/voyage"
)
