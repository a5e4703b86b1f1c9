// This module defines Fx providers for the analyzer and its exporter.
package analyze

import "go.uber.org/fx"

// Module provides the analysis components to Fx.
var Module = fx.Options(
	fx.Provide(NewAnalyzer),
	fx.Provide(NewExporter),
)
